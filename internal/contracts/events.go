package contracts

// Event channel names. Delivery is at-most-once best-effort publish/subscribe;
// a crash between persistence and publish drops the notification.
const (
	// EventIngestionCompleted is emitted after a daily history snapshot has
	// been ingested successfully (not on skip or failure).
	EventIngestionCompleted = "events:ingestion:price-history:daily:completed"

	// EventAnalyticsCompleted is emitted after flip analytics for a date
	// have been persisted.
	EventAnalyticsCompleted = "events:analytics:flip:daily:completed"
)

// IngestionCompletedMessage is the payload of EventIngestionCompleted.
type IngestionCompletedMessage struct {
	Source       string `json:"source"`
	Date         string `json:"date"`
	ItemsCount   int    `json:"itemsCount"`
	EntriesCount int    `json:"entriesCount"`
	SHA256       string `json:"sha256"`
}

// TopRecommendation is a top-ranked flip recommendation carried on the
// analytics completion event.
type TopRecommendation struct {
	ItemName       string         `json:"itemName"`
	ModRank        int            `json:"modRank"`
	Rank           int            `json:"rank"`
	OverallScore   float64        `json:"overallScore"`
	Recommendation Recommendation `json:"recommendation"`
	Confidence     float64        `json:"confidence"`
}

// AnalyticsSummary aggregates the recommendation distribution for a date.
type AnalyticsSummary struct {
	BuyCount     int     `json:"buyCount"`
	HoldCount    int     `json:"holdCount"`
	AvoidCount   int     `json:"avoidCount"`
	AverageScore float64 `json:"averageScore"`
}

// AnalyticsCompletedMessage is the payload of EventAnalyticsCompleted.
type AnalyticsCompletedMessage struct {
	Date               string                `json:"date"`
	Count              int                   `json:"count"`
	TopRecommendations []TopRecommendation   `json:"topRecommendations"`
	MarketTrends       []MarketTrendData     `json:"marketTrends"`
	ItemPerformances   []ItemPerformanceData `json:"itemPerformances"`
	Summary            AnalyticsSummary      `json:"summary"`
}
