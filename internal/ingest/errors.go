package ingest

import "fmt"

// FetchError marks a network, non-2xx, or schema failure from the provider.
// It is fatal to the run; retry policy belongs to the invoker.
type FetchError struct {
	Date string
	Err  error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch daily history for %s: %v", e.Date, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// PersistError marks a storage failure during raw-snapshot or row upsert.
// Partial writes before the failure are not rolled back here; storage-layer
// transactionality is a collaborator concern.
type PersistError struct {
	Op  string
	Err error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistError) Unwrap() error {
	return e.Err
}
