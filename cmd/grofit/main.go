package main

import (
	"os"

	"github.com/grofit/backend/cmd/grofit/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
