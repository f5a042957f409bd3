// The main package for the arxivingest executable.
package main

import (
	"github.com/paperwire/arxiv-ingest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
