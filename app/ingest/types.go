package ingest

import (
	"context"

	"github.com/Autilos/r107-garage-hub/app/classify"
)

// Stats holds the per-run counters returned to the trigger caller.
// Reset per invocation, never persisted.
type Stats struct {
	Processed  int `json:"processed"`
	Allowed    int `json:"allowed"`
	Rejected   int `json:"rejected"`
	Errors     int `json:"errors"`
	Duplicates int `json:"duplicates"`
}

// Classifier abstracts the LLM judgment so tests can inject fakes
type Classifier interface {
	Run(ctx context.Context, title, description string) (*classify.Result, error)
}
