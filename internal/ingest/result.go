// Package ingest drives the catalog import: it normalizes raw records into
// canonical vehicles, walks partition pages, and orchestrates the full run.
package ingest

import "github.com/drivebase/catalog-cli/internal/model"

// Outcome tags a normalization result. Skip is a deliberate validation
// rejection; Fail is an unexpected processing error. Both are counted,
// neither aborts a page.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSkip
	OutcomeFail
)

// Skip reasons surfaced in logs and counters.
const (
	ReasonMissingField           = "missing required field"
	ReasonInvalidYear            = "invalid year"
	ReasonUnresolvableMake       = "unresolvable manufacturer"
	ReasonUnresolvableModel      = "unresolvable model"
	ReasonNoFallbackFuel         = "no fallback fuel"
	ReasonNoFallbackTransmission = "no fallback transmission"
)

// Result is the outcome of normalizing one raw record.
type Result struct {
	Outcome Outcome
	Vehicle model.Vehicle // valid only for OutcomeSuccess
	Reason  string        // set for OutcomeSkip
	Err     error         // set for OutcomeFail
}

func success(v model.Vehicle) Result {
	return Result{Outcome: OutcomeSuccess, Vehicle: v}
}

func skip(reason string) Result {
	return Result{Outcome: OutcomeSkip, Reason: reason}
}

func fail(err error) Result {
	return Result{Outcome: OutcomeFail, Err: err}
}
