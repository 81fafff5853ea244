// Package metrics records cycle outcomes.
package metrics

import "time"

// Outcome labels for a finished cycle.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial" // manifest saved, some removals failed
	OutcomeFailure = "failure"
)

// CycleObservation summarizes one cycle for one storage.
type CycleObservation struct {
	Trigger  string
	Storage  string
	Retained int
	Removed  int
	Skipped  int
	Failed   int
	Duration time.Duration
	Err      error
}

// Outcome classifies the observation.
func (o CycleObservation) Outcome() string {
	switch {
	case o.Err != nil:
		return OutcomeFailure
	case o.Failed > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// Recorder receives cycle observations.
type Recorder interface {
	ObserveCycle(obs CycleObservation)
}

// NoopRecorder discards observations.
type NoopRecorder struct{}

// ObserveCycle implements Recorder.
func (NoopRecorder) ObserveCycle(CycleObservation) {}
