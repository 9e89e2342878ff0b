package ga

import "fmt"

// ConfigError reports invalid engine parameters. It is returned from
// NewEngine before any generation executes.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("ga: invalid config %s: %s", e.Field, e.Msg)
}

func configErrf(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Msg: fmt.Sprintf(format, args...)}
}

// DataError reports a malformed Environment or an unknown identifier in a
// distance lookup.
type DataError struct {
	Msg string
}

func (e *DataError) Error() string { return "ga: " + e.Msg }

func dataErrf(format string, args ...any) *DataError {
	return &DataError{Msg: fmt.Sprintf(format, args...)}
}

// FitnessError wraps an error raised by the fitness evaluator during a run.
// It aborts the run; no result is returned alongside it.
type FitnessError struct {
	Generation int
	Err        error
}

func (e *FitnessError) Error() string {
	return fmt.Sprintf("ga: fitness evaluation failed at generation %d: %v", e.Generation, e.Err)
}

func (e *FitnessError) Unwrap() error { return e.Err }

// Notice reasons attached to a successful Result. A notice is a diagnostic,
// never an error: the run still carries a valid best individual.
const (
	NoticeConverged = "converged" // no best-score improvement for Patience generations
	NoticeCancelled = "cancelled" // ctx cancelled between generations
	NoticeDeadline  = "deadline"  // time budget exhausted between generations
	NoticeExhausted = "exhausted" // generation budget spent with no improvement after the first generation
)

// ConvergenceNotice describes a non-fatal early termination.
type ConvergenceNotice struct {
	Reason     string `json:"reason"`
	Generation int    `json:"generation"` // generation at which the run stopped
}

func (n ConvergenceNotice) String() string {
	return fmt.Sprintf("%s at generation %d", n.Reason, n.Generation)
}
