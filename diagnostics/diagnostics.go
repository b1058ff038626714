// Package diagnostics accumulates the counters section 7 promises for
// non-fatal error kinds (safety violations, full-load bypasses, exhausted
// reopen budgets) and dumps them as the final log line of a run. Grounded
// in the teacher's end-of-run PrintConsoleReport shape (sim/report.go),
// narrowed from traffic/cost metrics to error-kind tallies.
package diagnostics

import (
	"fmt"

	"elevatorsim/elevatorcar"
	"elevatorsim/msgbus"
)

// Summary is the final tally dumped at the end of a run.
type Summary struct {
	SafetyViolations  int
	BypassEvents      int
	ReopenLimitHits   int
}

// Collector drains the broadcast pipe and tallies the diagnostic event
// kinds named in section 7.
type Collector struct {
	summary Summary
}

// NewCollector constructs an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Run drains pipe until it closes, incrementing the relevant counter for
// each recognized diagnostic event.
func (c *Collector) Run(pipe <-chan msgbus.Envelope) {
	for env := range pipe {
		switch env.Msg.(type) {
		case elevatorcar.SafetyViolation:
			c.summary.SafetyViolations++
		case elevatorcar.BypassEvent:
			c.summary.BypassEvents++
		case elevatorcar.ReopenLimitReached:
			c.summary.ReopenLimitHits++
		}
	}
}

// Summary returns the current tally. Safe to call after Run's pipe has
// closed; the collector does no further mutation once drained.
func (c *Collector) Summary() Summary { return c.summary }

// Print writes the summary line in the teacher's end-of-run report style.
func Print(s Summary) {
	fmt.Printf("Diagnostics: safety_violations=%d bypass_events=%d reopen_limit_hits=%d\n",
		s.SafetyViolations, s.BypassEvents, s.ReopenLimitHits)
}
