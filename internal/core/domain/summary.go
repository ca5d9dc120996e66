package domain

import "time"

// CycleSummary aggregates the results of one refresh run.
// It is not persisted; drivers hand it to the caller for display.
type CycleSummary struct {
	// RunID correlates log lines of one run.
	RunID string

	// StartedAt is when the run began.
	StartedAt time.Time

	// FinishedAt is when the last task reported.
	FinishedAt time.Time

	// Total is the number of tasks that were not cancelled.
	Total int

	// Checked is the number of tasks that reported a result.
	Checked int

	// Updated counts committed status changes of any kind.
	Updated int

	// Removed counts live to removed transitions.
	Removed int

	// Restored counts removed to live transitions.
	Restored int

	// Errors counts missing items, unresolvable URLs and failed commits.
	Errors int

	// Unavailable counts inconclusive probes (reported as unchanged).
	Unavailable int

	// Cancelled counts tasks dropped by cancellation.
	Cancelled int
}

// Record folds one task result into the summary.
// Cancelled results are dropped from Total rather than checked.
func (s *CycleSummary) Record(r CheckResult) {
	if r.Kind == ResultCancelled {
		s.Cancelled++
		if s.Total > 0 {
			s.Total--
		}
		return
	}

	s.Checked++
	switch r.Kind {
	case ResultChanged:
		s.Updated++
		if r.IsBan() {
			s.Removed++
		}
		if r.IsRestore() {
			s.Restored++
		}
	case ResultUnchanged:
		if r.Outcome == OutcomeUnavailable {
			s.Unavailable++
		}
	case ResultFailed, ResultSkipped:
		s.Errors++
	}
}

// Progress returns the completion fraction of the run.
func (s *CycleSummary) Progress() float64 {
	if s.Total <= 0 {
		return 1
	}
	if s.Checked >= s.Total {
		return 1
	}
	return float64(s.Checked) / float64(s.Total)
}

// Done reports whether every non-cancelled task has reported.
func (s *CycleSummary) Done() bool {
	return s.Checked >= s.Total
}

// RefreshProgress is the live view of a bulk run for the presentation layer.
type RefreshProgress struct {
	// RunID identifies the run.
	RunID string

	// Running indicates a run is in flight.
	Running bool

	// Checked is the number of reported tasks.
	Checked int

	// Total is the number of non-cancelled tasks.
	Total int

	// Fraction is Checked/Total in [0,1].
	Fraction float64
}
