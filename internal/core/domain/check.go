package domain

// ProbeOutcome is the classified result of a single availability probe.
// Probe failures of any kind fold into OutcomeUnavailable.
type ProbeOutcome string

const (
	// OutcomeLive means the listing answered with 200-399.
	OutcomeLive ProbeOutcome = "live"

	// OutcomeRemoved means the listing answered with 404.
	OutcomeRemoved ProbeOutcome = "removed"

	// OutcomeUnavailable means no conclusion could be drawn this cycle.
	OutcomeUnavailable ProbeOutcome = "unavailable"
)

// String returns the string representation of the outcome.
func (o ProbeOutcome) String() string {
	return string(o)
}

// Conclusive reports whether the outcome may drive a status transition.
func (o ProbeOutcome) Conclusive() bool {
	return o == OutcomeLive || o == OutcomeRemoved
}

// Status returns the status an outcome would commit.
func (o ProbeOutcome) Status() Status {
	return Status(o)
}

// ResultKind classifies what happened to one item during a check.
type ResultKind string

const (
	// ResultChanged means a status transition was committed.
	ResultChanged ResultKind = "changed"

	// ResultUnchanged means only the check time was recorded.
	ResultUnchanged ResultKind = "unchanged"

	// ResultSkipped means the probe could not run (missing item or URL).
	ResultSkipped ResultKind = "skipped"

	// ResultFailed means the commit could not be applied.
	ResultFailed ResultKind = "failed"

	// ResultCancelled means the check was abandoned before commit.
	ResultCancelled ResultKind = "cancelled"
)

// CommitResult is what the transition committer decided and applied.
type CommitResult struct {
	// Kind is ResultChanged or ResultUnchanged.
	Kind ResultKind

	// From is the status before the commit.
	From Status

	// To is the status after the commit.
	To Status
}

// CheckResult is the per-item report handed back to refresh drivers.
type CheckResult struct {
	// Key identifies the checked item.
	Key ItemKey

	// ItemName is the display name, when the item could be loaded.
	ItemName string

	// Kind classifies the result.
	Kind ResultKind

	// From and To are set for ResultChanged.
	From Status
	To   Status

	// Outcome is the probe outcome, when the probe ran.
	Outcome ProbeOutcome

	// Err holds the cause for ResultSkipped and ResultFailed.
	Err error
}

// IsBan reports whether the result is a live-to-removed transition.
func (r CheckResult) IsBan() bool {
	return r.Kind == ResultChanged && r.From == StatusLive && r.To == StatusRemoved
}

// IsRestore reports whether the result is a removed-to-live transition.
func (r CheckResult) IsRestore() bool {
	return r.Kind == ResultChanged && r.From == StatusRemoved && r.To == StatusLive
}

// IsError reports whether the result counts as an error in a cycle summary.
func (r CheckResult) IsError() bool {
	return r.Kind == ResultFailed || r.Kind == ResultSkipped
}
