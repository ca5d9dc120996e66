package driven

import (
	"context"

	"github.com/appwatch-labs/appwatch/internal/core/domain"
)

// StatusProbe performs one bounded existence check against a listing URL.
// Implementations never return an error: every failure folds into
// domain.OutcomeUnavailable, including a ctx that ends before the request
// is sent. A request already sent is not cut short by ctx.
type StatusProbe interface {
	Probe(ctx context.Context, url string) domain.ProbeOutcome
}
