package merge

import (
	"context"

	"github.com/loomctl/loom/internal/conflict"
)

// Resolver is the last-resort semantic merger for conflicts the deterministic
// strategies cannot handle. Implementations may call out to an external
// reasoning model and account for it via the result's AICallsMade and
// TokensUsed fields. Errors are contained by the pipeline and surface as a
// failed result for that file only.
type Resolver interface {
	Resolve(ctx context.Context, mc *Context) (*Result, error)
}

// Compile-time check that NoopResolver implements Resolver.
var _ Resolver = (*NoopResolver)(nil)

// NoopResolver stands in when AI resolution is disabled. It deterministically
// escalates every conflict to human review: no network calls, zero tokens.
type NoopResolver struct{}

// Resolve returns a review escalation carrying the unresolved conflict.
func (NoopResolver) Resolve(_ context.Context, mc *Context) (*Result, error) {
	return &Result{
		Decision:           DecisionNeedsHumanReview,
		FilePath:           mc.FilePath,
		ConflictsRemaining: []conflict.Region{mc.Conflict},
		Explanation:        "AI resolution disabled; conflict requires human review",
	}, nil
}
