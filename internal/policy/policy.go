// Package policy decides how many items a caller may submit in one bulk request.
package policy

import (
	"context"
)

// Default bulk ceilings.
const (
	FreeArrayLimit = 20
	ProArrayLimit  = 100
)

// Tier classifies a caller. Pro callers get higher ceilings.
type Tier struct {
	Pro bool
}

// Free and Pro are the two tiers.
//
//nolint:gochecknoglobals // Immutable tier values
var (
	Free = Tier{}
	Pro  = Tier{Pro: true}
)

// String returns "pro" or "free".
func (t Tier) String() string {
	if t.Pro {
		return "pro"
	}
	return "free"
}

// Policy holds the per-tier array ceilings.
type Policy struct {
	Free int
	Pro  int
}

// Default returns the standard 20/100 policy.
func Default() Policy {
	return Policy{Free: FreeArrayLimit, Pro: ProArrayLimit}
}

// Limit returns the ceiling for a tier, falling back to the defaults for
// unset values.
func (p Policy) Limit(t Tier) int {
	if t.Pro {
		if p.Pro > 0 {
			return p.Pro
		}
		return ProArrayLimit
	}
	if p.Free > 0 {
		return p.Free
	}
	return FreeArrayLimit
}

// IsAllowed reports whether n items fit within the tier's ceiling.
func (p Policy) IsAllowed(n int, t Tier) bool {
	return n <= p.Limit(t)
}

type tierKey struct{}

// WithTier stores the caller tier on a context.
func WithTier(ctx context.Context, t Tier) context.Context {
	return context.WithValue(ctx, tierKey{}, t)
}

// TierFrom returns the tier stored on ctx, Free when absent.
func TierFrom(ctx context.Context) Tier {
	if t, ok := ctx.Value(tierKey{}).(Tier); ok {
		return t
	}
	return Free
}
