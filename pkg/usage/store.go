package usage

import "context"

// Store persists plan records and monthly counters.
// Every method must be a single atomic operation at the storage layer;
// the Service never combines a read with a later write.
type Store interface {
	// FindPlan returns the user's plan record or ErrPlanNotFound. It never creates one.
	FindPlan(ctx context.Context, userID string) (Plan, error)

	// EnsurePlan returns the user's plan record, inserting one with the given
	// tier and no overrides if none exists.
	EnsurePlan(ctx context.Context, userID string, tier Tier) (Plan, error)

	// EnsureUsage returns the (userID, yearMonth) record, inserting a zeroed one if missing.
	EnsureUsage(ctx context.Context, userID, yearMonth string) (Record, error)

	// IncrementUsage adds amount to the kind counter of the (userID, yearMonth)
	// record, creating the record with amount pre-applied if missing.
	IncrementUsage(ctx context.Context, userID, yearMonth string, kind Kind, amount int64) (Record, error)
}
