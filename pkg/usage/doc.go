// Package usage keeps per-user, per-month consumption counters and resolves
// the plan tier and effective limits a user is held to.
//
// Key concepts:
//
//   - Tier: subscription level (free, pro, team) with default limits
//   - Kind: the counted dimension, drafts or sends
//   - Record: one user's counters for one calendar month ("YYYY-MM")
//   - Bundle: tier, effective limits and current usage fetched together
//
// Every read path is get-or-create: callers never observe a missing record.
// Creation and increments are delegated to the Store as single atomic
// operations, so the Service holds no locks and shares no mutable state
// between requests.
//
// Basic usage:
//
//	svc := usage.NewService(usage.NewMemoryStore())
//
//	bundle, err := svc.GetUsageBundle(ctx, userID)
//	if err != nil {
//	    return err
//	}
//	if bundle.Exceeded(usage.KindDrafts) {
//	    // render upgrade prompt
//	}
//
//	// after the external action confirmed two new drafts
//	rec, err := svc.BumpUsage(ctx, userID, usage.KindDrafts, 2)
//
// Month boundaries come from an injected Clock, which makes rollover
// deterministic in tests:
//
//	svc := usage.NewService(store, usage.WithClock(usage.ClockFunc(func() time.Time {
//	    return time.Date(2025, time.January, 31, 23, 59, 0, 0, time.UTC)
//	})))
//
// Storage backends live in the postgres and redis subpackages; MemoryStore
// is intended for tests and local development.
package usage
