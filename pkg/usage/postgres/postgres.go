// Package postgres provides a PostgreSQL-backed usage.Store.
//
// Get-or-create and increments are single INSERT ... ON CONFLICT statements
// with RETURNING, so concurrent first requests for the same user and month
// converge on one row and increments are applied relative to the stored value.
// The schema lives in db/migrations and is applied with pg.Migrate.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/replyflow/pkg/pg"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

// DB is the subset of *pgxpool.Pool the store needs.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Store is a PostgreSQL-backed usage.Store.
type Store struct {
	db DB
}

var _ usage.Store = (*Store)(nil)

// New returns a Store using db, usually a *pgxpool.Pool.
func New(db DB) *Store {
	return &Store{db: db}
}

const findPlanQuery = `
	SELECT user_id, tier, draft_limit, send_limit
	FROM plans
	WHERE user_id = $1`

// FindPlan returns the stored plan or usage.ErrPlanNotFound.
func (s *Store) FindPlan(ctx context.Context, userID string) (usage.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, findPlanQuery, userID))
	if pg.IsNotFoundError(err) {
		return usage.Plan{}, usage.ErrPlanNotFound
	}
	if err != nil {
		return usage.Plan{}, fmt.Errorf("usage/postgres: find plan: %w", err)
	}
	return p, nil
}

// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
const ensurePlanQuery = `
	INSERT INTO plans (user_id, tier)
	VALUES ($1, $2)
	ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING user_id, tier, draft_limit, send_limit`

// EnsurePlan returns the plan, inserting one with tier and no overrides if missing.
func (s *Store) EnsurePlan(ctx context.Context, userID string, tier usage.Tier) (usage.Plan, error) {
	p, err := scanPlan(s.db.QueryRow(ctx, ensurePlanQuery, userID, string(tier)))
	if err != nil {
		return usage.Plan{}, fmt.Errorf("usage/postgres: ensure plan: %w", err)
	}
	return p, nil
}

const ensureUsageQuery = `
	INSERT INTO usage_months (user_id, year_month, drafts, sends)
	VALUES ($1, $2, 0, 0)
	ON CONFLICT (user_id, year_month) DO UPDATE SET user_id = EXCLUDED.user_id
	RETURNING user_id, year_month, drafts, sends`

// EnsureUsage returns the month's record, inserting a zeroed one if missing.
func (s *Store) EnsureUsage(ctx context.Context, userID, yearMonth string) (usage.Record, error) {
	rec, err := scanRecord(s.db.QueryRow(ctx, ensureUsageQuery, userID, yearMonth))
	if err != nil {
		return usage.Record{}, fmt.Errorf("usage/postgres: ensure usage: %w", err)
	}
	return rec, nil
}

// Both counters are added from EXCLUDED, so one statement serves every kind.
const incrementUsageQuery = `
	INSERT INTO usage_months (user_id, year_month, drafts, sends)
	VALUES ($1, $2, $3, $4)
	ON CONFLICT (user_id, year_month) DO UPDATE SET
		drafts = usage_months.drafts + EXCLUDED.drafts,
		sends = usage_months.sends + EXCLUDED.sends,
		updated_at = now()
	RETURNING user_id, year_month, drafts, sends`

// IncrementUsage adds amount to the kind counter in one upsert.
func (s *Store) IncrementUsage(ctx context.Context, userID, yearMonth string, kind usage.Kind, amount int64) (usage.Record, error) {
	var drafts, sends int64
	switch kind {
	case usage.KindDrafts:
		drafts = amount
	case usage.KindSends:
		sends = amount
	default:
		return usage.Record{}, usage.ErrInvalidKind
	}

	rec, err := scanRecord(s.db.QueryRow(ctx, incrementUsageQuery, userID, yearMonth, drafts, sends))
	if err != nil {
		return usage.Record{}, fmt.Errorf("usage/postgres: increment usage: %w", err)
	}
	return rec, nil
}

// SetPlan inserts or replaces a plan record. Used for seeding and by operators;
// the usage service itself never changes a plan.
func (s *Store) SetPlan(ctx context.Context, p usage.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO plans (user_id, tier, draft_limit, send_limit)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			tier = EXCLUDED.tier,
			draft_limit = EXCLUDED.draft_limit,
			send_limit = EXCLUDED.send_limit,
			updated_at = now()`,
		p.UserID, string(p.Tier), p.DraftLimit, p.SendLimit,
	)
	if err != nil {
		return fmt.Errorf("usage/postgres: set plan: %w", err)
	}
	return nil
}

func scanPlan(row pgx.Row) (usage.Plan, error) {
	var (
		p    usage.Plan
		tier string
	)
	if err := row.Scan(&p.UserID, &tier, &p.DraftLimit, &p.SendLimit); err != nil {
		return usage.Plan{}, err
	}
	p.Tier = usage.Tier(tier)
	return p, nil
}

func scanRecord(row pgx.Row) (usage.Record, error) {
	var rec usage.Record
	if err := row.Scan(&rec.UserID, &rec.YearMonth, &rec.Drafts, &rec.Sends); err != nil {
		return usage.Record{}, err
	}
	return rec, nil
}
