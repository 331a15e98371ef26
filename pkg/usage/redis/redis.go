// Package redis provides a Redis-backed usage.Store.
//
// Each plan and each user-month is one hash. Get-or-create and increments run
// as MULTI/EXEC pipelines (HSETNX/HINCRBY followed by HGETALL), so every
// operation is atomic and returns the resulting record in one round trip.
// Usage hashes carry no TTL: monthly records are kept for dashboards.
package redis

import (
	"context"
	"fmt"
	"strconv"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/replyflow/pkg/usage"
)

const (
	fieldTier       = "tier"
	fieldDraftLimit = "draft_limit"
	fieldSendLimit  = "send_limit"
)

// Store is a Redis-backed usage.Store.
type Store struct {
	client    goredis.Cmdable
	keyPrefix string
}

var _ usage.Store = (*Store)(nil)

// Option configures Store.
type Option func(*Store)

// WithKeyPrefix sets the key prefix (default "replyflow:").
func WithKeyPrefix(prefix string) Option {
	return func(s *Store) { s.keyPrefix = prefix }
}

// New returns a Store. The client must be a connected *goredis.Client or *goredis.ClusterClient.
func New(client goredis.Cmdable, opts ...Option) *Store {
	s := &Store{
		client:    client,
		keyPrefix: "replyflow:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) planKey(userID string) string {
	return s.keyPrefix + "plan:" + userID
}

func (s *Store) usageKey(userID, yearMonth string) string {
	return s.keyPrefix + "usage:{" + userID + "}:" + yearMonth
}

// FindPlan returns the stored plan or usage.ErrPlanNotFound.
func (s *Store) FindPlan(ctx context.Context, userID string) (usage.Plan, error) {
	fields, err := s.client.HGetAll(ctx, s.planKey(userID)).Result()
	if err != nil {
		return usage.Plan{}, fmt.Errorf("usage/redis: find plan: %w", err)
	}
	if len(fields) == 0 {
		return usage.Plan{}, usage.ErrPlanNotFound
	}
	return parsePlan(userID, fields)
}

// EnsurePlan returns the plan, creating it with tier and no overrides if missing.
func (s *Store) EnsurePlan(ctx context.Context, userID string, tier usage.Tier) (usage.Plan, error) {
	key := s.planKey(userID)

	var all *goredis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, key, fieldTier, string(tier))
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return usage.Plan{}, fmt.Errorf("usage/redis: ensure plan: %w", err)
	}
	return parsePlan(userID, all.Val())
}

// EnsureUsage returns the month's record, creating a zeroed one if missing.
func (s *Store) EnsureUsage(ctx context.Context, userID, yearMonth string) (usage.Record, error) {
	key := s.usageKey(userID, yearMonth)

	var all *goredis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HSetNX(ctx, key, string(usage.KindDrafts), 0)
		pipe.HSetNX(ctx, key, string(usage.KindSends), 0)
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("usage/redis: ensure usage: %w", err)
	}
	return parseRecord(userID, yearMonth, all.Val())
}

// IncrementUsage adds amount to the kind counter with HINCRBY, which creates
// the hash and field on first use.
func (s *Store) IncrementUsage(ctx context.Context, userID, yearMonth string, kind usage.Kind, amount int64) (usage.Record, error) {
	var other usage.Kind
	switch kind {
	case usage.KindDrafts:
		other = usage.KindSends
	case usage.KindSends:
		other = usage.KindDrafts
	default:
		return usage.Record{}, usage.ErrInvalidKind
	}

	key := s.usageKey(userID, yearMonth)

	var all *goredis.MapStringStringCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, string(kind), amount)
		pipe.HSetNX(ctx, key, string(other), 0)
		all = pipe.HGetAll(ctx, key)
		return nil
	})
	if err != nil {
		return usage.Record{}, fmt.Errorf("usage/redis: increment usage: %w", err)
	}
	return parseRecord(userID, yearMonth, all.Val())
}

// SetPlan replaces a plan record. Used for seeding and by operators.
func (s *Store) SetPlan(ctx context.Context, p usage.Plan) error {
	if err := p.Validate(); err != nil {
		return err
	}
	key := s.planKey(p.UserID)
	values := []any{fieldTier, string(p.Tier)}
	if p.DraftLimit != nil {
		values = append(values, fieldDraftLimit, *p.DraftLimit)
	}
	if p.SendLimit != nil {
		values = append(values, fieldSendLimit, *p.SendLimit)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, values...)
		return nil
	})
	if err != nil {
		return fmt.Errorf("usage/redis: set plan: %w", err)
	}
	return nil
}

func parsePlan(userID string, fields map[string]string) (usage.Plan, error) {
	p := usage.Plan{UserID: userID, Tier: usage.Tier(fields[fieldTier])}
	var err error
	if p.DraftLimit, err = parseOptional(fields, fieldDraftLimit); err != nil {
		return usage.Plan{}, err
	}
	if p.SendLimit, err = parseOptional(fields, fieldSendLimit); err != nil {
		return usage.Plan{}, err
	}
	return p, nil
}

func parseOptional(fields map[string]string, name string) (*int64, error) {
	raw, ok := fields[name]
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("usage/redis: parse %s: %w", name, err)
	}
	return &v, nil
}

func parseRecord(userID, yearMonth string, fields map[string]string) (usage.Record, error) {
	rec := usage.Record{UserID: userID, YearMonth: yearMonth}
	var err error
	if rec.Drafts, err = parseCounter(fields, usage.KindDrafts); err != nil {
		return usage.Record{}, err
	}
	if rec.Sends, err = parseCounter(fields, usage.KindSends); err != nil {
		return usage.Record{}, err
	}
	return rec, nil
}

func parseCounter(fields map[string]string, kind usage.Kind) (int64, error) {
	raw, ok := fields[string(kind)]
	if !ok {
		return 0, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("usage/redis: parse %s: %w", kind, err)
	}
	return v, nil
}
