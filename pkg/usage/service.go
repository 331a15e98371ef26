package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/replyflow/pkg/logger"
)

// Service resolves tiers, limits and monthly usage on top of a Store.
// It is safe for concurrent use; all shared state lives in the Store.
type Service struct {
	store Store
	clock Clock
	tiers TierTable
	log   *slog.Logger
}

// NewService returns a Service backed by store.
func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store: store,
		clock: SystemClock,
		tiers: DefaultTiers(),
		log:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CurrentMonth returns the record key for the clock's current time.
func (s *Service) CurrentMonth() string {
	return YearMonth(s.clock.Now())
}

// GetPlanTier returns the user's tier, or TierFree when no plan record exists.
// It never creates a record.
func (s *Service) GetPlanTier(ctx context.Context, userID string) (Tier, error) {
	if userID == "" {
		return "", ErrMissingUserID
	}

	p, err := s.store.FindPlan(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrPlanNotFound) {
			return TierFree, nil
		}
		return "", errors.Join(ErrFailedToLoadPlan, err)
	}
	return ParseTier(string(p.Tier)), nil
}

// GetUsage returns the current month's record, creating a zeroed one if missing.
func (s *Service) GetUsage(ctx context.Context, userID string) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}

	rec, err := s.store.EnsureUsage(ctx, userID, s.CurrentMonth())
	if err != nil {
		return Record{}, errors.Join(ErrFailedToLoadUsage, err)
	}
	return rec, nil
}

// GetUsageBundle returns tier, effective limits and current usage together.
// Missing usage and plan records are created on the way.
func (s *Service) GetUsageBundle(ctx context.Context, userID string) (Bundle, error) {
	rec, err := s.GetUsage(ctx, userID)
	if err != nil {
		return Bundle{}, err
	}

	p, err := s.store.EnsurePlan(ctx, userID, TierFree)
	if err != nil {
		return Bundle{}, errors.Join(ErrFailedToLoadPlan, err)
	}
	p.Tier = ParseTier(string(p.Tier))

	return Bundle{
		Tier:   p.Tier,
		Limits: s.tiers.EffectiveLimits(p),
		Usage:  rec,
	}, nil
}

// BumpUsage adds amount to the kind counter of the current month.
// The record is created with amount pre-applied if it does not exist yet.
func (s *Service) BumpUsage(ctx context.Context, userID string, kind Kind, amount int64) (Record, error) {
	if userID == "" {
		return Record{}, ErrMissingUserID
	}
	if !kind.Valid() {
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if amount <= 0 {
		return Record{}, fmt.Errorf("%w: must be positive, got %d", ErrInvalidAmount, amount)
	}

	month := s.CurrentMonth()
	rec, err := s.store.IncrementUsage(ctx, userID, month, kind, amount)
	if err != nil {
		return Record{}, errors.Join(ErrFailedToUpdateUsage, err)
	}

	s.log.DebugContext(ctx, "usage incremented",
		logger.UserID(userID),
		logger.Component("usage"),
		logger.Dimension(string(kind)),
		slog.Int64("amount", amount),
		logger.YearMonth(month),
	)
	return rec, nil
}
