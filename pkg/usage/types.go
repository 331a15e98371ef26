package usage

// Tier is a named subscription level.
type Tier string

// Supported tiers.
const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierTeam Tier = "team"
)

// ParseTier maps a stored tier name onto a known Tier.
// Unknown or empty names resolve to TierFree.
func ParseTier(s string) Tier {
	switch Tier(s) {
	case TierPro:
		return TierPro
	case TierTeam:
		return TierTeam
	default:
		return TierFree
	}
}

// Kind is a counted usage dimension.
type Kind string

// Counted dimensions.
const (
	KindDrafts Kind = "drafts"
	KindSends  Kind = "sends"
)

// Valid reports whether k is a known dimension.
func (k Kind) Valid() bool {
	return k == KindDrafts || k == KindSends
}

// Unlimited marks a limit that is never reached.
const Unlimited int64 = -1

// Limits holds the monthly allowance for every dimension.
type Limits struct {
	Drafts int64 `json:"drafts"`
	Sends  int64 `json:"sends"`
}

// For returns the limit for the given dimension, or zero for an unknown one.
func (l Limits) For(kind Kind) int64 {
	switch kind {
	case KindDrafts:
		return l.Drafts
	case KindSends:
		return l.Sends
	default:
		return 0
	}
}

// Plan is a user's plan record. Nil overrides fall back to tier defaults.
type Plan struct {
	UserID     string
	Tier       Tier
	DraftLimit *int64
	SendLimit  *int64
}

// Validate checks that the plan can be stored: a user id and overrides of
// Unlimited or more.
func (p Plan) Validate() error {
	if p.UserID == "" {
		return ErrMissingUserID
	}
	for _, v := range []*int64{p.DraftLimit, p.SendLimit} {
		if v != nil && *v < Unlimited {
			return ErrInvalidLimit
		}
	}
	return nil
}

// Record is a user's consumption for one calendar month.
type Record struct {
	UserID    string `json:"userId"`
	YearMonth string `json:"yearMonth"`
	Drafts    int64  `json:"drafts"`
	Sends     int64  `json:"sends"`
}

// Count returns the counter for the given dimension, or zero for an unknown one.
func (r Record) Count(kind Kind) int64 {
	switch kind {
	case KindDrafts:
		return r.Drafts
	case KindSends:
		return r.Sends
	default:
		return 0
	}
}

// Bundle is the snapshot used for both display and enforcement.
type Bundle struct {
	Tier   Tier   `json:"plan"`
	Limits Limits `json:"limits"`
	Usage  Record `json:"usage"`
}

// Exceeded reports whether the counter for kind is at or over its limit.
// Unknown dimensions are never counted, so they are never exceeded.
func (b Bundle) Exceeded(kind Kind) bool {
	if !kind.Valid() {
		return false
	}
	limit := b.Limits.For(kind)
	if limit == Unlimited {
		return false
	}
	return b.Usage.Count(kind) >= limit
}
