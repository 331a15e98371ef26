package usage

import "maps"

// TierTable maps every tier to its default monthly limits.
type TierTable map[Tier]Limits

// DefaultTiers is the canonical limit table.
func DefaultTiers() TierTable {
	return TierTable{
		TierFree: {Drafts: 25, Sends: 10},
		TierPro:  {Drafts: 500, Sends: 250},
		TierTeam: {Drafts: 1000, Sends: 500},
	}
}

// Defaults returns the limits for tier, falling back to the free tier
// when the tier is missing from the table.
func (t TierTable) Defaults(tier Tier) Limits {
	if l, ok := t[tier]; ok {
		return l
	}
	return t[TierFree]
}

// Clone returns a copy that is safe to modify.
func (t TierTable) Clone() TierTable {
	return maps.Clone(t)
}

// EffectiveLimits applies the plan's per-user overrides on top of the tier defaults.
func (t TierTable) EffectiveLimits(p Plan) Limits {
	limits := t.Defaults(p.Tier)
	if p.DraftLimit != nil {
		limits.Drafts = *p.DraftLimit
	}
	if p.SendLimit != nil {
		limits.Sends = *p.SendLimit
	}
	return limits
}
