package redis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/replyflow/pkg/usage"
)

func TestParseRecord(t *testing.T) {
	t.Parallel()

	rec, err := parseRecord("u", "2025-03", map[string]string{"drafts": "7", "sends": "2"})
	require.NoError(t, err)
	assert.Equal(t, usage.Record{UserID: "u", YearMonth: "2025-03", Drafts: 7, Sends: 2}, rec)

	rec, err = parseRecord("u", "2025-03", map[string]string{})
	require.NoError(t, err)
	assert.Equal(t, usage.Record{UserID: "u", YearMonth: "2025-03"}, rec)

	_, err = parseRecord("u", "2025-03", map[string]string{"drafts": "many"})
	assert.Error(t, err)
}

func TestParsePlan(t *testing.T) {
	t.Parallel()

	p, err := parsePlan("u", map[string]string{"tier": "team", "send_limit": "-1"})
	require.NoError(t, err)
	assert.Equal(t, usage.TierTeam, p.Tier)
	assert.Nil(t, p.DraftLimit)
	require.NotNil(t, p.SendLimit)
	assert.Equal(t, usage.Unlimited, *p.SendLimit)

	_, err = parsePlan("u", map[string]string{"tier": "pro", "draft_limit": "x"})
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	t.Parallel()

	s := New(nil, WithKeyPrefix("test:"))
	assert.Equal(t, "test:plan:u1", s.planKey("u1"))
	assert.Equal(t, "test:usage:{u1}:2025-03", s.usageKey("u1", "2025-03"))
}

func TestStore_SetPlanRejectsInvalidLimit(t *testing.T) {
	t.Parallel()

	// Validation runs before the client is touched.
	store := New(nil)
	limit := int64(-5)

	err := store.SetPlan(context.Background(), usage.Plan{UserID: "u", Tier: usage.TierPro, SendLimit: &limit})
	assert.ErrorIs(t, err, usage.ErrInvalidLimit)
}
