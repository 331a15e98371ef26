package quota_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/replyflow/pkg/automation"
	"github.com/dmitrymomot/replyflow/pkg/quota"
	"github.com/dmitrymomot/replyflow/pkg/usage"
)

type call struct {
	action  string
	payload json.RawMessage
}

// fakeForwarder answers every call with the same response.
type fakeForwarder struct {
	mu           sync.Mutex
	calls        []call
	unconfigured bool
	resp         *automation.Response
	err          error
}

func (f *fakeForwarder) Configured() bool { return !f.unconfigured }

func (f *fakeForwarder) Call(_ context.Context, action string, payload json.RawMessage) (*automation.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{action: action, payload: payload})
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeForwarder) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func jsonResponse(status int, body string) *automation.Response {
	return &automation.Response{StatusCode: status, ContentType: "application/json", Body: []byte(body)}
}

// failingUsage fails GetUsageBundle or BumpUsage on demand.
type failingUsage struct {
	quota.UsageService
	bundleErr error
	bumpErr   error
}

func (f failingUsage) GetUsageBundle(ctx context.Context, userID string) (usage.Bundle, error) {
	if f.bundleErr != nil {
		return usage.Bundle{}, f.bundleErr
	}
	return f.UsageService.GetUsageBundle(ctx, userID)
}

func (f failingUsage) BumpUsage(ctx context.Context, userID string, kind usage.Kind, amount int64) (usage.Record, error) {
	if f.bumpErr != nil {
		return usage.Record{}, f.bumpErr
	}
	return f.UsageService.BumpUsage(ctx, userID, kind, amount)
}

func newService(t *testing.T) (*usage.Service, *usage.MemoryStore) {
	t.Helper()
	store := usage.NewMemoryStore()
	now := time.Date(2025, time.March, 14, 9, 0, 0, 0, time.UTC)
	svc := usage.NewService(store, usage.WithClock(usage.ClockFunc(func() time.Time { return now })))
	return svc, store
}

func bump(t *testing.T, svc *usage.Service, user string, kind usage.Kind, n int64) {
	t.Helper()
	_, err := svc.BumpUsage(context.Background(), user, kind, n)
	require.NoError(t, err)
}

func usageOf(t *testing.T, res quota.Result) usage.Record {
	t.Helper()
	rec, ok := res.Fields["usage"].(usage.Record)
	require.True(t, ok, "usage field missing")
	return rec
}

func TestGate_Validation(t *testing.T) {
	t.Parallel()

	t.Run("unconfigured endpoint", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{unconfigured: true}
		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "listLabels", nil)
		assert.ErrorIs(t, err, automation.ErrNotConfigured)
	})

	t.Run("missing user id", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}
		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "", "listLabels", nil)
		assert.ErrorIs(t, err, quota.ErrMissingUserID)
		assert.Zero(t, fwd.count())
	})

	t.Run("missing action", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}
		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "", nil)
		assert.ErrorIs(t, err, quota.ErrMissingAction)
		assert.Zero(t, fwd.count())
	})
}

func TestGate_Exempt(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	bump(t, svc, "u1", usage.KindDrafts, 25)
	bump(t, svc, "u1", usage.KindSends, 10)
	fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true,"data":["INBOX","Work"]}`)}
	gate := quota.NewGate(svc, fwd)

	for _, action := range []string{"listLabels", "getUserSettings", "getRunLog"} {
		res, err := gate.Handle(context.Background(), "u1", action, json.RawMessage(`{"x":1}`))
		require.NoError(t, err, action)
		assert.Equal(t, http.StatusOK, res.Status)
		rec := usageOf(t, res)
		assert.Equal(t, int64(25), rec.Drafts)
		assert.Equal(t, int64(10), rec.Sends)
	}
	assert.Equal(t, 3, fwd.count())
	assert.JSONEq(t, `{"x":1}`, string(fwd.calls[0].payload))
}

func TestGate_GenerateDrafts(t *testing.T) {
	t.Parallel()

	t.Run("counts returned items", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		bump(t, svc, "u1", usage.KindDrafts, 3)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true,"data":[{"id":"a"},{"id":"b"}]}`)}

		res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "generateDrafts", nil)
		require.NoError(t, err)
		assert.Equal(t, true, res.Fields["ok"])
		assert.Len(t, res.Fields["data"], 2)
		assert.Equal(t, int64(5), usageOf(t, res).Drafts)
		assert.Equal(t, usage.TierFree, res.Fields["plan"])
		assert.Equal(t, usage.Limits{Drafts: 25, Sends: 10}, res.Fields["limits"])
	})

	t.Run("refused at the limit without calling upstream", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		bump(t, svc, "u1", usage.KindDrafts, 25)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true,"data":[1]}`)}

		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "generateDrafts", nil)
		require.ErrorIs(t, err, quota.ErrLimitReached)
		var limitErr *quota.LimitError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, usage.KindDrafts, limitErr.Dimension)
		assert.Equal(t, "Draft limit reached", limitErr.Message())
		assert.Equal(t, int64(25), limitErr.Bundle.Usage.Drafts)
		assert.Zero(t, fwd.count())
	})

	t.Run("one under the limit may overshoot", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		bump(t, svc, "u1", usage.KindDrafts, 24)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true,"data":[1,2,3,4,5]}`)}

		res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "generateDrafts", nil)
		require.NoError(t, err)
		assert.Equal(t, int64(29), usageOf(t, res).Drafts)
	})

	t.Run("empty or missing data counts nothing", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{`{"ok":true,"data":[]}`, `{"ok":true}`, `{"ok":true,"data":"x"}`} {
			svc, _ := newService(t)
			fwd := &fakeForwarder{resp: jsonResponse(200, body)}
			res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "generateDrafts", nil)
			require.NoError(t, err, body)
			assert.Zero(t, usageOf(t, res).Drafts, body)
		}
	})

	t.Run("reported failure counts nothing", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":false,"error":"quota exceeded upstream","data":[1,2]}`)}

		res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "generateDrafts", nil)
		require.NoError(t, err)
		assert.Equal(t, false, res.Fields["ok"])
		assert.Equal(t, "quota exceeded upstream", res.Fields["error"])
		assert.Zero(t, usageOf(t, res).Drafts)
	})
}

func TestGate_SendDraft(t *testing.T) {
	t.Parallel()

	t.Run("counts one per success", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}
		gate := quota.NewGate(svc, fwd)

		for range 3 {
			_, err := gate.Handle(context.Background(), "u1", "sendDraft", json.RawMessage(`{"draftId":"d"}`))
			require.NoError(t, err)
		}
		rec, err := svc.GetUsage(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), rec.Sends)
		assert.Zero(t, rec.Drafts)
	})

	t.Run("refused at the limit", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		bump(t, svc, "u1", usage.KindSends, 10)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}

		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "sendDraft", nil)
		var limitErr *quota.LimitError
		require.ErrorAs(t, err, &limitErr)
		assert.Equal(t, "Send limit reached", limitErr.Message())
		assert.Zero(t, fwd.count())
	})

	t.Run("draft limit does not block sends", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		bump(t, svc, "u1", usage.KindDrafts, 25)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}

		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "sendDraft", nil)
		require.NoError(t, err)
	})

	t.Run("unlimited override never refuses", func(t *testing.T) {
		t.Parallel()
		svc, store := newService(t)
		unlimited := usage.Unlimited
		store.SetPlan(usage.Plan{UserID: "u1", Tier: usage.TierFree, SendLimit: &unlimited})
		bump(t, svc, "u1", usage.KindSends, 1000)
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}

		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "sendDraft", nil)
		require.NoError(t, err)
	})
}

func TestGate_Upstream(t *testing.T) {
	t.Parallel()

	t.Run("error status is passed through untouched", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{resp: &automation.Response{StatusCode: 503, ContentType: "text/plain", Body: []byte("maintenance")}}

		res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "sendDraft", nil)
		require.NoError(t, err)
		assert.True(t, res.Passthrough())
		assert.Equal(t, 503, res.Status)
		assert.Equal(t, "text/plain", res.ContentType)
		assert.Equal(t, "maintenance", string(res.Body))

		rec, err := svc.GetUsage(context.Background(), "u1")
		require.NoError(t, err)
		assert.Zero(t, rec.Sends)
	})

	t.Run("non-object body is passed through with 200", func(t *testing.T) {
		t.Parallel()
		for _, body := range []string{`<html>`, `[1,2]`, `null`, ``} {
			svc, _ := newService(t)
			fwd := &fakeForwarder{resp: &automation.Response{StatusCode: 201, ContentType: "text/html", Body: []byte(body)}}

			res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "sendDraft", nil)
			require.NoError(t, err, body)
			assert.True(t, res.Passthrough(), body)
			assert.Equal(t, http.StatusOK, res.Status)
			assert.Equal(t, body, string(res.Body))
		}
	})

	t.Run("transport error is returned", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		fwd := &fakeForwarder{err: automation.ErrRequestFailed}

		_, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "sendDraft", nil)
		assert.ErrorIs(t, err, automation.ErrRequestFailed)
	})
}

func TestGate_UnknownAction(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	bump(t, svc, "u1", usage.KindDrafts, 25)
	bump(t, svc, "u1", usage.KindSends, 10)
	fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true,"data":[1,2,3]}`)}

	res, err := quota.NewGate(svc, fwd).Handle(context.Background(), "u1", "archiveThread", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, fwd.count())
	rec := usageOf(t, res)
	assert.Equal(t, int64(25), rec.Drafts)
	assert.Equal(t, int64(10), rec.Sends)
}

func TestGate_StoreFailures(t *testing.T) {
	t.Parallel()

	t.Run("bundle load failure stops before upstream", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		cause := errors.New("db down")
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}

		_, err := quota.NewGate(failingUsage{UsageService: svc, bundleErr: cause}, fwd).
			Handle(context.Background(), "u1", "sendDraft", nil)
		assert.ErrorIs(t, err, quota.ErrUsageUnavailable)
		assert.ErrorIs(t, err, cause)
		assert.Zero(t, fwd.count())
	})

	t.Run("increment failure after upstream success", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		cause := errors.New("write failed")
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}

		_, err := quota.NewGate(failingUsage{UsageService: svc, bumpErr: cause}, fwd).
			Handle(context.Background(), "u1", "sendDraft", nil)
		assert.ErrorIs(t, err, quota.ErrUsageUnavailable)
		assert.Equal(t, 1, fwd.count())
	})
}

// ctxUsage fails like a database driver once the context is done.
type ctxUsage struct {
	quota.UsageService
}

func (c ctxUsage) GetUsageBundle(ctx context.Context, userID string) (usage.Bundle, error) {
	if err := ctx.Err(); err != nil {
		return usage.Bundle{}, err
	}
	return c.UsageService.GetUsageBundle(ctx, userID)
}

func (c ctxUsage) BumpUsage(ctx context.Context, userID string, kind usage.Kind, amount int64) (usage.Record, error) {
	if err := ctx.Err(); err != nil {
		return usage.Record{}, err
	}
	return c.UsageService.BumpUsage(ctx, userID, kind, amount)
}

// disconnectingForwarder cancels the caller before answering, the way
// net/http cancels a request context when the client goes away.
type disconnectingForwarder struct {
	cancel  context.CancelFunc
	resp    *automation.Response
	callErr error
}

func (f *disconnectingForwarder) Configured() bool { return true }

func (f *disconnectingForwarder) Call(ctx context.Context, _ string, _ json.RawMessage) (*automation.Response, error) {
	f.cancel()
	f.callErr = ctx.Err()
	return f.resp, nil
}

func TestGate_ClientDisconnect(t *testing.T) {
	t.Parallel()

	t.Run("confirmed send is still counted", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fwd := &disconnectingForwarder{cancel: cancel, resp: jsonResponse(200, `{"ok":true}`)}

		res, err := quota.NewGate(ctxUsage{svc}, fwd).Handle(ctx, "u1", "sendDraft", nil)
		require.NoError(t, err)
		assert.NoError(t, fwd.callErr, "upstream call must not see the caller's cancellation")
		assert.Equal(t, int64(1), usageOf(t, res).Sends)

		rec, err := svc.GetUsage(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(1), rec.Sends)
	})

	t.Run("generated drafts are still counted", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		fwd := &disconnectingForwarder{cancel: cancel, resp: jsonResponse(200, `{"ok":true,"data":[{},{},{}]}`)}

		_, err := quota.NewGate(ctxUsage{svc}, fwd).Handle(ctx, "u1", "generateDrafts", nil)
		require.NoError(t, err)

		rec, err := svc.GetUsage(context.Background(), "u1")
		require.NoError(t, err)
		assert.Equal(t, int64(3), rec.Drafts)
	})

	t.Run("cancelled before the limit check nothing is forwarded", func(t *testing.T) {
		t.Parallel()
		svc, _ := newService(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}

		_, err := quota.NewGate(ctxUsage{svc}, fwd).Handle(ctx, "u1", "sendDraft", nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, fwd.count())
	})
}

func TestGate_CustomPolicy(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	bump(t, svc, "u1", usage.KindSends, 10)
	fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}
	gate := quota.NewGate(svc, fwd, quota.WithPolicy(quota.Policy{
		"sendDraft":     {Exempt: true},
		"scheduleReply": {Dimension: usage.KindDrafts, Count: quota.CountOne},
	}))

	_, err := gate.Handle(context.Background(), "u1", "sendDraft", nil)
	require.NoError(t, err)

	res, err := gate.Handle(context.Background(), "u1", "scheduleReply", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), usageOf(t, res).Drafts)
}

func TestGate_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := quota.NewMetrics(reg)
	svc, _ := newService(t)
	bump(t, svc, "u1", usage.KindSends, 9)
	fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true,"data":[1,2]}`)}
	gate := quota.NewGate(svc, fwd, quota.WithMetrics(metrics))

	ctx := context.Background()
	_, err := gate.Handle(ctx, "u1", "sendDraft", nil)
	require.NoError(t, err)
	_, err = gate.Handle(ctx, "u1", "sendDraft", nil)
	require.Error(t, err)
	_, err = gate.Handle(ctx, "u1", "generateDrafts", nil)
	require.NoError(t, err)
	_, err = gate.Handle(ctx, "u1", "listLabels", nil)
	require.NoError(t, err)
	_, err = gate.Handle(ctx, "u1", "somethingNew", nil)
	require.NoError(t, err)

	expected := `
# HELP replyflow_quota_decisions_total Action requests handled by the quota gate, by outcome.
# TYPE replyflow_quota_decisions_total counter
replyflow_quota_decisions_total{action="generateDrafts",outcome="allowed"} 1
replyflow_quota_decisions_total{action="listLabels",outcome="exempt"} 1
replyflow_quota_decisions_total{action="other",outcome="allowed"} 1
replyflow_quota_decisions_total{action="sendDraft",outcome="allowed"} 1
replyflow_quota_decisions_total{action="sendDraft",outcome="limit_reached"} 1
# HELP replyflow_usage_increments_total Units added to monthly usage counters.
# TYPE replyflow_usage_increments_total counter
replyflow_usage_increments_total{dimension="drafts"} 2
replyflow_usage_increments_total{dimension="sends"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
}

func TestGate_ConcurrentSends(t *testing.T) {
	t.Parallel()

	svc, _ := newService(t)
	fwd := &fakeForwarder{resp: jsonResponse(200, `{"ok":true}`)}
	gate := quota.NewGate(svc, fwd, quota.WithPolicy(quota.Policy{
		"sendDraft": {Dimension: usage.KindSends, Count: quota.CountOne},
	}))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = gate.Handle(context.Background(), "u1", "sendDraft", nil)
		}()
	}
	wg.Wait()

	rec, err := svc.GetUsage(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(fwd.count()), rec.Sends)
}
