package cleanup_http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"clipbooking/internal/app/cleanup"
)

type fakeScheduler struct {
	running    bool
	triggerErr error
	startCtx   context.Context
}

func (f *fakeScheduler) Start(ctx context.Context) bool {
	if f.running {
		return false
	}
	f.running, f.startCtx = true, ctx
	return true
}

func (f *fakeScheduler) Stop() bool {
	was := f.running
	f.running = false
	return was
}

func (f *fakeScheduler) Trigger(ctx context.Context) (cleanup.SweepReport, error) {
	return cleanup.SweepReport{Found: 3, Deleted: 3}, f.triggerErr
}

func (f *fakeScheduler) Status() cleanup.Status {
	next := time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC)
	st := cleanup.Status{Running: f.running, Enabled: true, CleanupMinutes: 10, IntervalMinutes: 5}
	if f.running {
		st.NextRun = &next
	}
	return st
}

type ctxKey struct{}

func newTestRouter(t *testing.T, s Scheduler) (http.Handler, context.Context) {
	ctx := context.WithValue(context.Background(), ctxKey{}, "app")
	r := chi.NewRouter()
	RegisterRoutes(ctx, r, s, zaptest.NewLogger(t))
	return r, ctx
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestStartStopLifecycle(t *testing.T) {
	sched := &fakeScheduler{}
	router, appCtx := newTestRouter(t, sched)

	rec := do(router, http.MethodPost, "/cleanup/start")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Cleanup scheduler started")
	assert.Equal(t, appCtx, sched.startCtx)

	rec = do(router, http.MethodPost, "/cleanup/start")
	assert.Contains(t, rec.Body.String(), "already running")

	rec = do(router, http.MethodGet, "/cleanup/status")
	require.Equal(t, http.StatusOK, rec.Code)
	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, true, status["scheduler_running"])
	assert.Equal(t, true, status["cron_enabled"])
	assert.EqualValues(t, 10, status["cleanup_minutes"])
	jobs, ok := status["jobs"].([]any)
	require.True(t, ok)
	require.Len(t, jobs, 1)
	assert.Equal(t, "5m0s", jobs[0].(map[string]any)["trigger"])

	rec = do(router, http.MethodPost, "/cleanup/stop")
	assert.Contains(t, rec.Body.String(), "Cleanup scheduler stopped")
	assert.False(t, sched.running)

	rec = do(router, http.MethodGet, "/cleanup/status")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, false, status["scheduler_running"])
	assert.Empty(t, status["jobs"])
}

func TestTriggerCleanup(t *testing.T) {
	router, _ := newTestRouter(t, &fakeScheduler{})

	rec := do(router, http.MethodPost, "/cleanup/old-bookings")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Manual cleanup completed", resp["message"])
	assert.EqualValues(t, 3, resp["report"].(map[string]any)["deleted"])
}

func TestTriggerCleanupFailure(t *testing.T) {
	router, _ := newTestRouter(t, &fakeScheduler{triggerErr: errors.New("db down")})

	rec := do(router, http.MethodPost, "/cleanup/old-bookings")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"detail":"Error during cleanup"}`, rec.Body.String())
}
