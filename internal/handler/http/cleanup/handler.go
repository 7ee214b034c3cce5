package cleanup_http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/app/cleanup"
	"clipbooking/internal/handler/http/respond"
)

const jobID = "cleanup_old_bookings"

type Scheduler interface {
	Start(ctx context.Context) bool
	Stop() bool
	Trigger(ctx context.Context) (cleanup.SweepReport, error)
	Status() cleanup.Status
}

type CleanupHandler struct {
	scheduler Scheduler
	// baseCtx outlives requests; a scheduler started over HTTP must not stop
	// when the request that started it ends.
	baseCtx context.Context
	now     func() time.Time
	logger  *zap.Logger
}

func NewCleanupHandler(ctx context.Context, s Scheduler, l *zap.Logger) *CleanupHandler {
	return &CleanupHandler{scheduler: s, baseCtx: ctx, now: time.Now, logger: l}
}

type actionResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Report    *cleanup.SweepReport `json:"report,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
}

type jobStatus struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	NextRunTime *time.Time `json:"next_run_time"`
	Trigger     string     `json:"trigger"`
}

type statusResponse struct {
	cleanup.Status
	Jobs      []jobStatus `json:"jobs"`
	Timestamp time.Time   `json:"timestamp"`
}

func (h *CleanupHandler) TriggerHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.scheduler.Trigger(r.Context())
	if err != nil {
		h.logger.Error("Manual cleanup failed", zap.Error(err))
		respond.Error(w, h.logger, http.StatusInternalServerError, "Error during cleanup")
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, actionResponse{
		Success:   true,
		Message:   "Manual cleanup completed",
		Report:    &report,
		Timestamp: h.now(),
	})
}

func (h *CleanupHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	st := h.scheduler.Status()
	jobs := []jobStatus{}
	if st.Running {
		jobs = append(jobs, jobStatus{
			ID:          jobID,
			Name:        "Cleanup old pending bookings",
			NextRunTime: st.NextRun,
			Trigger:     (time.Duration(st.IntervalMinutes) * time.Minute).String(),
		})
	}
	respond.JSON(w, h.logger, http.StatusOK, statusResponse{Status: st, Jobs: jobs, Timestamp: h.now()})
}

func (h *CleanupHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	message := "Cleanup scheduler started"
	if !h.scheduler.Start(h.baseCtx) {
		message = "Cleanup scheduler already running"
	}
	respond.JSON(w, h.logger, http.StatusOK, actionResponse{Success: true, Message: message, Timestamp: h.now()})
}

func (h *CleanupHandler) StopHandler(w http.ResponseWriter, r *http.Request) {
	message := "Cleanup scheduler stopped"
	if !h.scheduler.Stop() {
		message = "Cleanup scheduler was not running"
	}
	respond.JSON(w, h.logger, http.StatusOK, actionResponse{Success: true, Message: message, Timestamp: h.now()})
}
