package cleanup_http

import (
	"context"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func RegisterRoutes(ctx context.Context, r chi.Router, s Scheduler, l *zap.Logger) {
	handler := NewCleanupHandler(ctx, s, l.With(zap.String("component", "CleanupHTTPHandler")))

	r.Route("/cleanup", func(r chi.Router) {
		r.Post("/old-bookings", handler.TriggerHandler)
		r.Get("/status", handler.StatusHandler)
		r.Post("/start", handler.StartHandler)
		r.Post("/stop", handler.StopHandler)
	})
}
