package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"clipbooking/internal/app/bookings"
	"clipbooking/internal/app/payments"
	bookings_http "clipbooking/internal/handler/http/bookings"
	cleanup_http "clipbooking/internal/handler/http/cleanup"
	payments_http "clipbooking/internal/handler/http/payments"
	"clipbooking/internal/handler/http/respond"
)

const serviceName = "Clip Booking API"

type Dependencies struct {
	Payments       payments.PaymentService
	Verifier       payments_http.SlipVerifier
	Bookings       bookings.BookingService
	Scheduler      cleanup_http.Scheduler
	AllowedOrigins []string
	Logger         *zap.Logger
}

// NewRouter wires every HTTP route. ctx is the application context; the
// cleanup scheduler started over HTTP runs under it.
func NewRouter(ctx context.Context, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	healthLogger := deps.Logger.With(zap.String("component", "HealthHandler"))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, healthLogger, http.StatusOK, map[string]any{
			"status":    "OK",
			"timestamp": time.Now(),
			"service":   serviceName,
		})
	})

	payments_http.RegisterRoutes(r, deps.Payments, deps.Verifier, deps.Logger)
	bookings_http.RegisterRoutes(r, deps.Bookings, deps.Logger)
	cleanup_http.RegisterRoutes(ctx, r, deps.Scheduler, deps.Logger)

	return r
}
