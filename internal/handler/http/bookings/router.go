package bookings_http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clipbooking/internal/app/bookings"
)

func RegisterRoutes(r chi.Router, s bookings.BookingService, l *zap.Logger) {
	handler := NewBookingHandler(s, l.With(zap.String("component", "BookingHTTPHandler")))

	r.Post("/create-booking", handler.CreateBookingHandler)
	r.Route("/bookings", func(r chi.Router) {
		r.Get("/", handler.ListBookingsHandler)
		r.Put("/{booking_id}", handler.UpdateBookingHandler)
		r.Delete("/{booking_id}", handler.DeleteBookingHandler)
	})
}
