package payments_http

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clipbooking/internal/app/payments"
)

func RegisterRoutes(r chi.Router, s payments.PaymentService, v SlipVerifier, l *zap.Logger) {
	handler := NewPaymentHandler(s, v, l.With(zap.String("component", "PaymentHTTPHandler")))

	r.Post("/generate-payment", handler.GeneratePaymentHandler)
	r.Get("/payments", handler.ListPaymentsHandler)
	r.Post("/verify-slip", handler.VerifySlipHandler)
	r.Post("/verify-slip-with-validation", handler.VerifySlipWithValidationHandler)
}
