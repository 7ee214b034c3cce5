package payments_http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"clipbooking/internal/app/payments"
	"clipbooking/internal/app/verification"
	"clipbooking/internal/domain"
	"clipbooking/internal/handler/http/respond"
)

const maxUploadSize = 10 << 20

type SlipVerifier interface {
	VerifySlip(ctx context.Context, image []byte, filename string) (*domain.VerificationResult, error)
	VerifyAndRecord(ctx context.Context, sub verification.SlipSubmission) (*verification.VerifyResponse, error)
}

type PaymentHandler struct {
	service  payments.PaymentService
	verifier SlipVerifier
	logger   *zap.Logger
}

func NewPaymentHandler(s payments.PaymentService, v SlipVerifier, l *zap.Logger) *PaymentHandler {
	return &PaymentHandler{service: s, verifier: v, logger: l}
}

func (h *PaymentHandler) GeneratePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req payments.GeneratePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debug("Invalid generate-payment body", zap.Error(err))
		respond.Error(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	payment, err := h.service.GeneratePayment(r.Context(), &req)
	if err != nil {
		if errors.Is(err, payments.ErrInvalidPayment) {
			respond.Error(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, domain.ErrPaymentAlreadyFinalized) {
			respond.Error(w, h.logger, http.StatusConflict, "Payment already exists")
			return
		}
		respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, payment)
}

func (h *PaymentHandler) ListPaymentsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListPayments(r.Context())
	if err != nil {
		respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, list)
}

func (h *PaymentHandler) VerifySlipHandler(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readSlipImage(w, r)
	if !ok {
		return
	}

	result, err := h.verifier.VerifySlip(r.Context(), upload.data, upload.filename)
	if err != nil {
		h.writeVerifyError(w, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, result)
}

func (h *PaymentHandler) VerifySlipWithValidationHandler(w http.ResponseWriter, r *http.Request) {
	upload, ok := h.readSlipImage(w, r)
	if !ok {
		return
	}

	sub, err := submissionFromForm(r)
	if err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}
	sub.Image = upload.data
	sub.Filename = upload.filename
	sub.ContentType = upload.contentType

	resp, err := h.verifier.VerifyAndRecord(r.Context(), sub)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentAlreadyFinalized) {
			respond.Error(w, h.logger, http.StatusConflict, "Payment has already been verified")
			return
		}
		h.writeVerifyError(w, err)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, resp)
}

func (h *PaymentHandler) writeVerifyError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrEmptyImage) {
		respond.Error(w, h.logger, http.StatusBadRequest, "Slip image is empty")
		return
	}
	h.logger.Error("Slip verification failed", zap.Error(err))
	respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
}

type slipUpload struct {
	data        []byte
	filename    string
	contentType string
}

// readSlipImage parses the multipart form and returns the slip_image part.
// On failure the response has already been written.
func (h *PaymentHandler) readSlipImage(w http.ResponseWriter, r *http.Request) (slipUpload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		h.logger.Debug("Invalid multipart form", zap.Error(err))
		respond.Error(w, h.logger, http.StatusBadRequest, "Invalid multipart form")
		return slipUpload{}, false
	}

	file, header, err := r.FormFile("slip_image")
	if err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, "slip_image is required")
		return slipUpload{}, false
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		respond.Error(w, h.logger, http.StatusBadRequest, "File must be an image")
		return slipUpload{}, false
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read slip image", zap.Error(err))
		respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return slipUpload{}, false
	}
	return slipUpload{data: data, filename: header.Filename, contentType: contentType}, true
}

func submissionFromForm(r *http.Request) (verification.SlipSubmission, error) {
	var missing []string
	field := func(name string) string {
		v := r.FormValue(name)
		if v == "" {
			missing = append(missing, name)
		}
		return v
	}

	sub := verification.SlipSubmission{
		PaymentID: field("payment_id"),
		Declared: domain.DeclaredPayment{
			UserID:       field("user_id"),
			DisplayName:  field("display_name"),
			SelectedDate: field("selected_date"),
		},
	}
	rawAmount := field("amount")
	if len(missing) > 0 {
		return sub, fmt.Errorf("missing form fields: %s", strings.Join(missing, ", "))
	}

	amount, err := strconv.ParseFloat(rawAmount, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return sub, errors.New("amount must be a number")
	}
	sub.Declared.Amount = amount
	return sub, nil
}
