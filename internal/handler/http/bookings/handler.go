package bookings_http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"clipbooking/internal/app/bookings"
	"clipbooking/internal/domain"
	"clipbooking/internal/handler/http/respond"
)

const maxFormSize = 1 << 20

type BookingHandler struct {
	service bookings.BookingService
	logger  *zap.Logger
}

func NewBookingHandler(s bookings.BookingService, l *zap.Logger) *BookingHandler {
	return &BookingHandler{service: s, logger: l}
}

type UpdateBookingResponse struct {
	Success     bool           `json:"success"`
	Message     string         `json:"message"`
	BookingID   string         `json:"booking_id"`
	UpdatedData map[string]any `json:"updated_data,omitempty"`
}

func (h *BookingHandler) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var req bookings.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	booking, err := h.service.Create(r.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, bookings.ErrInvalidBooking):
			respond.Error(w, h.logger, http.StatusBadRequest, err.Error())
		case errors.Is(err, domain.ErrBookingConflict):
			respond.Error(w, h.logger, http.StatusConflict, "Booking already exists for this date. Please choose a different date.")
		default:
			respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
		}
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, booking)
}

func (h *BookingHandler) ListBookingsHandler(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, list)
}

func (h *BookingHandler) UpdateBookingHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "booking_id")

	patch, err := patchFromForm(r)
	if err != nil {
		respond.Error(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.service.Update(r.Context(), id, patch); err != nil {
		h.writeError(w, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, UpdateBookingResponse{
		Success:     true,
		Message:     "Booking updated successfully",
		BookingID:   id,
		UpdatedData: patch.Fields(),
	})
}

func (h *BookingHandler) DeleteBookingHandler(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "booking_id")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, UpdateBookingResponse{
		Success:   true,
		Message:   "Booking deleted successfully",
		BookingID: id,
	})
}

func (h *BookingHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrBookingNotFound):
		respond.Error(w, h.logger, http.StatusNotFound, "Booking not found")
	case errors.Is(err, domain.ErrEmptyUpdate):
		respond.Error(w, h.logger, http.StatusBadRequest, "No data provided for update")
	case errors.Is(err, domain.ErrBookingConflict):
		respond.Error(w, h.logger, http.StatusConflict, "Booking already exists for this date. Please choose a different date.")
	default:
		h.logger.Error("Booking request failed", zap.Error(err))
		respond.Error(w, h.logger, http.StatusInternalServerError, "Internal server error")
	}
}

// patchFromForm reads the form fields that were actually sent; absent
// fields stay nil.
func patchFromForm(r *http.Request) (domain.BookingPatch, error) {
	var patch domain.BookingPatch
	if err := r.ParseMultipartForm(maxFormSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		return patch, errors.New("invalid form data")
	}

	value := func(name string) *string {
		if _, ok := r.PostForm[name]; !ok {
			return nil
		}
		v := r.PostForm.Get(name)
		return &v
	}

	patch.UserID = value("user_id")
	patch.DisplayName = value("display_name")
	patch.SelectedDate = value("selected_date")
	patch.PaymentID = value("payment_id")

	if raw := value("amount"); raw != nil {
		amount, err := strconv.ParseFloat(*raw, 64)
		if err != nil {
			return patch, errors.New("amount must be a number")
		}
		patch.Amount = &amount
	}
	if raw := value("status"); raw != nil {
		status := domain.BookingStatus(*raw)
		if status != domain.BookingStatusPending && status != domain.BookingStatusConfirmed {
			return patch, errors.New("status must be pending or confirmed")
		}
		patch.Status = &status
	}
	return patch, nil
}
