package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clipbooking/internal/app/verification"
	"clipbooking/internal/domain"
)

const responseVerified = "Payment verified successfully"

type GeneratePaymentRequest struct {
	UserID       string  `json:"user_id"`
	DisplayName  string  `json:"display_name"`
	SelectedDate string  `json:"selected_date"`
	Amount       float64 `json:"amount"`
	QRCodeURL    string  `json:"qr_code_url"`
}

func (r GeneratePaymentRequest) Validate() error {
	switch {
	case r.UserID == "":
		return errors.New("user_id is required")
	case r.DisplayName == "":
		return errors.New("display_name is required")
	case r.SelectedDate == "":
		return errors.New("selected_date is required")
	case r.Amount <= 0:
		return errors.New("amount must be positive")
	case r.QRCodeURL == "":
		return errors.New("qr_code_url is required")
	}
	return nil
}

// slipMetadata is the audit payload stored for slips the provider accepted.
type slipMetadata struct {
	EasySlipData    domain.SlipData `json:"easyslip_data"`
	SenderBank      string          `json:"sender_bank"`
	SenderName      string          `json:"sender_name"`
	ReceiverName    string          `json:"receiver_name"`
	TransactionDate string          `json:"transaction_date"`
	CountryCode     string          `json:"country_code"`
	Fee             *float64        `json:"fee"`
	Payload         string          `json:"payload"`
}

func newSlipMetadata(slip domain.SlipData) slipMetadata {
	return slipMetadata{
		EasySlipData:    slip,
		SenderBank:      slip.Sender.Bank.Name,
		SenderName:      slip.Sender.Account.Name.TH,
		ReceiverName:    slip.Receiver.Account.Name.TH,
		TransactionDate: slip.Date,
		CountryCode:     slip.CountryCode,
		Fee:             slip.Fee,
		Payload:         slip.Payload,
	}
}

// BuildVerifiedPayment maps a verification outcome onto the payment record
// that will be persisted for it.
func BuildVerifiedPayment(paymentID string, declared domain.DeclaredPayment, slipURL *string, outcome domain.Outcome, now time.Time) (*domain.Payment, error) {
	payment := &domain.Payment{
		ID:           paymentID,
		UserID:       declared.UserID,
		DisplayName:  declared.DisplayName,
		SelectedDate: declared.SelectedDate,
		Amount:       declared.Amount,
		SlipURL:      slipURL,
		CreatedAt:    now,
	}

	var (
		metadata any
		slip     domain.SlipData
	)
	switch o := outcome.(type) {
	case domain.OutcomeProviderFailure:
		payment.Status = domain.PaymentStatusFailed
		payment.StatusCode = strconv.Itoa(o.Result.Status)
		payment.Response = o.Result.Message
		metadata = o.Result
	case domain.OutcomeValidationFailure:
		slip = o.Slip
		payment.Status = domain.PaymentStatusFailed
		payment.StatusCode = strconv.Itoa(http.StatusBadRequest)
		payment.Response = strings.Join(o.Reasons, "; ")
		metadata = newSlipMetadata(slip)
	case domain.OutcomeSuccess:
		slip = o.Slip
		paidAt, err := verification.ParseSlipTime(slip.Date)
		if err != nil {
			return nil, fmt.Errorf("successful slip for payment %s has unreadable date: %w", paymentID, err)
		}
		payment.Status = domain.PaymentStatusSuccess
		payment.StatusCode = strconv.Itoa(http.StatusOK)
		payment.Response = responseVerified
		payment.PaidAt = &paidAt
		metadata = newSlipMetadata(slip)
	default:
		return nil, fmt.Errorf("unsupported verification outcome %T", outcome)
	}

	if slip.TransRef != "" {
		tranRef := slip.TransRef
		payment.TranRef = &tranRef
	}

	raw, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payment metadata: %w", err)
	}
	payment.Metadata = raw
	return payment, nil
}
