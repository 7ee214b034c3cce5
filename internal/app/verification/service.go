package verification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"clipbooking/internal/domain"
)

const (
	messageVerified         = "Payment verified successfully"
	messageValidationFailed = "Validation failed"

	defaultUploadTimeout = 5 * time.Second
	defaultRecordTimeout = 10 * time.Second
)

type Verifier interface {
	Verify(ctx context.Context, image []byte, filename string) (*domain.VerificationResult, error)
}

type Uploader interface {
	Upload(ctx context.Context, data []byte, filename, contentType string) (string, error)
}

// Recorder persists the final state of a payment.
type Recorder interface {
	GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error)
	Record(ctx context.Context, paymentID string, declared domain.DeclaredPayment, slipURL *string, outcome domain.Outcome) (*domain.Payment, error)
}

// SlipSubmission is a slip image sent for a payment, with the values the
// payer declared for it.
type SlipSubmission struct {
	PaymentID   string
	Declared    domain.DeclaredPayment
	Image       []byte
	Filename    string
	ContentType string
}

type VerifyResponse struct {
	Success      bool             `json:"success"`
	Message      string           `json:"message"`
	StatusCode   int              `json:"status_code"`
	Errors       []string         `json:"errors,omitempty"`
	EasySlipData *domain.SlipData `json:"easyslip_data,omitempty"`
}

type Service struct {
	verifier      Verifier
	uploader      Uploader
	recorder      Recorder
	rules         Rules
	defaultAmount float64
	receiverName  string
	uploadTimeout time.Duration
	recordTimeout time.Duration
	now           func() time.Time
	logger        *zap.Logger
}

type Options struct {
	Rules         Rules
	DefaultAmount float64
	ReceiverName  string
	// UploadTimeout bounds the slip upload so it cannot use up the request.
	UploadTimeout time.Duration
	// RecordTimeout bounds the final write, which outlives the request.
	RecordTimeout time.Duration
}

func NewService(verifier Verifier, uploader Uploader, recorder Recorder, opts Options, logger *zap.Logger) *Service {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = defaultUploadTimeout
	}
	if opts.RecordTimeout <= 0 {
		opts.RecordTimeout = defaultRecordTimeout
	}
	return &Service{
		verifier:      verifier,
		uploader:      uploader,
		recorder:      recorder,
		rules:         opts.Rules,
		defaultAmount: opts.DefaultAmount,
		receiverName:  opts.ReceiverName,
		uploadTimeout: opts.UploadTimeout,
		recordTimeout: opts.RecordTimeout,
		now:           time.Now,
		logger:        logger,
	}
}

// VerifySlip forwards the image to the provider and returns its normalized
// answer without validating or recording anything.
func (s *Service) VerifySlip(ctx context.Context, image []byte, filename string) (*domain.VerificationResult, error) {
	result, err := s.verifier.Verify(ctx, image, filename)
	if err != nil {
		return nil, err
	}
	s.logger.Info("Slip verified", zap.String("filename", filename), zap.Int("provider_status", result.Status))
	return result, nil
}

// VerifyAndRecord runs a submission through the provider and the business
// rules, then records exactly one terminal state for the payment. A payment
// that already left pending is refused before the provider is called.
func (s *Service) VerifyAndRecord(ctx context.Context, sub SlipSubmission) (*VerifyResponse, error) {
	logger := s.logger.With(zap.String("payment_id", sub.PaymentID))

	if err := s.ensurePending(ctx, sub.PaymentID); err != nil {
		return nil, err
	}

	result, err := s.verifier.Verify(ctx, sub.Image, sub.Filename)
	if err != nil {
		return nil, err
	}

	slipURL := s.upload(ctx, sub, logger)

	outcome := s.evaluate(*result, sub.Declared)

	// The provider has consumed the slip at this point, so the outcome is
	// written even if the caller has gone away.
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.recordTimeout)
	defer cancel()
	if _, err := s.recorder.Record(recordCtx, sub.PaymentID, sub.Declared, slipURL, outcome); err != nil {
		return nil, fmt.Errorf("failed to record verification outcome: %w", err)
	}

	switch o := outcome.(type) {
	case domain.OutcomeProviderFailure:
		logger.Info("Slip rejected by provider", zap.Int("provider_status", o.Result.Status), zap.String("message", o.Result.Message))
		return &VerifyResponse{
			Success:    false,
			Message:    "EasySlip API error: " + o.Result.Message,
			StatusCode: o.Result.Status,
		}, nil
	case domain.OutcomeValidationFailure:
		logger.Info("Slip failed validation", zap.Strings("violations", o.Reasons))
		slip := o.Slip
		return &VerifyResponse{
			Success:      false,
			Message:      messageValidationFailed,
			StatusCode:   http.StatusBadRequest,
			Errors:       o.Reasons,
			EasySlipData: &slip,
		}, nil
	case domain.OutcomeSuccess:
		logger.Info("Slip verified and payment recorded", zap.String("tran_ref", o.Slip.TransRef))
		slip := o.Slip
		return &VerifyResponse{
			Success:      true,
			Message:      messageVerified,
			StatusCode:   http.StatusOK,
			EasySlipData: &slip,
		}, nil
	}
	return nil, fmt.Errorf("unsupported verification outcome %T", outcome)
}

func (s *Service) evaluate(result domain.VerificationResult, declared domain.DeclaredPayment) domain.Outcome {
	if !result.Succeeded() {
		return domain.OutcomeProviderFailure{Result: result}
	}

	expected := Expectations{
		Amount:       declared.Amount,
		DeclaredDate: declared.SelectedDate,
		ReceiverName: s.receiverName,
	}
	if expected.Amount == 0 {
		expected.Amount = s.defaultAmount
	}

	slip := *result.Data
	if violations := s.rules.Validate(slip, expected, s.now()); len(violations) > 0 {
		return domain.OutcomeValidationFailure{Slip: slip, Reasons: violations}
	}
	return domain.OutcomeSuccess{Slip: slip}
}

// ensurePending fails with ErrPaymentAlreadyFinalized when the payment exists
// and is no longer pending. Unknown payments are allowed through; Record
// creates them.
func (s *Service) ensurePending(ctx context.Context, paymentID string) error {
	existing, err := s.recorder.GetPayment(ctx, paymentID)
	if err != nil {
		if errors.Is(err, domain.ErrPaymentNotFound) {
			return nil
		}
		return fmt.Errorf("failed to look up payment %s: %w", paymentID, err)
	}
	if existing.Status.Terminal() {
		s.logger.Warn("Slip submitted for finalized payment",
			zap.String("payment_id", paymentID),
			zap.String("status", string(existing.Status)))
		return fmt.Errorf("payment %s is %s: %w", paymentID, existing.Status, domain.ErrPaymentAlreadyFinalized)
	}
	return nil
}

// upload stores the slip image for audit. A failed upload is logged and the
// payment is recorded without a slip URL.
func (s *Service) upload(ctx context.Context, sub SlipSubmission, logger *zap.Logger) *string {
	if s.uploader == nil {
		return nil
	}
	uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()
	url, err := s.uploader.Upload(uploadCtx, sub.Image, sub.Filename, sub.ContentType)
	if err != nil {
		logger.Warn("Failed to upload slip image", zap.String("filename", sub.Filename), zap.Error(err))
		return nil
	}
	return &url
}
