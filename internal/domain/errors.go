package domain

import "errors"

var (
	ErrMissingVerifierCredentials = errors.New("verifier token and url must be configured")
	ErrEmptyImage                 = errors.New("slip image is empty")

	ErrPaymentNotFound         = errors.New("payment not found")
	ErrPaymentAlreadyFinalized = errors.New("payment already finalized")

	ErrBookingNotFound = errors.New("booking not found")
	ErrBookingConflict = errors.New("booking already exists for this date")
	ErrEmptyUpdate     = errors.New("no data provided for update")
)
