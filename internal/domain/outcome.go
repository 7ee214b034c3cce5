package domain

// Outcome is the result of running a slip through verification and
// validation. It is one of OutcomeSuccess, OutcomeProviderFailure or
// OutcomeValidationFailure.
type Outcome interface {
	outcome()
}

type OutcomeSuccess struct {
	Slip SlipData
}

type OutcomeProviderFailure struct {
	Result VerificationResult
}

type OutcomeValidationFailure struct {
	Slip    SlipData
	Reasons []string
}

func (OutcomeSuccess) outcome()           {}
func (OutcomeProviderFailure) outcome()   {}
func (OutcomeValidationFailure) outcome() {}
