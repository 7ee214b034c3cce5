package domain

import "net/http"

// VerificationResult is the normalized answer of the slip verification
// provider. Provider and transport failures are carried in Status and
// Message rather than returned as errors.
type VerificationResult struct {
	Status  int       `json:"status"`
	Data    *SlipData `json:"data"`
	Message string    `json:"message,omitempty"`
}

// Succeeded reports whether the provider accepted the slip and returned its data.
func (r VerificationResult) Succeeded() bool {
	return r.Status == http.StatusOK && r.Data != nil
}

type SlipData struct {
	Payload     string       `json:"payload"`
	TransRef    string       `json:"transRef"`
	Date        string       `json:"date"`
	CountryCode string       `json:"countryCode"`
	Amount      SlipAmount   `json:"amount"`
	Fee         *float64     `json:"fee,omitempty"`
	Ref1        *string      `json:"ref1,omitempty"`
	Ref2        *string      `json:"ref2,omitempty"`
	Ref3        *string      `json:"ref3,omitempty"`
	Sender      SlipParty    `json:"sender"`
	Receiver    SlipReceiver `json:"receiver"`
}

type SlipAmount struct {
	Amount float64        `json:"amount"`
	Local  map[string]any `json:"local,omitempty"`
}

type SlipBank struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Short string `json:"short,omitempty"`
}

type SlipAccountName struct {
	TH string `json:"th,omitempty"`
	EN string `json:"en,omitempty"`
}

type SlipAccount struct {
	Name  SlipAccountName `json:"name"`
	Bank  map[string]any  `json:"bank,omitempty"`
	Proxy map[string]any  `json:"proxy,omitempty"`
}

type SlipParty struct {
	Bank    SlipBank    `json:"bank"`
	Account SlipAccount `json:"account"`
}

type SlipReceiver struct {
	Bank       SlipBank    `json:"bank"`
	Account    SlipAccount `json:"account"`
	MerchantID string      `json:"merchantId,omitempty"`
}
