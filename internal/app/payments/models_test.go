package payments

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipbooking/internal/domain"
)

var declared = domain.DeclaredPayment{
	UserID:       "U1",
	DisplayName:  "Alice",
	SelectedDate: "2025-06-02",
	Amount:       1500,
}

func testSlip() domain.SlipData {
	fee := 0.0
	return domain.SlipData{
		Payload:     "0041000600000101030040220014",
		TransRef:    "TX123",
		Date:        "2025-06-01T09:58:00+07:00",
		CountryCode: "TH",
		Amount:      domain.SlipAmount{Amount: 1500},
		Fee:         &fee,
		Sender: domain.SlipParty{
			Bank:    domain.SlipBank{ID: "004", Name: "กสิกรไทย", Short: "KBANK"},
			Account: domain.SlipAccount{Name: domain.SlipAccountName{TH: "นาย ผู้โอน"}},
		},
		Receiver: domain.SlipReceiver{
			Account: domain.SlipAccount{Name: domain.SlipAccountName{TH: "นาย ก"}},
		},
	}
}

func TestBuildVerifiedPaymentSuccess(t *testing.T) {
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	slipURL := "https://x.supabase.co/storage/v1/object/public/slips/slips/1_a.jpg"

	payment, err := BuildVerifiedPayment("payment_1", declared, &slipURL, domain.OutcomeSuccess{Slip: testSlip()}, now)
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusSuccess, payment.Status)
	assert.Equal(t, "200", payment.StatusCode)
	assert.Equal(t, "Payment verified successfully", payment.Response)
	require.NotNil(t, payment.PaidAt)
	assert.True(t, payment.PaidAt.Equal(time.Date(2025, 6, 1, 2, 58, 0, 0, time.UTC)))
	require.NotNil(t, payment.TranRef)
	assert.Equal(t, "TX123", *payment.TranRef)
	assert.Equal(t, &slipURL, payment.SlipURL)
	assert.Equal(t, "U1", payment.UserID)

	var meta map[string]any
	require.NoError(t, json.Unmarshal(payment.Metadata, &meta))
	assert.Equal(t, "กสิกรไทย", meta["sender_bank"])
	assert.Equal(t, "นาย ผู้โอน", meta["sender_name"])
	assert.Equal(t, "นาย ก", meta["receiver_name"])
	assert.Equal(t, "2025-06-01T09:58:00+07:00", meta["transaction_date"])
	assert.Equal(t, "TH", meta["country_code"])
	assert.Contains(t, meta, "easyslip_data")
}

func TestBuildVerifiedPaymentValidationFailure(t *testing.T) {
	outcome := domain.OutcomeValidationFailure{
		Slip:    testSlip(),
		Reasons: []string{"Amount is 1400.0, must be 1500.0", "Receiver name is 'X', must be 'Y'"},
	}

	payment, err := BuildVerifiedPayment("payment_1", declared, nil, outcome, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "400", payment.StatusCode)
	assert.Equal(t, "Amount is 1400.0, must be 1500.0; Receiver name is 'X', must be 'Y'", payment.Response)
	assert.Nil(t, payment.PaidAt)
	assert.Nil(t, payment.SlipURL)
	require.NotNil(t, payment.TranRef)
	assert.Equal(t, "TX123", *payment.TranRef)
}

func TestBuildVerifiedPaymentProviderFailure(t *testing.T) {
	outcome := domain.OutcomeProviderFailure{
		Result: domain.VerificationResult{Status: 400, Message: "duplicate_slip"},
	}

	payment, err := BuildVerifiedPayment("payment_1", declared, nil, outcome, time.Now())
	require.NoError(t, err)

	assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	assert.Equal(t, "400", payment.StatusCode)
	assert.Equal(t, "duplicate_slip", payment.Response)
	assert.Nil(t, payment.TranRef)
	assert.Nil(t, payment.PaidAt)
	assert.JSONEq(t, `{"status":400,"data":null,"message":"duplicate_slip"}`, string(payment.Metadata))
}

func TestBuildVerifiedPaymentRejectsUnreadableSuccessDate(t *testing.T) {
	slip := testSlip()
	slip.Date = "not a date"

	_, err := BuildVerifiedPayment("payment_1", declared, nil, domain.OutcomeSuccess{Slip: slip}, time.Now())
	assert.Error(t, err)
}

func TestGeneratePaymentRequestValidate(t *testing.T) {
	valid := GeneratePaymentRequest{UserID: "U1", DisplayName: "A", SelectedDate: "2025-06-02", Amount: 1500, QRCodeURL: "https://qr"}
	assert.NoError(t, valid.Validate())

	noAmount := valid
	noAmount.Amount = 0
	assert.EqualError(t, noAmount.Validate(), "amount must be positive")

	noUser := valid
	noUser.UserID = ""
	assert.EqualError(t, noUser.Validate(), "user_id is required")
}
