package verification

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipbooking/internal/domain"
)

func slipAt(date string, amount float64, receiver string) domain.SlipData {
	return domain.SlipData{
		TransRef: "TX1",
		Date:     date,
		Amount:   domain.SlipAmount{Amount: amount},
		Receiver: domain.SlipReceiver{
			Account: domain.SlipAccount{Name: domain.SlipAccountName{TH: receiver}},
		},
	}
}

func TestRulesValidate(t *testing.T) {
	rules := Rules{TimeDiffLimit: 10}
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC) // 10:00 in UTC+7
	expected := Expectations{Amount: 1500, DeclaredDate: "2025-06-02", ReceiverName: "นาย ก"}

	tests := []struct {
		name string
		slip domain.SlipData
		want []string
	}{
		{
			name: "all rules pass",
			slip: slipAt("2025-06-01T09:57:00+07:00", 1500, "นาย ก"),
		},
		{
			name: "naive timestamp is read in UTC+7",
			slip: slipAt("2025-06-01T09:55:00", 1500, "นาย ก"),
		},
		{
			name: "boundary of the time window passes",
			slip: slipAt("2025-06-01T02:50:00Z", 1500, "นาย ก"),
		},
		{
			name: "amount mismatch only",
			slip: slipAt("2025-06-01T09:57:00+07:00", 1400, "นาย ก"),
			want: []string{"Amount is 1400.0, must be 1500.0"},
		},
		{
			name: "stale slip only",
			slip: slipAt("2025-06-01T09:30:00+07:00", 1500, "นาย ก"),
			want: []string{"Payment time difference is 30.0 minutes, must be within 10 minutes"},
		},
		{
			name: "receiver mismatch only",
			slip: slipAt("2025-06-01T09:57:00+07:00", 1500, "นาย ข"),
			want: []string{"Receiver name is 'นาย ข', must be 'นาย ก'"},
		},
		{
			name: "violations are collected in rule order",
			slip: slipAt("2025-06-01T09:30:00+07:00", 1400, "นาย ข"),
			want: []string{
				"Payment time difference is 30.0 minutes, must be within 10 minutes",
				"Amount is 1400.0, must be 1500.0",
				"Receiver name is 'นาย ข', must be 'นาย ก'",
			},
		},
		{
			name: "unreadable timestamp is a violation",
			slip: slipAt("yesterday", 1500, "นาย ก"),
			want: []string{"Payment time 'yesterday' is not a valid timestamp"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rules.Validate(tt.slip, expected, now))
		})
	}
}

func TestRulesValidateExactAmount(t *testing.T) {
	rules := Rules{TimeDiffLimit: 10}
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)
	slip := slipAt("2025-06-01T10:00:00+07:00", 1500.01, "R")

	got := rules.Validate(slip, Expectations{Amount: 1500, ReceiverName: "R"}, now)
	assert.Equal(t, []string{"Amount is 1500.01, must be 1500.0"}, got)
}

func TestParseSlipTime(t *testing.T) {
	got, err := ParseSlipTime("2025-06-01 10:00:00")
	require.NoError(t, err)
	assert.True(t, got.Equal(time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)))

	got, err = ParseSlipTime("2025-06-01T10:00:00.123+07:00")
	require.NoError(t, err)
	assert.Equal(t, 123*time.Millisecond, time.Duration(got.Nanosecond()))

	_, err = ParseSlipTime("")
	assert.Error(t, err)
}

func TestRulesValidateNonFiniteAmount(t *testing.T) {
	rules := Rules{TimeDiffLimit: 10}
	now := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	for _, amount := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		slip := slipAt("2025-06-01T09:58:00+07:00", 1500, "นาย ก")
		violations := rules.Validate(slip, Expectations{Amount: amount, ReceiverName: "นาย ก"}, now)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0], "Amount is 1500")

		slip = slipAt("2025-06-01T09:58:00+07:00", amount, "นาย ก")
		violations = rules.Validate(slip, Expectations{Amount: 1500, ReceiverName: "นาย ก"}, now)
		require.Len(t, violations, 1)
		assert.Contains(t, violations[0], "must be 1500")
	}
}
