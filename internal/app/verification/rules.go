package verification

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"clipbooking/internal/domain"
)

// slipZone is the zone slips are issued in (UTC+7); it is used regardless of
// the server locale.
var slipZone = time.FixedZone("ICT", 7*60*60)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// Expectations are the values a verified slip must agree with.
type Expectations struct {
	Amount       float64
	DeclaredDate string
	ReceiverName string
}

// Rules holds the business rules applied to a slip the provider accepted.
type Rules struct {
	TimeDiffLimit int
}

// Validate evaluates every rule and returns all violations, in rule order.
// An empty result means the slip is valid.
func (r Rules) Validate(slip domain.SlipData, expected Expectations, now time.Time) []string {
	var violations []string

	if v := r.checkTransactionTime(slip.Date, now); v != "" {
		violations = append(violations, v)
	}

	if v := checkAmount(slip.Amount.Amount, expected.Amount); v != "" {
		violations = append(violations, v)
	}

	receiver := slip.Receiver.Account.Name.TH
	if receiver != expected.ReceiverName {
		violations = append(violations, fmt.Sprintf("Receiver name is '%s', must be '%s'", receiver, expected.ReceiverName))
	}

	return violations
}

func (r Rules) checkTransactionTime(raw string, now time.Time) string {
	slipTime, err := ParseSlipTime(raw)
	if err != nil {
		return fmt.Sprintf("Payment time '%s' is not a valid timestamp", raw)
	}
	diff := math.Abs(slipTime.In(slipZone).Sub(now.In(slipZone)).Minutes())
	if diff > float64(r.TimeDiffLimit) {
		return fmt.Sprintf("Payment time difference is %.1f minutes, must be within %d minutes", diff, r.TimeDiffLimit)
	}
	return ""
}

// checkAmount compares amounts exactly. Values that have no decimal form
// (NaN, Inf) never match.
func checkAmount(gotAmount, wantAmount float64) string {
	if !isFinite(gotAmount) || !isFinite(wantAmount) {
		return fmt.Sprintf("Amount is %v, must be %v", gotAmount, wantAmount)
	}
	got := decimal.NewFromFloat(gotAmount)
	want := decimal.NewFromFloat(wantAmount)
	if !got.Equal(want) {
		return fmt.Sprintf("Amount is %s, must be %s", formatAmount(got), formatAmount(want))
	}
	return ""
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// ParseSlipTime reads a provider timestamp. Timestamps without an offset are
// taken to be UTC+7.
func ParseSlipTime(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, raw, slipZone); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized slip timestamp %q", raw)
}

// formatAmount always shows a fractional part: 1400 -> "1400.0".
func formatAmount(d decimal.Decimal) string {
	s := d.String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
