package enums

import "fmt"

// PaymentPurpose identifies which payment a given intent settles. A custom
// cake order carries two independent intents over its lifetime, so the
// reconciler needs more than the aggregate reference to know what is paid.
type PaymentPurpose string

const (
	PaymentPurposeOrder       PaymentPurpose = "order"
	PaymentPurposeDownpayment PaymentPurpose = "downpayment"
	PaymentPurposeBalance     PaymentPurpose = "balance"
)

var validPaymentPurposes = []PaymentPurpose{
	PaymentPurposeOrder,
	PaymentPurposeDownpayment,
	PaymentPurposeBalance,
}

// String implements fmt.Stringer.
func (p PaymentPurpose) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentPurpose.
func (p PaymentPurpose) IsValid() bool {
	for _, candidate := range validPaymentPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentPurpose converts raw input into a PaymentPurpose.
func ParsePaymentPurpose(value string) (PaymentPurpose, error) {
	for _, candidate := range validPaymentPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment purpose %q", value)
}
