package enums

import "fmt"

// FinalPaymentStatus tracks the remaining-balance payment of a custom cake
// order, independent of the downpayment flag.
type FinalPaymentStatus string

const (
	FinalPaymentPending FinalPaymentStatus = "pending"
	FinalPaymentPaid    FinalPaymentStatus = "paid"
)

var validFinalPaymentStatuses = []FinalPaymentStatus{
	FinalPaymentPending,
	FinalPaymentPaid,
}

// String implements fmt.Stringer.
func (f FinalPaymentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FinalPaymentStatus.
func (f FinalPaymentStatus) IsValid() bool {
	for _, candidate := range validFinalPaymentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFinalPaymentStatus converts raw input into a FinalPaymentStatus.
func ParseFinalPaymentStatus(value string) (FinalPaymentStatus, error) {
	for _, candidate := range validFinalPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid final payment status %q", value)
}
