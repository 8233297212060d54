package enums

import "fmt"

// IntentOutcome tracks the reconciled result of a payment intent.
type IntentOutcome string

const (
	IntentOutcomePending IntentOutcome = "pending"
	IntentOutcomePaid    IntentOutcome = "paid"
	IntentOutcomeFailed  IntentOutcome = "failed"
)

var validIntentOutcomes = []IntentOutcome{
	IntentOutcomePending,
	IntentOutcomePaid,
	IntentOutcomeFailed,
}

// String implements fmt.Stringer.
func (i IntentOutcome) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IntentOutcome.
func (i IntentOutcome) IsValid() bool {
	for _, candidate := range validIntentOutcomes {
		if candidate == i {
			return true
		}
	}
	return false
}

// IsSettled reports whether the intent has reached a terminal outcome.
func (i IntentOutcome) IsSettled() bool {
	return i == IntentOutcomePaid || i == IntentOutcomeFailed
}

// ParseIntentOutcome converts raw input into an IntentOutcome.
func ParseIntentOutcome(value string) (IntentOutcome, error) {
	for _, candidate := range validIntentOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent outcome %q", value)
}
