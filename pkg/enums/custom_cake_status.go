package enums

import "fmt"

// CustomCakeStatus tracks the staff-gated lifecycle of a custom cake order.
// The spellings are part of the contract with the staff dashboards and must
// not be changed.
type CustomCakeStatus string

const (
	CakeStatusPendingReview       CustomCakeStatus = "Pending Review"
	CakeStatusFeasible            CustomCakeStatus = "Feasible"
	CakeStatusNotFeasible         CustomCakeStatus = "Not Feasible"
	CakeStatusReadyForDownpayment CustomCakeStatus = "Ready for Downpayment"
	CakeStatusDownpaymentPaid     CustomCakeStatus = "Downpayment Paid"
	CakeStatusInProgress          CustomCakeStatus = "In Progress"
	CakeStatusReadyForPickup      CustomCakeStatus = "Ready for Pickup/Delivery"
	CakeStatusCompleted           CustomCakeStatus = "Completed"
	CakeStatusCancelled           CustomCakeStatus = "Cancelled"
)

var validCustomCakeStatuses = []CustomCakeStatus{
	CakeStatusPendingReview,
	CakeStatusFeasible,
	CakeStatusNotFeasible,
	CakeStatusReadyForDownpayment,
	CakeStatusDownpaymentPaid,
	CakeStatusInProgress,
	CakeStatusReadyForPickup,
	CakeStatusCompleted,
	CakeStatusCancelled,
}

// String implements fmt.Stringer.
func (c CustomCakeStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CustomCakeStatus.
func (c CustomCakeStatus) IsValid() bool {
	for _, candidate := range validCustomCakeStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (c CustomCakeStatus) IsTerminal() bool {
	switch c {
	case CakeStatusCompleted, CakeStatusCancelled, CakeStatusNotFeasible:
		return true
	default:
		return false
	}
}

// ParseCustomCakeStatus converts raw input into a CustomCakeStatus.
func ParseCustomCakeStatus(value string) (CustomCakeStatus, error) {
	for _, candidate := range validCustomCakeStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid custom cake status %q", value)
}
