package customcakes

import (
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// nextCakeStatus is the staff-driven production path. Triage, pricing,
// downpayment settlement, and cancellation move through their own
// operations, not this table.
var nextCakeStatus = map[enums.CustomCakeStatus]enums.CustomCakeStatus{
	enums.CakeStatusDownpaymentPaid: enums.CakeStatusInProgress,
	enums.CakeStatusInProgress:      enums.CakeStatusReadyForPickup,
	enums.CakeStatusReadyForPickup:  enums.CakeStatusCompleted,
}

// NextStatus returns the transition staff may apply from the given state.
func NextStatus(current enums.CustomCakeStatus) (enums.CustomCakeStatus, bool) {
	next, ok := nextCakeStatus[current]
	return next, ok
}

func cakeTransitionError(current enums.CustomCakeStatus, attempted string) error {
	allowed := make([]string, 0, 2)
	if next, ok := nextCakeStatus[current]; ok {
		allowed = append(allowed, next.String())
	}
	if !current.IsTerminal() {
		allowed = append(allowed, enums.CakeStatusCancelled.String())
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed").
		WithDetails(map[string]any{
			"current":   current.String(),
			"attempted": attempted,
			"allowed":   allowed,
		})
}
