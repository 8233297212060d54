package orders

import (
	"github.com/delacruzbakes/bakeshop-backend/pkg/enums"
	pkgerrors "github.com/delacruzbakes/bakeshop-backend/pkg/errors"
)

// nextStatus is the single legal staff-driven transition per state.
// pending_payment -> processing is reserved to the payment reconciler and is
// deliberately absent here.
var nextStatus = map[enums.OrderStatus]enums.OrderStatus{
	enums.OrderStatusPending:    enums.OrderStatusProcessing,
	enums.OrderStatusProcessing: enums.OrderStatusShipped,
	enums.OrderStatusShipped:    enums.OrderStatusDelivered,
}

// NextStatus returns the transition staff may apply from the given state.
func NextStatus(current enums.OrderStatus) (enums.OrderStatus, bool) {
	next, ok := nextStatus[current]
	return next, ok
}

// transitionError reports a rejected transition with the attempted move and
// what would have been allowed from the current state.
func transitionError(current enums.OrderStatus, attempted string) error {
	allowed := make([]string, 0, 2)
	if next, ok := nextStatus[current]; ok {
		allowed = append(allowed, next.String())
	}
	if !current.IsTerminal() {
		allowed = append(allowed, enums.OrderStatusCancelled.String())
	}
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, "status transition disallowed").
		WithDetails(map[string]any{
			"current":   current.String(),
			"attempted": attempted,
			"allowed":   allowed,
		})
}
