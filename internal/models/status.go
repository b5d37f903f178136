package models

type OrderStatus string

const (
	StatusPendingPayment   OrderStatus = "pending-payment"
	StatusPaymentVerified  OrderStatus = "payment-verified"
	StatusMaterialArranged OrderStatus = "material-arranged"
	StatusInProgress       OrderStatus = "in-progress"
	StatusQualityCheck     OrderStatus = "quality-check"
	StatusReadyDispatch    OrderStatus = "ready-dispatch"
	StatusDispatched       OrderStatus = "dispatched"
	StatusDelivered        OrderStatus = "delivered"
	StatusCancelled        OrderStatus = "cancelled"
	StatusRefunded         OrderStatus = "refunded"
)

// forwardOrder is the production sequence an order walks from checkout to
// delivery. Index position doubles as the skip-distance check for admin
// overrides.
var forwardOrder = []OrderStatus{
	StatusPendingPayment,
	StatusPaymentVerified,
	StatusMaterialArranged,
	StatusInProgress,
	StatusQualityCheck,
	StatusReadyDispatch,
	StatusDispatched,
	StatusDelivered,
}

// transitions is the single source of truth for legal single-step moves.
// Cancellation and refund are reachable from every non-terminal state;
// terminal states allow nothing.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPendingPayment:   {StatusPaymentVerified, StatusCancelled, StatusRefunded},
	StatusPaymentVerified:  {StatusMaterialArranged, StatusCancelled, StatusRefunded},
	StatusMaterialArranged: {StatusInProgress, StatusCancelled, StatusRefunded},
	StatusInProgress:       {StatusQualityCheck, StatusCancelled, StatusRefunded},
	StatusQualityCheck:     {StatusReadyDispatch, StatusCancelled, StatusRefunded},
	StatusReadyDispatch:    {StatusDispatched, StatusCancelled, StatusRefunded},
	StatusDispatched:       {StatusDelivered, StatusCancelled, StatusRefunded},
	StatusDelivered:        {},
	StatusCancelled:        {},
	StatusRefunded:         {},
}

func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// Terminal reports whether no further status transition may leave s.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusDelivered, StatusCancelled, StatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransition reports whether from -> to is a legal single-step move.
func CanTransition(from, to OrderStatus) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the legal next states from a given state.
func AllowedTransitions(from OrderStatus) []OrderStatus {
	allowed := transitions[from]
	out := make([]OrderStatus, len(allowed))
	copy(out, allowed)
	return out
}

// ForwardIndex returns the position of s in the production sequence, or -1
// for side-branch states.
func ForwardIndex(s OrderStatus) int {
	for i, status := range forwardOrder {
		if status == s {
			return i
		}
	}
	return -1
}

// CanOverride reports whether an admin override may jump from -> to: both
// states must be on the forward path and the move must go forward.
func CanOverride(from, to OrderStatus) bool {
	fromIdx, toIdx := ForwardIndex(from), ForwardIndex(to)
	if fromIdx < 0 || toIdx < 0 {
		return false
	}
	return toIdx > fromIdx
}
