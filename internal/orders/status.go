package orders

type Status string

const (
	StatusPending       Status = "PENDING"
	StatusPaid          Status = "PAID"
	StatusPaymentFailed Status = "PAYMENT_FAILED"
	StatusCancelled     Status = "CANCELLED"
	StatusRefunded      Status = "REFUNDED"
)

// validNext is the complete transition table over the closed set of
// statuses. Any (from, to) pair absent here is rejected; there is no
// fall-through case.
//
// PAYMENT_FAILED -> PENDING is the payment retry path.
// PAYMENT_FAILED -> CANCELLED behaves like a PENDING cancellation:
// nothing was consumed, so nothing is refunded or returned.
var validNext = map[Status]map[Status]bool{
	StatusPending:       {StatusPaid: true, StatusPaymentFailed: true, StatusCancelled: true},
	StatusPaymentFailed: {StatusPending: true, StatusCancelled: true},
	StatusPaid:          {StatusRefunded: true},
	StatusCancelled:     {},
	StatusRefunded:      {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no further transition is allowed from s.
func (s Status) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}
