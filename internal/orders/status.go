package orders

type Status string

const (
	StatusPending    Status = "PENDING"
	StatusConfirmed  Status = "CONFIRMED"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:    {StatusConfirmed: true, StatusCancelled: true},
	StatusConfirmed:  {StatusProcessing: true, StatusCancelled: true},
	StatusProcessing: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:    {StatusDelivered: true, StatusCancelled: true},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Terminal reports whether no transition leaves s.
func Terminal(s Status) bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

// Known reports whether s is a status this service recognizes.
func Known(s Status) bool {
	_, ok := validNext[s]
	return ok
}

// StockAffecting reports whether an order in s has had a deduction emitted
// for it, meaning a cancel must emit a restore.
func StockAffecting(s Status) bool {
	switch s {
	case StatusConfirmed, StatusProcessing, StatusShipped:
		return true
	}
	return false
}
