package order

// Status represents the fulfillment status of an order
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusDispatched Status = "DISPATCHED"
	StatusDelivered  Status = "DELIVERED"
	StatusCancelled  Status = "CANCELLED"
)

// statusRank orders the forward fulfillment chain
// PENDING -> PROCESSING -> DISPATCHED -> DELIVERED
var statusRank = map[Status]int{
	StatusPending:    0,
	StatusProcessing: 1,
	StatusDispatched: 2,
	StatusDelivered:  3,
}

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusDispatched, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// IsTerminal returns true if no further transition is allowed from this status
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo checks if the status can transition to the target status.
// Within the fulfillment chain only adjacent moves are legal, in either
// direction: an admin may advance an order one step or revert it one step.
// CANCELLED is reachable from every non-terminal status and is itself terminal.
func (s Status) CanTransitionTo(target Status) bool {
	if !s.IsValid() || !target.IsValid() || s == target {
		return false
	}
	if s.IsTerminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[target]
	if !ok {
		return false
	}
	diff := to - from
	return diff == 1 || diff == -1
}

// IsRevert returns true if moving to target would step the order one status
// backwards along the fulfillment chain
func (s Status) IsRevert(target Status) bool {
	from, okFrom := statusRank[s]
	to, okTo := statusRank[target]
	return okFrom && okTo && to == from-1
}
