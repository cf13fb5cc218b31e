package shared

// DomainError is an order-domain rule violation. The code travels up
// to the HTTP layer, where it is mapped onto an API error code and a
// status; the message is safe to show to the back-office user.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Sentinels for the rules checked all over the order aggregate. Rules
// with a single call site use NewDomainError inline instead.
var (
	ErrNotFound       = NewDomainError("NOT_FOUND", "Resource not found")
	ErrImmutableOrder = NewDomainError("IMMUTABLE_ORDER", "Order can no longer be modified")
	ErrMissingAddress = NewDomainError("MISSING_ADDRESS", "Order has no shipping address")
)
