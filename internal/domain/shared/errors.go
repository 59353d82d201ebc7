package shared

// DomainError is the error type crossing the domain boundary. Code is a
// stable machine-readable identifier; Message is safe to show to callers.
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// ErrNotFound is returned by repositories when a lookup misses.
var ErrNotFound = NewDomainError("NOT_FOUND", "Resource not found")
