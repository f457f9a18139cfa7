package seegadto

// ErrorCode classifies failures surfaced to API callers.
type ErrorCode string

const (
	CodeNotFound      ErrorCode = "NOT_FOUND"
	CodeUnauthorized  ErrorCode = "UNAUTHORIZED"
	CodeIllegalAction ErrorCode = "ILLEGAL_ACTION"
	CodeNotFinished   ErrorCode = "NOT_FINISHED"
)

// DomainError is the public error shape of the game service. Message is
// already rendered for end users; Code drives transport status mapping.
type DomainError struct {
	Code    ErrorCode
	Message string
}

func (e *DomainError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Code != "" {
		return string(e.Code)
	}
	return "seega service error"
}

func NewError(code ErrorCode, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}
