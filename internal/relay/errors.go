package relay

// Error codes reported to clients over the wire.
const (
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeUnknownType    = "unknown_type"
	ErrCodeAuthFailed     = "auth_failed"
	ErrCodeValidation     = "validation_error"
)

// RelayError wraps a code and human-readable message. Errors are scoped to the
// connection that caused them and never close it.
type RelayError struct {
	Code    string
	Message string
}

func (e *RelayError) Error() string {
	return e.Message
}

func relayError(code, msg string) *RelayError {
	return &RelayError{Code: code, Message: msg}
}
