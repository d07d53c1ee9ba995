package service

import "errors"

var (
	ErrGroupNotFound  = errors.New("group not found")
	ErrNotAuthorized  = errors.New("not authorized")
	ErrSelfEscalation = errors.New("self escalation")
	ErrAlreadyExists  = errors.New("already exists")
	ErrUserNotFound   = errors.New("user not found")
	ErrPersistence    = errors.New("persistence")
)

// ServiceError wraps a sentinel error with a code and a human-readable
// message the chat layer can relay verbatim.
type ServiceError struct {
	Err     error
	Code    string
	Message string
}

func (e *ServiceError) Error() string { return e.Message }
func (e *ServiceError) Unwrap() error { return e.Err }

// NewError creates a ServiceError wrapping the given sentinel.
func NewError(sentinel error, code, message string) *ServiceError {
	return &ServiceError{Err: sentinel, Code: code, Message: message}
}

// Convenience constructors for the mutation error taxonomy.

func GroupNotFound(message string) *ServiceError {
	return NewError(ErrGroupNotFound, "GROUP_NOT_FOUND", message)
}

func NotAuthorized(message string) *ServiceError {
	return NewError(ErrNotAuthorized, "NOT_AUTHORIZED", message)
}

func SelfEscalationDenied(message string) *ServiceError {
	return NewError(ErrSelfEscalation, "SELF_ESCALATION_DENIED", message)
}

func AlreadyExists(message string) *ServiceError {
	return NewError(ErrAlreadyExists, "ALREADY_EXISTS", message)
}

func UserNotFound(message string) *ServiceError {
	return NewError(ErrUserNotFound, "USER_NOT_FOUND", message)
}

func PersistenceFailure(message string) *ServiceError {
	return NewError(ErrPersistence, "PERSISTENCE_FAILURE", message)
}

// Relay converts a mutation outcome into the (ok, message) pair the chat
// layer forwards to the operator. A duplicate grant is reported as a
// non-fatal notice rather than a failure.
func Relay(err error, successMessage string) (bool, string) {
	if err == nil {
		return true, successMessage
	}
	if errors.Is(err, ErrAlreadyExists) {
		return true, err.Error()
	}
	return false, err.Error()
}
