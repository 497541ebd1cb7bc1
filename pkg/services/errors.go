package services

import "fmt"

// Service error codes.
const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInvalidState    = "INVALID_STATE"
	CodeUnknownCommand  = "UNKNOWN_COMMAND"
	CodeInternal        = "INTERNAL_ERROR"
)

// ServiceError is a structured error from a backend service. Only Message
// reaches the hosted content.
type ServiceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ServiceError) Error() string {
	return e.Message
}

// NewServiceError creates a new ServiceError.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{Code: code, Message: message}
}

// PanicError reports a panic recovered inside a service's critical section.
type PanicError struct {
	Service string
	Value   interface{}
	Stack   []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("Internal error in %s service: %v", e.Service, e.Value)
}
