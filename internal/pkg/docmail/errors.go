package docmail

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is returned when a submission is incomplete before any remote call is made.
	ErrValidation = errors.New("docmail: validation failed")
	// ErrPrecondition is returned when a session-bound call is made without a mailing GUID.
	ErrPrecondition = errors.New("docmail: call requires an active session")
	// ErrTransport is returned when the transport produced no response envelope.
	ErrTransport = errors.New("docmail: transport failure")
	// ErrProtocol is returned when the response envelope lacks the expected result field.
	ErrProtocol = errors.New("docmail: protocol violation")
	// ErrAddressRejected is returned when AddAddress does not report success.
	ErrAddressRejected = errors.New("docmail: address was not successfully added")
	// ErrNotAccepted is returned by SendFile and SendData when a step reported no success.
	ErrNotAccepted = errors.New("docmail: mailing was not accepted")
	// ErrUnknownField is returned when setting or resetting a field an entity does not declare.
	ErrUnknownField = errors.New("docmail: unknown field")
	// ErrInvalidValue is returned when a field is set with a value of the wrong type.
	ErrInvalidValue = errors.New("docmail: invalid field value")
)

// RemoteServiceError is an error reported by Docmail inside a call result.
type RemoteServiceError struct {
	// Code is the "Error code" field.
	Code string
	// Name is the "Error code string" field.
	Name string
	// Message is the "Error message" field.
	Message string
}

func (e *RemoteServiceError) Error() string {
	return e.Code + " " + e.Name + " - " + e.Message
}

// PollTimeoutError reports that a mailing did not reach the expected status.
type PollTimeoutError struct {
	Expected string
	Actual   string
}

func (e *PollTimeoutError) Error() string {
	return fmt.Sprintf("docmail: expected status %q not reached, current status %q", e.Expected, e.Actual)
}

// RollbackError is returned when deleting a half-submitted mailing failed.
//
// Cause is the failure that triggered the rollback and is nil when the
// workflow stopped on a step that reported no success without raising an error.
type RollbackError struct {
	MailingGUID string
	Cause       error
	Err         error
}

func (e *RollbackError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("docmail: rollback of mailing %s failed: %v", e.MailingGUID, e.Err)
	}
	return fmt.Sprintf("docmail: rollback of mailing %s failed: %v (cause: %v)", e.MailingGUID, e.Err, e.Cause)
}

// Unwrap exposes both the delete failure and the original cause to errors.Is/As.
func (e *RollbackError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}
