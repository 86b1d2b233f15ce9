// Package goerror carries the error classification shared by usecases and
// transports. An *Error knows its Code, the message safe to show callers and,
// for validation failures, the offending fields.
package goerror

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("resource not found")
	ErrConflict = errors.New("resource conflict")
)

type Code int

const (
	CodeInternal Code = iota
	CodeInvalidFormat
	CodeInvalidInput
	CodeNotFound
	CodeConflict
	CodeTooManyRequest
	CodeUnauthorized
	CodeForbidden
	CodeTimeout
	// CodeUpstream is a rejection or outage of a remote dependency such as Docmail.
	CodeUpstream
	CodeUnavailable
)

var codeTable = map[Code]struct {
	name   string
	status int
}{
	CodeInternal:       {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat:  {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:   {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeNotFound:       {"ERROR_CODE_NOT_FOUND", http.StatusNotFound},
	CodeConflict:       {"ERROR_CODE_CONFLICT", http.StatusConflict},
	CodeTooManyRequest: {"ERROR_CODE_TOO_MANY_REQUESTS", http.StatusTooManyRequests},
	CodeUnauthorized:   {"ERROR_CODE_UNAUTHORIZED", http.StatusUnauthorized},
	CodeForbidden:      {"ERROR_CODE_FORBIDDEN", http.StatusForbidden},
	CodeTimeout:        {"ERROR_CODE_TIMEOUT", http.StatusRequestTimeout},
	CodeUpstream:       {"ERROR_CODE_UPSTREAM", http.StatusBadGateway},
	CodeUnavailable:    {"ERROR_CODE_UNAVAILABLE", http.StatusServiceUnavailable},
}

func (c Code) String() string {
	if m, ok := codeTable[c]; ok {
		return m.name
	}
	return codeTable[CodeInternal].name
}

// HTTPStatus maps the code onto a response status; unknown codes are 500.
func (c Code) HTTPStatus() int {
	if m, ok := codeTable[c]; ok {
		return m.status
	}
	return http.StatusInternalServerError
}

type Error struct {
	cause  error
	msg    string
	code   Code
	fields map[string]string
}

func (e *Error) Error() string {
	switch {
	case e.cause != nil:
		return e.cause.Error()
	case e.msg != "":
		return e.msg
	default:
		return e.code.String()
	}
}

// String is the verbose form meant for logs.
func (e *Error) String() string {
	return fmt.Sprintf("code=%s msg=%q cause=%v", e.code, e.msg, e.cause)
}

// Msg is the message shown to API callers.
func (e *Error) Msg() string { return e.msg }

func (e *Error) Code() Code { return e.code }

// Fields holds per-field validation messages, keyed by field name.
func (e *Error) Fields() map[string]string { return e.fields }

func (e *Error) Unwrap() error { return e.cause }

func (e *Error) StatusCode() int { return e.code.HTTPStatus() }

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr, true
	}
	return nil, false
}

// CodeOf reports the code of err, CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	if gerr, ok := As(err); ok {
		return gerr.code
	}
	return CodeInternal
}

// NewServer hides err behind a generic message.
func NewServer(err error) error {
	return &Error{cause: err, msg: "Internal server error", code: CodeInternal}
}

func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, code: code}
}

// NewUpstream keeps err for logs while msg is what the caller sees.
func NewUpstream(err error, msg string) error {
	return &Error{cause: err, msg: msg, code: CodeUpstream}
}

// NewInvalidInput wraps a validator error, or builds one from field/message
// pairs when err is nil. An odd number of pairs is a programming error and
// degrades to an invalid-format error.
func NewInvalidInput(err error, kv ...string) error {
	if err != nil {
		e := &Error{cause: err, msg: "Validation error", code: CodeInvalidInput}
		var fe interface{ Fields() map[string]string }
		if errors.As(err, &fe) {
			e.fields = fe.Fields()
		}
		return e
	}
	if len(kv)%2 != 0 {
		return NewInvalidFormat()
	}

	fields := make(map[string]string, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		fields[kv[i]] = kv[i+1]
	}
	return &Error{msg: "Validation error", code: CodeInvalidInput, fields: fields}
}

func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 && msgs[0] != "" {
		msg = msgs[0]
	}
	return &Error{msg: msg, code: CodeInvalidFormat}
}
