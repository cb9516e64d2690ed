package goerror

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrRateLimited is the cause carried by every NewTooManyRequest error.
var ErrRateLimited = errors.New("rate limit exceeded")

// Type classifies errors into high-level buckets.
type Type int

const (
	TypeServer Type = iota
	TypeBusiness
	TypeValidation
)

var typeNames = [...]string{
	TypeServer:     "ERROR_TYPE_SERVER",
	TypeBusiness:   "ERROR_TYPE_BUSINESS",
	TypeValidation: "ERROR_TYPE_VALIDATION",
}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "ERROR_TYPE_UNKNOWN"
	}
	return typeNames[t]
}

// Code is a stable identifier that decides the HTTP status of an error.
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
)

type codeInfo struct {
	name   string
	status int
}

var codes = map[Code]codeInfo{
	CodeInternal:       {"ERROR_CODE_INTERNAL", http.StatusInternalServerError},
	CodeInvalidFormat:  {"ERROR_CODE_INVALID_FORMAT", http.StatusBadRequest},
	CodeInvalidInput:   {"ERROR_CODE_INVALID_INPUT", http.StatusUnprocessableEntity},
	CodeNotFound:       {"ERROR_CODE_NOT_FOUND", http.StatusNotFound},
	CodeConflict:       {"ERROR_CODE_CONFLICT", http.StatusConflict},
	CodeTooManyRequest: {"ERROR_CODE_TOO_MANY_REQUESTS", http.StatusTooManyRequests},
	CodeUnauthorized:   {"ERROR_CODE_UNAUTHORIZED", http.StatusUnauthorized},
	CodeForbidden:      {"ERROR_CODE_FORBIDDEN", http.StatusForbidden},
	CodeTimeout:        {"ERROR_CODE_TIMEOUT", http.StatusRequestTimeout},
}

func (c Code) info() codeInfo {
	if info, ok := codes[c]; ok {
		return info
	}
	return codes[CodeInternal]
}

func (c Code) String() string {
	return c.info().name
}

// Error is the structured error returned by usecases. msg is what the caller
// sees; err is the cause and only reaches logs.
type Error struct {
	err        error
	msg        string
	errType    Type
	code       Code
	retryAfter time.Duration
}

func (e *Error) Error() string {
	switch {
	case e.err != nil:
		return e.err.Error()
	case e.msg != "":
		return e.msg
	case e.errType == TypeServer:
		return "Internal error"
	default:
		return e.errType.String()
	}
}

// String is a verbose form for logs.
func (e *Error) String() string {
	return fmt.Sprintf("type=%s code=%s msg=%q cause=%v", e.errType, e.code, e.msg, e.err)
}

func (e *Error) Msg() string   { return e.msg }
func (e *Error) Type() Type    { return e.errType }
func (e *Error) Code() Code    { return e.code }
func (e *Error) Unwrap() error { return e.err }

// RetryAfter is how long the caller should wait before retrying. Zero means
// no hint.
func (e *Error) RetryAfter() time.Duration {
	return e.retryAfter
}

// StatusCode maps the error code to an HTTP status code.
func (e *Error) StatusCode() int {
	return e.code.info().status
}

// NewServer hides err behind a generic message.
func NewServer(err error) error {
	return &Error{err: err, msg: "Internal server error", errType: TypeServer, code: CodeInternal}
}

// NewServerMsg shows msg to the caller and keeps err for logs.
func NewServerMsg(err error, msg string) error {
	return &Error{err: err, msg: msg, errType: TypeServer, code: CodeInternal}
}

// NewBusiness reports a rule violation with the given code.
func NewBusiness(msg string, code Code) error {
	return &Error{msg: msg, errType: TypeBusiness, code: code}
}

// NewTooManyRequest reports an exceeded limit. retryAfter is rounded up to
// whole seconds when rendered.
func NewTooManyRequest(msg string, retryAfter time.Duration) error {
	return &Error{
		err:        ErrRateLimited,
		msg:        msg,
		errType:    TypeBusiness,
		code:       CodeTooManyRequest,
		retryAfter: retryAfter,
	}
}

// NewInvalidFormat reports a malformed request. The first msg, if any,
// replaces the default message.
func NewInvalidFormat(msgs ...string) error {
	msg := "Invalid request body"
	if len(msgs) > 0 {
		msg = msgs[0]
	}
	return &Error{msg: msg, errType: TypeValidation, code: CodeInvalidFormat}
}
