// Package apperr defines the closed set of error kinds surfaced by the ledger,
// the validator and the boundaries built on top of them.
package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
)

// Code identifies an error kind. The set is closed; callers switch on it.
type Code string

const (
	// CodeMissingField indicates a required envelope or payload field is absent.
	CodeMissingField Code = "E_MISSING_FIELD"

	// CodeEmptyBody indicates a body, reason or summary is blank.
	CodeEmptyBody Code = "E_EMPTY_BODY"

	// CodeRefNotFound indicates a referenced memory or commitment does not exist.
	CodeRefNotFound Code = "E_REF_NOT_FOUND"

	// CodeAlreadyClosed indicates the commitment is in a terminal state.
	CodeAlreadyClosed Code = "E_ALREADY_CLOSED"

	// CodeAlreadyClaimed indicates the commitment is owned by another actor.
	CodeAlreadyClaimed Code = "E_ALREADY_CLAIMED"

	// CodeNotOwner indicates the actor does not own the commitment.
	CodeNotOwner Code = "E_NOT_OWNER"

	// CodeDuplicateID indicates the operation id is already in the ledger.
	CodeDuplicateID Code = "E_DUPLICATE_ID"

	// CodeDuplicateSourceKey indicates the idempotency key is already in the ledger.
	CodeDuplicateSourceKey Code = "E_DUPLICATE_SOURCE_KEY"

	// CodePermissionDenied indicates the genesis permissions deny the operation.
	CodePermissionDenied Code = "E_PERMISSION_DENIED"

	// CodeConstraintViolated indicates a genesis constraint is not satisfied.
	CodeConstraintViolated Code = "E_CONSTRAINT_VIOLATED"

	// CodeInvalidOp indicates an unknown kind or an illegal payload shape.
	CodeInvalidOp Code = "E_INVALID_OP"

	// CodeWorkspaceLocked indicates a live process holds the workspace lock.
	CodeWorkspaceLocked Code = "E_WORKSPACE_LOCKED"

	// CodeLedgerCorrupt indicates a ledger line could not be decoded.
	CodeLedgerCorrupt Code = "E_LEDGER_CORRUPT"

	// Boundary codes. The core never returns these.
	CodeNoWorkspace     Code = "E_NO_WORKSPACE"
	CodeWorkspaceExists Code = "E_WORKSPACE_EXISTS"
	CodeUnauthorized    Code = "E_UNAUTHORIZED"
	CodeForbidden       Code = "E_FORBIDDEN"
	CodeNotFound        Code = "E_NOT_FOUND"
	CodeInternal        Code = "E_INTERNAL"
)

// Error is a structured rejection: one code, a human message and
// machine-readable context (field name, offending value, owner, ...).
type Error struct {
	Code    Code
	Message string
	Details map[string]any
}

// New creates an Error with no details.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// With returns the error with an extra detail attached.
func (e *Error) With(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Detail returns a single detail value, or nil.
func (e *Error) Detail(key string) any {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// MarshalJSON flattens the error as {"error": code, "message": msg, ...details}.
// Detail keys never override error or message.
func (e *Error) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Details)+2)
	for k, v := range e.Details {
		out[k] = v
	}
	out["error"] = string(e.Code)
	out["message"] = e.Message
	return json.Marshal(out)
}

// DetailKeys returns the detail keys in sorted order.
func (e *Error) DetailKeys() []string {
	keys := make([]string, 0, len(e.Details))
	for k := range e.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// As extracts an *Error from err, following wrapped errors.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	ae, ok := As(err)
	return ok && ae.Code == code
}

// CodeOf returns the code carried by err, or CodeInternal for foreign errors.
func CodeOf(err error) Code {
	if ae, ok := As(err); ok {
		return ae.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status an HTTP boundary reports.
func HTTPStatus(code Code) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePermissionDenied, CodeConstraintViolated, CodeForbidden:
		return http.StatusForbidden
	case CodeRefNotFound, CodeNotFound, CodeNoWorkspace:
		return http.StatusNotFound
	case CodeAlreadyClosed, CodeAlreadyClaimed, CodeDuplicateID, CodeDuplicateSourceKey,
		CodeWorkspaceLocked, CodeWorkspaceExists:
		return http.StatusConflict
	case CodeNotOwner:
		return http.StatusForbidden
	case CodeMissingField, CodeEmptyBody, CodeInvalidOp:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
