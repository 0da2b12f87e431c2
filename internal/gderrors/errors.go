// Package gderrors defines graphdb's error taxonomy (spec §7): a closed set
// of kinds, not a type hierarchy, so callers can switch on Kind rather than
// on concrete Go types.
package gderrors

import "fmt"

// Kind classifies an error per spec §7.
type Kind string

const (
	KindNotFound            Kind = "not_found"
	KindConstraintViolation Kind = "constraint_violation"
	KindParseError          Kind = "parse_error"
	KindExecutionError      Kind = "execution_error"
	KindTransactionError    Kind = "transaction_error"
	KindStorageError        Kind = "storage_error"
)

// Error is graphdb's single error type, carrying a Kind plus structured
// fields so the message always names the offending identifiers.
type Error struct {
	Kind     Kind
	Message  string
	Label    string
	Property string
	ID       int64
	Position int
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound builds a NotFound error for a missing node or relationship id.
func NotFound(kind string, id int64) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("%s %d not found", kind, id), ID: id}
}

// ConstraintViolation builds a ConstraintViolation error.
func ConstraintViolation(label, prop, message string) *Error {
	return &Error{Kind: KindConstraintViolation, Message: message, Label: label, Property: prop}
}

// ParseErrorAt builds a ParseError carrying a position hint.
func ParseErrorAt(pos int, message string) *Error {
	return &Error{Kind: KindParseError, Message: message, Position: pos}
}

// ExecutionError builds an ExecutionError for a semantic failure during
// Cypher execution.
func ExecutionError(message string) *Error {
	return &Error{Kind: KindExecutionError, Message: message}
}

// TransactionError builds a TransactionError for begin/commit/rollback misuse.
func TransactionError(message string) *Error {
	return &Error{Kind: KindTransactionError, Message: message}
}

// StorageError wraps an underlying storage-layer failure.
func StorageError(message string, err error) *Error {
	return &Error{Kind: KindStorageError, Message: message, Err: err}
}

// Is reports whether err carries the given Kind, for use with errors.Is
// against a sentinel built from the same Kind with no other fields.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinel returns a bare *Error carrying only a Kind, for errors.Is checks:
// errors.Is(err, gderrors.Sentinel(gderrors.KindNotFound)).
func Sentinel(k Kind) *Error { return &Error{Kind: k} }
