package expr

import "fmt"

// ErrorKind classifies a check failure.
type ErrorKind string

const (
	ErrUnboundName          ErrorKind = "UNBOUND_NAME"
	ErrFieldNotFound        ErrorKind = "FIELD_NOT_FOUND"
	ErrNotARecord           ErrorKind = "NOT_A_RECORD"
	ErrNotASequence         ErrorKind = "NOT_A_SEQUENCE"
	ErrNotAnOptional        ErrorKind = "NOT_AN_OPTIONAL"
	ErrTypeMismatch         ErrorKind = "TYPE_MISMATCH"
	ErrUnknownFunction      ErrorKind = "UNKNOWN_FUNCTION"
	ErrArityMismatch        ErrorKind = "ARITY_MISMATCH"
	ErrArgumentTypeMismatch ErrorKind = "ARGUMENT_TYPE_MISMATCH"
	ErrDuplicateKey         ErrorKind = "DUPLICATE_KEY"
	ErrHeterogeneousMapping ErrorKind = "HETEROGENEOUS_MAPPING"
	ErrUnknownType          ErrorKind = "UNKNOWN_TYPE"
)

// CheckError reports the first failure encountered while checking an
// expression. Path locates the offending node from the expression root.
type CheckError struct {
	Kind    ErrorKind
	Path    string
	Node    Node
	Message string
}

func (e *CheckError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("check failed: %s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("check failed at %s: %s: %s", e.Path, e.Kind, e.Message)
}
