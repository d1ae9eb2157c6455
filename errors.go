package sds

import (
	"errors"
	"fmt"
)

// Kind classifies failures of the mesh, transform and collision engines.
type Kind int

const (
	// KindNotFound is returned when an expected element (face, edge, tetra,
	// cell or hash entry) does not exist.
	KindNotFound Kind = iota + 1
	// KindPrecondition is returned when arguments are inconsistent with each
	// other, e.g. a cell that is not a vertex of the given tetra.
	KindPrecondition
	// KindDegenerate is returned for zero volume or inverted geometry.
	KindDegenerate
	// KindTetrahedralize is returned when a region could not be re-tetrahedralized.
	KindTetrahedralize
	// KindInvariant is returned by mesh checks.
	KindInvariant
	// KindCollision is returned by the collision engine on inconsistent state.
	KindCollision
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindPrecondition:
		return "precondition"
	case KindDegenerate:
		return "degenerate"
	case KindTetrahedralize:
		return "tetrahedralize"
	case KindInvariant:
		return "invariant"
	case KindCollision:
		return "collision"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the error type returned by every engine in this module.
type Error struct {
	Kind Kind
	// Op is the operation that failed, i.e. "DivideTetra".
	Op  string
	Msg string
	// Err is an optional underlying error.
	Err error
}

// Errorf returns an *Error with a formatted message.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap returns an *Error of the given kind wrapping err.
// The kind of err is kept if it already is an *Error.
func Wrap(kind Kind, op string, err error) *Error {
	if k := KindOf(err); k != 0 {
		kind = k
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	msg := e.Msg
	if e.Err != nil {
		if msg == "" {
			msg = e.Err.Error()
		} else {
			msg += ": " + e.Err.Error()
		}
	}
	if e.Op == "" {
		return e.Kind.String() + ": " + msg
	}
	return e.Op + ": " + e.Kind.String() + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind. This allows
//  errors.Is(err, &sds.Error{Kind: sds.KindNotFound})
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
