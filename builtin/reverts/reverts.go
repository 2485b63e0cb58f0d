// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package reverts

import (
	"errors"
	"fmt"
)

// Kind classifies why an operation was rejected.
type Kind uint8

const (
	// KindAuthorization the caller lacks the required identity or role.
	KindAuthorization Kind = iota + 1
	// KindInvariant an argument violates a domain invariant.
	KindInvariant
	// KindConflict the operation conflicts with the current state.
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindAuthorization:
		return "AuthorizationError"
	case KindInvariant:
		return "InvariantViolation"
	case KindConflict:
		return "StateConflict"
	default:
		return "Unknown"
	}
}

// Error is a rejection of a whole operation. No state change survives it.
type Error struct {
	kind    Kind
	message string
}

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, message: fmt.Sprintf(format, args...)}
}

// Unauthorized creates an AuthorizationError.
func Unauthorized(format string, args ...any) *Error {
	return newError(KindAuthorization, format, args...)
}

// Invalid creates an InvariantViolation.
func Invalid(format string, args ...any) *Error {
	return newError(KindInvariant, format, args...)
}

// Conflict creates a StateConflict.
func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func (e *Error) Error() string {
	return e.message
}

func (e *Error) Kind() Kind {
	return e.kind
}

// IsRevertErr reports whether err is, or wraps, a rejection.
func IsRevertErr(err any) bool {
	if err == nil {
		return false
	}
	e, ok := err.(error)
	if !ok {
		return false
	}
	var re *Error
	return errors.As(e, &re)
}

// IsKind reports whether err is a rejection of the given kind.
func IsKind(err error, kind Kind) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.kind == kind
	}
	return false
}

// KindOf returns the kind of a rejection, zero for other errors.
func KindOf(err error) Kind {
	var re *Error
	if errors.As(err, &re) {
		return re.kind
	}
	return 0
}
