package beet

import (
	"errors"
	"strings"
)

// Error is the beet error domain type.
//
// Errors coming from beet components should be able to be inspected as
// ([errors.As]) an *Error at some point in the error chain.
//
// Implementers should create an Error at the system boundary (e.g. when
// reading a file or decoding content) and intermediate layers should not wrap
// in another Error except to add additional [ErrorKind] information. That is
// to say, use [fmt.Errorf] with a "%w" verb in preference to creating a
// containing Error.
type Error struct {
	Inner   error
	Kind    ErrorKind
	Message string
	Op      string
}

var (
	_ error                       = (*Error)(nil)
	_ interface{ Is(error) bool } = (*Error)(nil)
	_ interface{ Unwrap() error } = (*Error)(nil)
)

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(" ")
	}
	b.WriteString("[")
	switch e.Kind {
	case ErrIO,
		ErrFormat,
		ErrConflict,
		ErrInvalid:
		b.WriteString(string(e.Kind))
	default:
		b.WriteString("???")
	}
	b.WriteString("]: ")
	if e.Message != "" {
		b.WriteString(e.Message)
	}
	if e.Message != "" && e.Inner != nil {
		b.WriteString(": ")
	}
	if e.Op == "" && e.Message == "" {
		b.Reset()
	}
	if e.Inner != nil {
		b.WriteString(e.Inner.Error())
	}
	return b.String()
}

// Is enables [errors.Is].
//
// It compares the error kind. Callers should compare against a declared
// [ErrorKind] over a specific error.
func (e *Error) Is(kind error) bool {
	return errors.Is(e.Kind, kind)
}

// Unwrap enables [errors.Unwrap].
func (e *Error) Unwrap() error {
	return e.Inner
}

// ErrorKind represents classes of errors to be checked against.
type ErrorKind string

// Defined error kinds.
var (
	ErrIO       = ErrorKind("io")       // unreadable or unwritable storage
	ErrFormat   = ErrorKind("format")   // malformed file content
	ErrConflict = ErrorKind("conflict") // conflicting action
	ErrInvalid  = ErrorKind("invalid")  // invalid request
)

// Error implements error.
func (e ErrorKind) Error() string {
	return string(e)
}

// ErrDrop signals that the entry a bind hook or merge side effect is running
// for should be removed from its container instead of kept.
//
// It is only meaningful as a return value from a [BindFunc]; containers catch
// it at the bind boundary and it never escapes to callers.
var ErrDrop = errors.New("beet: drop entry")

// PackOverwrite is reported by [Pack.Save] when the destination already
// exists and overwriting was not requested.
type PackOverwrite struct {
	Path string
}

// Error implements error.
func (e *PackOverwrite) Error() string {
	return `couldn't overwrite "` + e.Path + `"`
}
