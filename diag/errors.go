// Package diag defines error kinds and source locations reported by every
// stage of the compilation pipeline.
package diag

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies compilation failures.
type Kind int

const (
	KindInternal Kind = iota
	KindSyntax
	KindImportNotFound
	KindCircularImport
	KindUndefinedVariable
	KindUndefinedMixin
	KindUndefinedFunction
	KindEvaluation
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "SyntaxError"
	case KindImportNotFound:
		return "ImportNotFound"
	case KindCircularImport:
		return "CircularImport"
	case KindUndefinedVariable:
		return "UndefinedVariable"
	case KindUndefinedMixin:
		return "UndefinedMixin"
	case KindUndefinedFunction:
		return "UndefinedFunction"
	case KindEvaluation:
		return "EvaluationError"
	case KindIO:
		return "IOError"
	default:
		return "InternalError"
	}
}

// Sentinels to be used with errors.Is, for example
// errors.Is(err, diag.ErrCircularImport).
var (
	ErrSyntax            = &Error{Kind: KindSyntax}
	ErrImportNotFound    = &Error{Kind: KindImportNotFound}
	ErrCircularImport    = &Error{Kind: KindCircularImport}
	ErrUndefinedVariable = &Error{Kind: KindUndefinedVariable}
	ErrUndefinedMixin    = &Error{Kind: KindUndefinedMixin}
	ErrUndefinedFunction = &Error{Kind: KindUndefinedFunction}
	ErrEvaluation        = &Error{Kind: KindEvaluation}
	ErrIO                = &Error{Kind: KindIO}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Location points into a source file. Line and Column are 1-based, Column
// counts bytes. Offset is the 0-based byte offset of the same point.
type Location struct {
	File   string
	Offset int
	Line   int
	Column int
}

// IsValid returns true when location has been set.
func (l Location) IsValid() bool {
	return l.Line > 0
}

func (l Location) String() string {
	if !l.IsValid() {
		return l.File
	}
	if l.File == "" {
		return fmt.Sprintf("%d:%d", l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
}

// Error is the only error type produced by pipeline stages.
type Error struct {
	Kind    Kind
	Message string
	Loc     Location
	// Context is the offending source line with a caret, if available.
	Context string
	// Attempted holds every candidate path tried for an unresolved import.
	Attempted []string
	// Chain holds active import chain for a circular import.
	Chain []string
	// Err is underlying cause (I/O for example).
	Err error
}

// New creates error of the given kind.
func New(kind Kind, loc Location, format string, args ...any) *Error {
	return &Error{Kind: kind, Loc: loc, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates error of the given kind keeping cause.
func Wrap(kind Kind, loc Location, err error, format string, args ...any) *Error {
	e := New(kind, loc, format, args...)
	e.Err = err
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Kind.String())
	if e.Loc.IsValid() || e.Loc.File != "" {
		sb.WriteString(" at ")
		sb.WriteString(e.Loc.String())
	}
	if e.Message != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Message)
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Attempted) > 0 {
		sb.WriteString(" (tried: ")
		sb.WriteString(strings.Join(e.Attempted, ", "))
		sb.WriteString(")")
	}
	if len(e.Chain) > 0 {
		sb.WriteString(" (chain: ")
		sb.WriteString(strings.Join(e.Chain, " -> "))
		sb.WriteString(")")
	}
	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels work regardless of
// message and location.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Detailed returns the message followed by the source context, if any.
func (e *Error) Detailed() string {
	if e.Context == "" {
		return e.Error()
	}
	return e.Error() + "\n" + e.Context
}

// From converts arbitrary error into *Error, errors which are not produced by
// pipeline become internal errors.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: KindInternal, Err: err}
}
