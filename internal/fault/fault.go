// Package fault classifies the fatal conditions of a run.
//
// Nothing in the pipeline recovers from an error: every failure is wrapped in
// an *Error carrying its Kind and travels up to main, which reports it and
// exits.
package fault

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindUnknown Kind = iota
	// KindInput: the input cannot be opened or read.
	KindInput
	// KindParse: a record is structurally broken or its value is not a decimal.
	KindParse
	// KindDomain: a value falls outside the histogram grid.
	KindDomain
	// KindCapacity: a single record does not fit in the read buffer.
	KindCapacity
	// KindEncoding: a station name is not valid UTF-8 at render time.
	KindEncoding
)

func (k Kind) String() string {
	switch k {
	case KindInput:
		return "input"
	case KindParse:
		return "parse"
	case KindDomain:
		return "domain"
	case KindCapacity:
		return "capacity"
	case KindEncoding:
		return "encoding"
	default:
		return "unknown"
	}
}

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind. A nil err stays nil.
func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause; %w verbs are honoured.
func Newf(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
