package inputs

import (
	"errors"
	"fmt"
)

var (
	ErrInputNotDefined = errors.New("input is not defined")
	ErrInvalidInput    = errors.New("invalid input")
	ErrProjectNotFound = errors.New("project not found")
)

// InputError wraps input parsing and expansion failures.
type InputError struct {
	Kind error
	Msg  string
}

func (e *InputError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *InputError) Unwrap() error { return e.Kind }

func inputErrorf(kind error, format string, args ...any) error {
	return &InputError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
