package workspace

import (
	"errors"
	"fmt"
)

var ErrInvalidProjectGraph = errors.New("invalid project graph")

// GraphError wraps project graph validation failures.
type GraphError struct {
	Kind error
	Msg  string
}

func (e *GraphError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *GraphError) Unwrap() error { return e.Kind }

func invalidf(format string, args ...any) error {
	return &GraphError{Kind: ErrInvalidProjectGraph, Msg: fmt.Sprintf(format, args...)}
}
