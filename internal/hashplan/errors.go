package hashplan

import (
	"errors"
	"fmt"
)

var ErrUnresolvedExternalDependency = errors.New("unresolved external dependency")

// PlanError wraps planning failures that are not produced by a collaborator.
type PlanError struct {
	Kind error
	Msg  string
}

func (e *PlanError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *PlanError) Unwrap() error { return e.Kind }

func unresolvedExternal(dep, project, target string) error {
	return &PlanError{
		Kind: ErrUnresolvedExternalDependency,
		Msg:  fmt.Sprintf("the externalDependency '%s' for '%s:%s' could not be found", dep, project, target),
	}
}
