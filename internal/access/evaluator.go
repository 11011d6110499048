// Package access decides whether a group set grants a group-gated resource.
package access

import (
	"errors"
	"slices"
)

// ErrEmptyRequiredGroup is returned when a resource names no required group.
var ErrEmptyRequiredGroup = errors.New("required group cannot be empty")

// Decision is the result of one access evaluation.
type Decision struct {
	Allowed bool `json:"allowed"`
}

// Evaluate allows access iff requiredGroup is one of groups. Names are compared
// exactly. An empty requiredGroup is a caller error and is always denied.
func Evaluate(groups []string, requiredGroup string) (Decision, error) {
	if requiredGroup == "" {
		return Decision{}, ErrEmptyRequiredGroup
	}
	return Decision{Allowed: slices.Contains(groups, requiredGroup)}, nil
}
