package groups

import (
	"fmt"

	"parkgrid-backend/internal/authz"
)

// ValidationResult is returned by ValidatePermissions; validation never
// errors out, it reports.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// ValidatePermissions checks a permission list against the assignable
// resource registry: every resource must be grantable, every action
// must be within what that resource allows, and every condition
// operator must be recognized. Pure; nothing is mutated.
func (s *Service) ValidatePermissions(perms []authz.Permission) ValidationResult {
	var errs []string
	for _, p := range perms {
		allowed, ok := authz.AssignableActions(p.Resource)
		if !ok {
			errs = append(errs, fmt.Sprintf("resource %q is not assignable", p.Resource))
			continue
		}
		if len(p.Actions) == 0 {
			errs = append(errs, fmt.Sprintf("resource %q: at least one action is required", p.Resource))
		}
		for _, a := range p.Actions {
			if !actionAllowed(a, allowed) {
				errs = append(errs, fmt.Sprintf("resource %q: action %q is not grantable", p.Resource, a))
			}
		}
		for _, c := range p.Conditions {
			if !c.Operator.Valid() {
				errs = append(errs, fmt.Sprintf("resource %q: unknown condition operator %q", p.Resource, c.Operator))
			}
			if c.Field == "" {
				errs = append(errs, fmt.Sprintf("resource %q: condition field is required", p.Resource))
			}
		}
	}
	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}

func actionAllowed(a authz.Action, allowed []authz.Action) bool {
	for _, x := range allowed {
		if x == a {
			return true
		}
	}
	return false
}
