package authz

import (
	"fmt"
	"strings"
)

// Predicates emitted for the data store's row-level-security layer.
// Postgres boolean-expression syntax.
const (
	RLSAllow = "TRUE"
	RLSDeny  = "FALSE"
)

// RLSCondition derives a SQL boolean fragment that enforces the same
// catalog rule at the data layer. Admin gets the always-true predicate;
// a missing or unconditioned permission gets the always-false one
// (deny-by-default holds in the store too). Conditions the translator
// cannot express collapse the whole predicate to FALSE: an
// untranslatable rule must deny, never silently allow.
func (c *Catalog) RLSCondition(ut UserType, userID, resource string, action Action) string {
	if ut == UserTypeAdmin {
		return RLSAllow
	}

	perm := c.find(ut, resource, action)
	if perm == nil || len(perm.Conditions) == 0 {
		return RLSDeny
	}

	exprs := make([]string, 0, len(perm.Conditions))
	for _, cond := range perm.Conditions {
		expr, ok := translateCondition(cond, userID)
		if !ok {
			return RLSDeny
		}
		exprs = append(exprs, expr)
	}
	return strings.Join(exprs, " AND ")
}

func translateCondition(cond Condition, userID string) (string, bool) {
	column := strings.ReplaceAll(cond.Field, ".", "_")

	literal, ok := rlsLiteral(cond.Value, userID)
	if !ok {
		return "", false
	}

	switch cond.Operator {
	case OpEquals:
		return fmt.Sprintf("%s = %s", column, literal), true
	case OpContains:
		// Array-membership columns such as participants
		return fmt.Sprintf("%s = ANY(%s)", literal, column), true
	default:
		return "", false
	}
}

// rlsLiteral renders a condition value as a SQL literal. {{userId}} is
// substituted with the caller's id; any token left unresolved after
// that (the generator has no operator or resource context) makes the
// value untranslatable.
func rlsLiteral(value any, userID string) (string, bool) {
	switch v := value.(type) {
	case string:
		s := strings.ReplaceAll(v, "{{userId}}", userID)
		if strings.Contains(s, "{{") {
			return "", false
		}
		return "'" + strings.ReplaceAll(s, "'", "''") + "'", true
	case float64, float32, int, int64, int32:
		return fmt.Sprintf("%v", v), true
	}
	return "", false
}
