package authz

import "strings"

// MatchResource reports whether a permission's resource pattern covers
// the requested resource. "*" covers everything, an exact match covers
// itself, and a trailing-star pattern like "locations.*" covers any
// resource that starts with the pattern minus the star. Malformed
// patterns never match.
func MatchResource(pattern, resource string) bool {
	if pattern == "*" {
		return true
	}
	if pattern == resource {
		return true
	}
	if strings.HasSuffix(pattern, "*") {
		return strings.HasPrefix(resource, strings.TrimSuffix(pattern, "*"))
	}
	return false
}
