package authz

// assignableResources is the closed list of resources that may appear
// in a custom group permission, with the actions that can ever be
// granted on each. This is deliberately narrower than the role default
// catalog: it answers "what can an administrator hand out", not "what
// does a role get by default".
var assignableResources = map[string][]Action{
	"locations":         AllActions,
	"sections":          AllActions,
	"zones":             AllActions,
	"parking_spots":     AllActions,
	"bookings":          AllActions,
	"vehicles":          AllActions,
	"user_profiles":     AllActions,
	"user_groups":       AllActions,
	"hosted_listings":   AllActions,
	"messages":          {ActionCreate, ActionRead, ActionUpdate},
	"ratings":           {ActionCreate, ActionRead},
	"violation_reports": AllActions,
	"reports":           AllActions,
	"analytics":         {ActionRead},
	"audit_logs":        {ActionRead},
	"host_payouts":      {ActionRead},
	"users":             {ActionRead, ActionUpdate},
}

// AssignableActions returns the actions that may ever be granted on a
// resource, and whether the resource is grantable at all.
func AssignableActions(resource string) ([]Action, bool) {
	actions, ok := assignableResources[resource]
	return actions, ok
}
