package authz

// Catalog holds the default permission set for each user type. It is
// built once at process start, passed into the engine, and never
// mutated afterwards; the per-user group layer is the only dynamic
// part of the permission model.
type Catalog struct {
	defaults map[UserType][]Permission
}

// NewCatalog builds the day-one default catalog.
func NewCatalog() *Catalog {
	return &Catalog{defaults: defaultPermissions()}
}

// ForUserType returns the default permissions for a user type, in
// evaluation order. The returned slice is read-only.
func (c *Catalog) ForUserType(ut UserType) []Permission {
	return c.defaults[ut]
}

// find returns the first default permission for the user type covering
// resource+action, or nil.
func (c *Catalog) find(ut UserType, resource string, action Action) *Permission {
	for i := range c.defaults[ut] {
		p := &c.defaults[ut][i]
		if MatchResource(p.Resource, resource) && p.Allows(action) {
			return p
		}
	}
	return nil
}

func eq(field, value string) []Condition {
	return []Condition{{Field: field, Operator: OpEquals, Value: value}}
}

func defaultPermissions() map[UserType][]Permission {
	crud := AllActions
	return map[UserType][]Permission{
		// Admin holds a universal grant. The engine additionally
		// short-circuits for admins, so this entry only matters for
		// permission listings.
		UserTypeAdmin: {
			{Resource: "*", Actions: crud},
		},

		// Operators manage their own location hierarchy. Ownership is
		// checked through the chain of parent records up to the
		// location's operator_id.
		UserTypeOperator: {
			{Resource: "locations", Actions: crud,
				Conditions: eq("operator_id", "{{userId}}")},
			{Resource: "sections", Actions: crud,
				Conditions: eq("location.operator_id", "{{userId}}")},
			{Resource: "zones", Actions: crud,
				Conditions: eq("section.location.operator_id", "{{userId}}")},
			{Resource: "parking_spots", Actions: crud,
				Conditions: eq("zone.section.location.operator_id", "{{userId}}")},
			{Resource: "bookings", Actions: []Action{ActionRead, ActionUpdate},
				Conditions: eq("parking_spot.zone.section.location.operator_id", "{{userId}}")},
			{Resource: "user_groups", Actions: crud,
				Conditions: eq("operator_id", "{{userId}}")},
			{Resource: "reports", Actions: []Action{ActionRead}},
			{Resource: "analytics", Actions: []Action{ActionRead}},
		},

		// POS terminals act on behalf of an operator, so their
		// conditions key off the context's operatorId rather than the
		// terminal user's own id.
		UserTypePOS: {
			{Resource: "bookings", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: eq("operator_id", "{{operatorId}}")},
			{Resource: "parking_spots", Actions: []Action{ActionRead, ActionUpdate},
				Conditions: eq("zone.section.location.operator_id", "{{operatorId}}")},
			{Resource: "violation_reports", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: eq("operator_id", "{{operatorId}}")},
			{Resource: "vehicles", Actions: []Action{ActionRead}},
			{Resource: "users", Actions: []Action{ActionRead}},
		},

		UserTypeHost: {
			{Resource: "hosted_listings", Actions: crud,
				Conditions: eq("host_id", "{{userId}}")},
			{Resource: "bookings", Actions: []Action{ActionRead, ActionUpdate},
				Conditions: eq("listing.host_id", "{{userId}}")},
			{Resource: "messages", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: []Condition{{Field: "participants", Operator: OpContains, Value: "{{userId}}"}}},
			{Resource: "ratings", Actions: []Action{ActionCreate, ActionRead},
				Conditions: eq("booking.listing.host_id", "{{userId}}")},
			{Resource: "host_payouts", Actions: []Action{ActionRead},
				Conditions: eq("host_id", "{{userId}}")},
		},

		UserTypeClient: {
			{Resource: "bookings", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: eq("user_id", "{{userId}}")},
			{Resource: "vehicles", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: eq("user_id", "{{userId}}")},
			{Resource: "user_profiles", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: eq("user_id", "{{userId}}")},
			{Resource: "messages", Actions: []Action{ActionCreate, ActionRead, ActionUpdate},
				Conditions: []Condition{{Field: "participants", Operator: OpContains, Value: "{{userId}}"}}},
			{Resource: "ratings", Actions: []Action{ActionCreate, ActionRead},
				Conditions: eq("rater_id", "{{userId}}")},
			{Resource: "violation_reports", Actions: []Action{ActionCreate, ActionRead},
				Conditions: eq("user_id", "{{userId}}")},
			// Catalog browsing
			{Resource: "locations", Actions: []Action{ActionRead}},
			{Resource: "sections", Actions: []Action{ActionRead}},
			{Resource: "zones", Actions: []Action{ActionRead}},
			{Resource: "parking_spots", Actions: []Action{ActionRead}},
			{Resource: "hosted_listings", Actions: []Action{ActionRead}},
		},
	}
}
