package authz

// Action is one of the four CRUD operations a permission can grant.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// AllActions is the full CRUD set, in canonical order.
var AllActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// Valid reports whether a is one of the four recognized actions.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// UserType is the role a user holds on the platform.
type UserType string

const (
	UserTypeAdmin    UserType = "admin"
	UserTypeOperator UserType = "operator"
	UserTypePOS      UserType = "pos"
	UserTypeHost     UserType = "host"
	UserTypeClient   UserType = "client"
)

// Valid reports whether u is a recognized user type.
func (u UserType) Valid() bool {
	switch u {
	case UserTypeAdmin, UserTypeOperator, UserTypePOS, UserTypeHost, UserTypeClient:
		return true
	}
	return false
}

// Operator is a condition comparison operator.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpContains    Operator = "contains"
	OpIn          Operator = "in"
	OpNotIn       Operator = "not_in"
)

// Valid reports whether o is one of the six recognized operators.
func (o Operator) Valid() bool {
	switch o {
	case OpEquals, OpGreaterThan, OpLessThan, OpContains, OpIn, OpNotIn:
		return true
	}
	return false
}

// Condition is a field-level predicate that scopes a permission to rows
// satisfying it. Field is a dot-path into the resource data; string
// values may carry {{userId}}, {{operatorId}} and {{resourceId}} tokens
// that are interpolated from the caller's context at evaluation time.
type Condition struct {
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Value    any      `json:"value"`
}

// Permission grants a set of actions on resources covered by the
// Resource pattern, optionally scoped by conditions (all must hold).
type Permission struct {
	Resource   string      `json:"resource"`
	Actions    []Action    `json:"actions"`
	Conditions []Condition `json:"conditions,omitempty"`
}

// Allows reports whether the permission grants the given action.
func (p Permission) Allows(action Action) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Context carries the identity a permission check runs under. It is
// built per request and never persisted.
type Context struct {
	UserID       string         `json:"user_id"`
	UserType     UserType       `json:"user_type"`
	OperatorID   string         `json:"operator_id,omitempty"`
	ResourceID   string         `json:"resource_id,omitempty"`
	ResourceType string         `json:"resource_type,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}
