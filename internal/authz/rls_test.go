package authz

import "testing"

func TestRLSCondition_Admin(t *testing.T) {
	c := NewCatalog()
	if got := c.RLSCondition(UserTypeAdmin, "a1", "locations", ActionRead); got != RLSAllow {
		t.Fatalf("expected %s, got %s", RLSAllow, got)
	}
}

func TestRLSCondition_NoPermission(t *testing.T) {
	c := NewCatalog()
	if got := c.RLSCondition(UserTypeClient, "c1", "api_management", ActionDelete); got != RLSDeny {
		t.Fatalf("expected %s, got %s", RLSDeny, got)
	}
}

func TestRLSCondition_UnconditionedDenies(t *testing.T) {
	// reports:read has no conditions; the data layer gets deny rather
	// than an unbounded allow.
	c := NewCatalog()
	if got := c.RLSCondition(UserTypeOperator, "o1", "reports", ActionRead); got != RLSDeny {
		t.Fatalf("expected %s, got %s", RLSDeny, got)
	}
}

func TestRLSCondition_Equality(t *testing.T) {
	c := NewCatalog()
	got := c.RLSCondition(UserTypeOperator, "op1", "locations", ActionRead)
	if got != "operator_id = 'op1'" {
		t.Fatalf("unexpected predicate %q", got)
	}
}

func TestRLSCondition_ChainedFieldBecomesColumn(t *testing.T) {
	c := NewCatalog()
	got := c.RLSCondition(UserTypeOperator, "op1", "parking_spots", ActionUpdate)
	if got != "zone_section_location_operator_id = 'op1'" {
		t.Fatalf("unexpected predicate %q", got)
	}
}

func TestRLSCondition_ContainsBecomesArrayMembership(t *testing.T) {
	c := NewCatalog()
	got := c.RLSCondition(UserTypeHost, "h1", "messages", ActionRead)
	if got != "'h1' = ANY(participants)" {
		t.Fatalf("unexpected predicate %q", got)
	}
}

func TestRLSCondition_UntranslatableOperatorDenies(t *testing.T) {
	c := &Catalog{defaults: map[UserType][]Permission{
		UserTypeClient: {
			{Resource: "bookings", Actions: []Action{ActionRead},
				Conditions: []Condition{{Field: "amount", Operator: OpGreaterThan, Value: float64(0)}}},
		},
	}}
	if got := c.RLSCondition(UserTypeClient, "c1", "bookings", ActionRead); got != RLSDeny {
		t.Fatalf("expected untranslatable operator to deny, got %q", got)
	}
}

func TestRLSCondition_UnresolvedTokenDenies(t *testing.T) {
	// The generator only substitutes {{userId}}; a permission keyed off
	// {{operatorId}} cannot be expressed and must deny.
	c := NewCatalog()
	if got := c.RLSCondition(UserTypePOS, "pos1", "bookings", ActionRead); got != RLSDeny {
		t.Fatalf("expected unresolved token to deny, got %q", got)
	}
}

func TestRLSCondition_QuotesEscaped(t *testing.T) {
	c := NewCatalog()
	got := c.RLSCondition(UserTypeOperator, "o'brien", "locations", ActionRead)
	if got != "operator_id = 'o''brien'" {
		t.Fatalf("unexpected predicate %q", got)
	}
}

func TestRLSCondition_MultipleConditionsJoinWithAND(t *testing.T) {
	c := &Catalog{defaults: map[UserType][]Permission{
		UserTypeClient: {
			{Resource: "bookings", Actions: []Action{ActionRead},
				Conditions: []Condition{
					{Field: "user_id", Operator: OpEquals, Value: "{{userId}}"},
					{Field: "status", Operator: OpEquals, Value: "active"},
				}},
		},
	}}
	got := c.RLSCondition(UserTypeClient, "c1", "bookings", ActionRead)
	if got != "user_id = 'c1' AND status = 'active'" {
		t.Fatalf("unexpected predicate %q", got)
	}
}
