package authz

import "testing"

func TestCatalog_AdminUniversalEntry(t *testing.T) {
	c := NewCatalog()
	perms := c.ForUserType(UserTypeAdmin)
	if len(perms) != 1 || perms[0].Resource != "*" {
		t.Fatalf("expected single universal admin entry, got %+v", perms)
	}
	for _, a := range AllActions {
		if !perms[0].Allows(a) {
			t.Fatalf("expected admin entry to allow %s", a)
		}
	}
}

func TestCatalog_EveryEntryWellFormed(t *testing.T) {
	c := NewCatalog()
	for _, ut := range []UserType{UserTypeAdmin, UserTypeOperator, UserTypePOS, UserTypeHost, UserTypeClient} {
		perms := c.ForUserType(ut)
		if len(perms) == 0 {
			t.Fatalf("expected defaults for %s", ut)
		}
		for _, p := range perms {
			if p.Resource == "" || len(p.Actions) == 0 {
				t.Fatalf("%s: malformed entry %+v", ut, p)
			}
			for _, a := range p.Actions {
				if !a.Valid() {
					t.Fatalf("%s: invalid action %q", ut, a)
				}
			}
			for _, cond := range p.Conditions {
				if !cond.Operator.Valid() || cond.Field == "" {
					t.Fatalf("%s: malformed condition %+v", ut, cond)
				}
			}
		}
	}
}

func TestCatalog_UnknownUserTypeEmpty(t *testing.T) {
	c := NewCatalog()
	if perms := c.ForUserType(UserType("visitor")); len(perms) != 0 {
		t.Fatalf("expected no defaults for unknown type, got %+v", perms)
	}
}

func TestAssignableActions(t *testing.T) {
	actions, ok := AssignableActions("audit_logs")
	if !ok {
		t.Fatal("expected audit_logs to be assignable")
	}
	if len(actions) != 1 || actions[0] != ActionRead {
		t.Fatalf("expected audit_logs to allow only read, got %v", actions)
	}

	if _, ok := AssignableActions("nonexistent_table"); ok {
		t.Fatal("expected unknown resource to not be assignable")
	}
}
