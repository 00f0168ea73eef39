package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/authz"
)

type staticSource struct {
	perms []authz.Permission
}

func (s *staticSource) PermissionsForUser(ctx context.Context, userID string) ([]authz.Permission, error) {
	return s.perms, nil
}

type staticDirectory struct {
	identity authz.Identity
}

func (s *staticDirectory) LookupUser(ctx context.Context, userID string) (authz.Identity, error) {
	return s.identity, nil
}

func newTestApp(actx *authz.Context) *fiber.App {
	catalog := authz.NewCatalog()
	engine := authz.NewEngine(catalog, &staticSource{}, &staticDirectory{
		identity: authz.Identity{UserType: actx.UserType, OperatorID: actx.OperatorID},
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var appErr *AppError
			if e, ok := err.(*AppError); ok {
				appErr = e
			} else {
				appErr = NewAppError("INTERNAL_ERROR", 500, err.Error())
			}
			return c.Status(appErr.Status).JSON(ErrorResponse{Error: appErr})
		},
	})
	// Stand-in for the auth middleware
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("authz", actx)
		return c.Next()
	})
	RegisterAuthzRoutes(app, NewAuthzHandler(engine, catalog))
	return app
}

func TestCheckEndpoint(t *testing.T) {
	app := newTestApp(&authz.Context{UserID: "c1", UserType: authz.UserTypeClient})

	body := `{"resource":"bookings","action":"update","resource_data":{"user_id":"c1"}}`
	req, _ := http.NewRequest("POST", "/api/authz/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			Allowed bool `json:"allowed"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !parsed.Data.Allowed {
		t.Fatal("expected own booking update to be allowed")
	}
}

func TestCheckEndpoint_InvalidAction(t *testing.T) {
	app := newTestApp(&authz.Context{UserID: "c1", UserType: authz.UserTypeClient})

	req, _ := http.NewRequest("POST", "/api/authz/check",
		strings.NewReader(`{"resource":"bookings","action":"annihilate"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestRLSEndpoint(t *testing.T) {
	app := newTestApp(&authz.Context{UserID: "op1", UserType: authz.UserTypeOperator})

	req, _ := http.NewRequest("GET", "/api/authz/rls?resource=locations&action=read", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed struct {
		Data struct {
			Condition string `json:"condition"`
		} `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if parsed.Data.Condition != "operator_id = 'op1'" {
		t.Fatalf("unexpected predicate %q", parsed.Data.Condition)
	}
}

func TestFilterEndpoint(t *testing.T) {
	app := newTestApp(&authz.Context{UserID: "c1", UserType: authz.UserTypeClient})

	body := `{"resource":"bookings","action":"read","items":[{"id":"b1","user_id":"c1"},{"id":"b2","user_id":"c2"}]}`
	req, _ := http.NewRequest("POST", "/api/authz/filter", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var parsed struct {
		Data []map[string]any `json:"data"`
	}
	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, &parsed); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(parsed.Data) != 1 || parsed.Data[0]["id"] != "b1" {
		t.Fatalf("expected only the caller's booking, got %v", parsed.Data)
	}
}
