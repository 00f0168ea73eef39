package api

import (
	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/authz"
)

// AuthzHandler exposes the authorization engine to the dashboard
// front-end: single and batch checks, permission listings, row
// filtering, and RLS predicates for the data layer.
type AuthzHandler struct {
	engine  *authz.Engine
	catalog *authz.Catalog
}

func NewAuthzHandler(engine *authz.Engine, catalog *authz.Catalog) *AuthzHandler {
	return &AuthzHandler{engine: engine, catalog: catalog}
}

// RegisterAuthzRoutes registers authorization routes on the Fiber app.
func RegisterAuthzRoutes(app *fiber.App, h *AuthzHandler, middleware ...fiber.Handler) {
	g := app.Group("/api/authz", middleware...)

	g.Post("/check", h.Check)
	g.Post("/check-batch", h.CheckBatch)
	g.Post("/filter", h.Filter)
	g.Get("/permissions", h.OwnPermissions)
	g.Get("/permissions/:userId", h.UserPermissions)
	g.Get("/rls", h.RLSCondition)
}

// Check handles POST /api/authz/check.
func (h *AuthzHandler) Check(c *fiber.Ctx) error {
	var body authz.Check
	if err := c.BodyParser(&body); err != nil {
		return BadRequestError("Invalid JSON body")
	}
	if body.Resource == "" || !body.Action.Valid() {
		return BadRequestError("resource and a valid action are required")
	}

	actx := authzContext(c)
	allowed := h.engine.HasPermission(c.Context(), actx, body.Resource, body.Action, body.ResourceData)
	return c.JSON(fiber.Map{"data": fiber.Map{"allowed": allowed}})
}

// CheckBatch handles POST /api/authz/check-batch. Results are keyed
// "resource:action".
func (h *AuthzHandler) CheckBatch(c *fiber.Ctx) error {
	var body struct {
		Checks []authz.Check `json:"checks"`
	}
	if err := c.BodyParser(&body); err != nil {
		return BadRequestError("Invalid JSON body")
	}

	actx := authzContext(c)
	results := h.engine.CheckMultiple(c.Context(), actx, body.Checks)
	return c.JSON(fiber.Map{"data": results})
}

// Filter handles POST /api/authz/filter: keeps only the submitted items
// the caller may act on.
func (h *AuthzHandler) Filter(c *fiber.Ctx) error {
	var body struct {
		Resource string           `json:"resource"`
		Action   authz.Action     `json:"action"`
		Items    []map[string]any `json:"items"`
	}
	if err := c.BodyParser(&body); err != nil {
		return BadRequestError("Invalid JSON body")
	}
	if body.Resource == "" || !body.Action.Valid() {
		return BadRequestError("resource and a valid action are required")
	}

	actx := authzContext(c)
	filtered := h.engine.FilteredResources(c.Context(), actx, body.Resource, body.Action, body.Items)
	return c.JSON(fiber.Map{"data": filtered})
}

// OwnPermissions returns the caller's effective permission list.
func (h *AuthzHandler) OwnPermissions(c *fiber.Ctx) error {
	actx := authzContext(c)
	perms, err := h.engine.UserPermissions(c.Context(), actx.UserID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": perms})
}

// UserPermissions returns another user's permission list; admin only.
func (h *AuthzHandler) UserPermissions(c *fiber.Ctx) error {
	actx := authzContext(c)
	if actx.UserType != authz.UserTypeAdmin {
		return ForbiddenError("Admin access required")
	}
	perms, err := h.engine.UserPermissions(c.Context(), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": perms})
}

// RLSCondition returns the caller's row-level-security predicate for a
// resource/action, for the data layer's query planner.
func (h *AuthzHandler) RLSCondition(c *fiber.Ctx) error {
	resource := c.Query("resource")
	action := authz.Action(c.Query("action"))
	if resource == "" || !action.Valid() {
		return BadRequestError("resource and a valid action are required")
	}

	actx := authzContext(c)
	predicate := h.catalog.RLSCondition(actx.UserType, actx.UserID, resource, action)
	return c.JSON(fiber.Map{"data": fiber.Map{"condition": predicate}})
}
