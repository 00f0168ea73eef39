package groups

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/api"
	"parkgrid-backend/internal/audit"
	"parkgrid-backend/internal/auth"
	"parkgrid-backend/internal/authz"
)

// Handler exposes group administration over HTTP. Admins manage any
// group; operators manage groups scoped to their own tenant, enforced
// through the engine's "user_groups" permission.
type Handler struct {
	service *Service
	engine  *authz.Engine
}

func NewHandler(service *Service, engine *authz.Engine) *Handler {
	return &Handler{service: service, engine: engine}
}

// RegisterRoutes registers group admin routes on the given Fiber app.
func RegisterRoutes(app *fiber.App, h *Handler, middleware ...fiber.Handler) {
	g := app.Group("/api/groups", middleware...)

	g.Get("/", h.List)
	g.Post("/", h.Create)
	g.Post("/validate", h.Validate)
	g.Get("/:id", h.Get)
	g.Put("/:id", h.Update)
	g.Delete("/:id", h.Delete)
	g.Post("/:id/permissions", h.AddPermission)
	g.Post("/:id/members", h.AddMember)
	g.Delete("/:id/members/:userId", h.RemoveMember)
}

func (h *Handler) List(c *fiber.Ctx) error {
	actx := auth.Context(c)

	operatorID := c.Query("operator_id")
	if actx.UserType == authz.UserTypeOperator {
		// Operators only ever see their own tenant's groups
		operatorID = actx.UserID
	}

	list, err := h.service.List(c.Context(), operatorID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*UserGroup{}
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *Handler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	g, err := h.service.Get(c.Context(), id)
	if err != nil {
		return groupError(err, id)
	}
	if !h.allowed(c, authz.ActionRead, g) {
		return api.ForbiddenError("No access to this group")
	}
	return c.JSON(fiber.Map{"data": g})
}

func (h *Handler) Create(c *fiber.Ctx) error {
	actx := auth.Context(c)

	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return api.BadRequestError("Invalid JSON body")
	}
	if actx.UserType == authz.UserTypeOperator {
		input.OperatorID = actx.UserID
	}

	if result := h.service.ValidatePermissions(input.Permissions); !result.IsValid {
		return validationError(result)
	}

	g, err := h.service.Create(mutationContext(c), input)
	if err != nil {
		return err
	}
	return c.Status(201).JSON(fiber.Map{"data": g})
}

func (h *Handler) Update(c *fiber.Ctx) error {
	id := c.Params("id")

	var input UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return api.BadRequestError("Invalid JSON body")
	}
	if input.Permissions != nil {
		if result := h.service.ValidatePermissions(*input.Permissions); !result.IsValid {
			return validationError(result)
		}
	}

	existing, err := h.service.Get(c.Context(), id)
	if err != nil {
		return groupError(err, id)
	}
	if !h.allowed(c, authz.ActionUpdate, existing) {
		return api.ForbiddenError("No access to this group")
	}

	g, err := h.service.Update(mutationContext(c), id, input)
	if err != nil {
		return groupError(err, id)
	}
	return c.JSON(fiber.Map{"data": g})
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	id := c.Params("id")

	existing, err := h.service.Get(c.Context(), id)
	if err != nil {
		return groupError(err, id)
	}
	if !h.allowed(c, authz.ActionDelete, existing) {
		return api.ForbiddenError("No access to this group")
	}

	if err := h.service.Delete(mutationContext(c), id); err != nil {
		return groupError(err, id)
	}
	return c.JSON(fiber.Map{"message": "Group deleted"})
}

func (h *Handler) AddPermission(c *fiber.Ctx) error {
	id := c.Params("id")

	var perm authz.Permission
	if err := c.BodyParser(&perm); err != nil {
		return api.BadRequestError("Invalid JSON body")
	}

	existing, err := h.service.Get(c.Context(), id)
	if err != nil {
		return groupError(err, id)
	}
	if !h.allowed(c, authz.ActionUpdate, existing) {
		return api.ForbiddenError("No access to this group")
	}

	if result := h.service.ValidatePermissions([]authz.Permission{perm}); !result.IsValid {
		return validationError(result)
	}

	g, err := h.service.AddPermission(mutationContext(c), id, perm)
	if err != nil {
		return groupError(err, id)
	}
	return c.JSON(fiber.Map{"data": g})
}

func (h *Handler) AddMember(c *fiber.Ctx) error {
	id := c.Params("id")

	var body struct {
		UserID string `json:"user_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.UserID == "" {
		return api.BadRequestError("user_id is required")
	}

	existing, err := h.service.Get(c.Context(), id)
	if err != nil {
		return groupError(err, id)
	}
	if !h.allowed(c, authz.ActionUpdate, existing) {
		return api.ForbiddenError("No access to this group")
	}

	if err := h.service.AddUser(mutationContext(c), id, body.UserID); err != nil {
		if errors.Is(err, ErrAlreadyMember) {
			return api.ConflictError("User is already a member of this group")
		}
		return groupError(err, id)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Member added"})
}

func (h *Handler) RemoveMember(c *fiber.Ctx) error {
	id := c.Params("id")
	userID := c.Params("userId")

	existing, err := h.service.Get(c.Context(), id)
	if err != nil {
		return groupError(err, id)
	}
	if !h.allowed(c, authz.ActionUpdate, existing) {
		return api.ForbiddenError("No access to this group")
	}

	if err := h.service.RemoveUser(mutationContext(c), id, userID); err != nil {
		return groupError(err, id)
	}
	return c.JSON(fiber.Map{"message": "Member removed"})
}

func (h *Handler) Validate(c *fiber.Ctx) error {
	var body struct {
		Permissions []authz.Permission `json:"permissions"`
	}
	if err := c.BodyParser(&body); err != nil {
		return api.BadRequestError("Invalid JSON body")
	}
	return c.JSON(fiber.Map{"data": h.service.ValidatePermissions(body.Permissions)})
}

// mutationContext tags the request context with the acting user so
// audit entries carry the actor.
func mutationContext(c *fiber.Ctx) context.Context {
	actx := auth.Context(c)
	if actx == nil {
		return c.Context()
	}
	return audit.WithUserID(c.Context(), actx.UserID)
}

// allowed runs the group row through the engine's user_groups rule.
func (h *Handler) allowed(c *fiber.Ctx, action authz.Action, g *UserGroup) bool {
	actx := auth.Context(c)
	return h.engine.HasPermission(c.Context(), actx, "user_groups", action, map[string]any{
		"id":          g.ID,
		"operator_id": g.OperatorID,
	})
}

func groupError(err error, id string) error {
	if IsNotFound(err) {
		return api.NotFoundError("Group", id)
	}
	return err
}

func validationError(result ValidationResult) error {
	details := make([]api.ErrorDetail, len(result.Errors))
	for i, msg := range result.Errors {
		details[i] = api.ErrorDetail{Message: msg}
	}
	return api.ValidationError(details)
}
