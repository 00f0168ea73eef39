package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/authz"
	"parkgrid-backend/internal/store"
	"parkgrid-backend/internal/users"
)

// UsersHandler serves user listings for the dashboard's membership
// pickers.
type UsersHandler struct {
	users *users.Service
}

func NewUsersHandler(u *users.Service) *UsersHandler {
	return &UsersHandler{users: u}
}

// RegisterUserRoutes registers user routes on the Fiber app.
func RegisterUserRoutes(app *fiber.App, h *UsersHandler, middleware ...fiber.Handler) {
	g := app.Group("/api/users", middleware...)

	g.Get("/", h.List)
	g.Get("/:id", h.Get)
}

func (h *UsersHandler) List(c *fiber.Ctx) error {
	actx := authzContext(c)

	operatorID := c.Query("operator_id")
	if actx.UserType == authz.UserTypeOperator {
		operatorID = actx.UserID
	}

	list, err := h.users.List(c.Context(), operatorID)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*users.User{}
	}
	return c.JSON(fiber.Map{"data": list})
}

func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id := c.Params("id")
	u, err := h.users.Get(c.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return NotFoundError("User", id)
		}
		return err
	}
	return c.JSON(fiber.Map{"data": u})
}
