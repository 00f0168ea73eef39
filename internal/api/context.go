package api

import (
	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/authz"
)

// authzContext extracts the authorization context set by the auth
// middleware.
func authzContext(c *fiber.Ctx) *authz.Context {
	actx, _ := c.Locals("authz").(*authz.Context)
	return actx
}
