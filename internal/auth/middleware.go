package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"parkgrid-backend/internal/api"
	"parkgrid-backend/internal/authz"
)

// Middleware returns a Fiber middleware that validates JWT tokens and
// sets the caller's authorization context on the request.
func Middleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return api.UnauthorizedError("Missing auth token")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return api.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(parts[1], secret)
		if err != nil {
			return api.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("authz", &authz.Context{
			UserID:     claims.Subject,
			UserType:   authz.UserType(claims.UserType),
			OperatorID: claims.OperatorID,
		})

		return c.Next()
	}
}

// RequireUserTypes checks the caller holds one of the given user types.
// Admin always passes.
func RequireUserTypes(types ...authz.UserType) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actx := Context(c)
		if actx == nil {
			return api.UnauthorizedError("Missing auth token")
		}
		if actx.UserType == authz.UserTypeAdmin {
			return c.Next()
		}
		for _, t := range types {
			if actx.UserType == t {
				return c.Next()
			}
		}
		return api.ForbiddenError("Insufficient privileges")
	}
}

// Context extracts the authorization context from a Fiber context.
func Context(c *fiber.Ctx) *authz.Context {
	actx, _ := c.Locals("authz").(*authz.Context)
	return actx
}
