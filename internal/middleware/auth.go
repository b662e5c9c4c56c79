package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/utils"
)

const principalKey = "principal"

// JWT resolves the bearer token into an auth.Principal stored on the
// request. With required set, a missing or bad token is rejected; otherwise
// the request continues as anonymous.
func JWT(v *auth.Verifier, required bool, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			if required {
				return utils.JSONError(c, fiber.StatusUnauthorized, "missing authorization")
			}
			c.Locals(principalKey, auth.Anonymous)
			return c.Next()
		}
		if !strings.HasPrefix(header, "Bearer ") {
			return utils.JSONError(c, fiber.StatusUnauthorized, "invalid authorization header")
		}
		p, err := v.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			log.Debug("jwt invalid", zap.Error(err))
			return utils.JSONError(c, fiber.StatusUnauthorized, "invalid or expired token")
		}
		c.Locals(principalKey, p)
		return c.Next()
	}
}

// RequireRole rejects principals without role. It runs after JWT.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := Principal(c).RequireRole(role); err != nil {
			return utils.JSONFail(c, err, "")
		}
		return c.Next()
	}
}

// Principal returns the caller attached by JWT, or auth.Anonymous.
func Principal(c *fiber.Ctx) auth.Principal {
	if p, ok := c.Locals(principalKey).(auth.Principal); ok {
		return p
	}
	return auth.Anonymous
}
