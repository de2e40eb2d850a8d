package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskflow/helpdesk/internal/policy"
)

// RequireAction rejects requests whose caller may not perform action on any
// resource. Anonymous callers get Unauthorized.
func RequireAction(action policy.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := policy.Authorize(CallerFromContext(c), action, policy.Resource{}); err != nil {
			return err
		}
		return c.Next()
	}
}
