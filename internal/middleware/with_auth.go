package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-grader/internal/models"
	"github.com/noah-isme/gema-grader/internal/utils"
)

// Roles accepted by WithAuth.
const (
	AuthRoleAny     = "any"
	AuthRoleTeacher = models.RoleTeacher
	AuthRoleStudent = models.RoleStudent
)

// AuthOptions configures WithAuth.
type AuthOptions struct {
	Role string
}

// WithAuth guards a single route inside a group that admits several roles,
// e.g. the student-only upload under /submissions. A user is always required.
func WithAuth(handler fiber.Handler, opts AuthOptions) fiber.Handler {
	role := strings.ToLower(strings.TrimSpace(opts.Role))
	if role == "" {
		role = AuthRoleAny
	}

	return func(c *fiber.Ctx) error {
		if id, ok := c.Locals("user_id").(uint); !ok || id == 0 {
			return utils.Fail(c, fiber.StatusUnauthorized, "authentication required", nil)
		}
		if role != AuthRoleAny && normalizeRoleValue(c.Locals("user_role")) != role {
			return utils.Fail(c, fiber.StatusForbidden, "insufficient permissions", nil)
		}
		return handler(c)
	}
}
