package httputil

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// UserHeader carries the authenticated user id. Session handling lives in
// the fronting app; this service trusts the header.
const UserHeader = "X-User-ID"

const userKey = "user_id"

type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	JobID   string `json:"jobId,omitempty"`
}

// RequireUser rejects requests without a user id and stores it for UserID.
func RequireUser() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := strings.TrimSpace(c.Get(UserHeader))
		if id == "" {
			return Fail(c, fiber.StatusUnauthorized, "authentication required")
		}
		c.Locals(userKey, id)
		return c.Next()
	}
}

func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userKey).(string)
	return id
}

func Fail(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ErrorResponse{Success: false, Error: msg})
}
