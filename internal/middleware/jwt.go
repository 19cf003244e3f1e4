package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenVerifier resolves a bearer access token to a user id.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// JWTAuth rejects requests without a valid bearer token and stores the caller's
// id under the "user_id" local as an int64.
func JWTAuth(verifier TokenVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if len(authz) < len("bearer ") || !strings.EqualFold(authz[:len("bearer ")], "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		userID, err := verifier.Verify(strings.TrimSpace(authz[len("bearer "):]))
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}
