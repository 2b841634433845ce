package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ContextUserKey is where Protect stores the resolved account on the request.
const ContextUserKey = "auth_user"

// BearerScheme is the only accepted authorization scheme.
const BearerScheme = "Bearer"

// TokenFromHeader extracts the bearer token from an Authorization header
// value. Anything other than the literal scheme prefix followed by a token is
// treated as a missing token.
func TokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", ErrNotLoggedIn
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != BearerScheme || parts[1] == "" {
		return "", ErrNotLoggedIn
	}

	return parts[1], nil
}

// Protect authenticates the request: it resolves the bearer token to an
// account, rejecting invalid, expired, and stale sessions, and attaches the
// account to the request context for downstream handlers.
func Protect(auther Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, err := TokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return err
		}

		user, err := auther.Authenticate(c.UserContext(), raw)
		if err != nil {
			return err
		}

		c.Locals(ContextUserKey, user)

		return c.Next()
	}
}

// RestrictTo authorizes an already-authenticated request: the resolved
// account's role must be a member of the allowed set. Pure policy check, no
// I/O; must run after Protect.
func RestrictTo(roles ...UserRole) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, ok := UserFromContext(c)
		if !ok {
			return ErrNotLoggedIn
		}

		for _, role := range roles {
			if user.Role == role {
				return c.Next()
			}
		}

		return ErrForbidden
	}
}

// UserFromContext returns the account attached by Protect.
func UserFromContext(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(ContextUserKey).(*User)
	return user, ok && user != nil
}
