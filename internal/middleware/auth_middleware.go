package middleware

import (
	"strings"

	"shrimp-trace/internal/model"
	"shrimp-trace/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// Locals keys set by RequireAuth.
const (
	LocalAccountID  = "account_id"
	LocalKind       = "account_kind"
	LocalName       = "account_name"
	LocalPrivileges = "account_privileges"
)

// SessionStore reports the live token version of an account.
type SessionStore interface {
	TokenVersion(kind model.AccountKind, id uuid.UUID) (string, error)
}

// RequireAuth validates the bearer token and checks it against the
// account's current session before exposing the account in Locals.
func RequireAuth(sessions SessionStore) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": err.Error()})
		}

		claims, err := jwt.ValidateToken(tokenString)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
		}

		kind := model.AccountKind(claims.Kind)
		version, err := sessions.TokenVersion(kind, claims.AccountID)
		if err != nil {
			return c.Status(401).JSON(fiber.Map{"error": "Account not found"})
		}
		if version != claims.TokenVersion {
			return c.Status(401).JSON(fiber.Map{"error": "Session expired (logged in on another device)"})
		}

		c.Locals(LocalAccountID, claims.AccountID)
		c.Locals(LocalKind, kind)
		c.Locals(LocalName, claims.Name)
		c.Locals(LocalPrivileges, claims.Privileges)

		return c.Next()
	}
}

// bearerToken reads "Authorization: Bearer <token>". Browsers cannot set
// headers on a websocket handshake, so ?token= is accepted there.
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		if t := c.Query("token"); t != "" && strings.HasPrefix(c.Path(), "/ws") {
			return t, nil
		}
		return "", fiber.NewError(401, "Missing authorization token")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", fiber.NewError(401, "Invalid authorization format. Use: Bearer <token>")
	}
	return parts[1], nil
}

// RequirePrivilege checks if the authenticated account has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, p := range privileges {
			if p == requiredPrivilege {
				return c.Next()
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the account has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(LocalPrivileges).([]string)
		if !ok {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, have := range privileges {
			for _, want := range requiredPrivileges {
				if have == want {
					return c.Next()
				}
			}
		}

		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}
