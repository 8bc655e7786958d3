package middleware

import (
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shrimp-trace/internal/model"
	"shrimp-trace/pkg/jwt"
)

type fakeSessions map[uuid.UUID]string

func (f fakeSessions) TokenVersion(_ model.AccountKind, id uuid.UUID) (string, error) {
	v, ok := f[id]
	if !ok {
		return "", errors.New("not found")
	}
	return v, nil
}

func newApp(sessions SessionStore, guard fiber.Handler) *fiber.App {
	app := fiber.New()
	app.Get("/packages", RequireAuth(sessions), guard, func(c *fiber.Ctx) error {
		return c.SendString(c.Locals(LocalName).(string))
	})
	return app
}

func token(t *testing.T, id uuid.UUID, kind model.AccountKind, version string) string {
	t.Helper()
	tok, err := jwt.GenerateToken(id, jwt.Kind(kind), "Gulf Seafood Export", model.PrivilegesFor(kind), version)
	require.NoError(t, err)
	return tok
}

func TestRequireAuth(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-secret")
	id := uuid.New()
	sessions := fakeSessions{id: "v2"}
	app := newApp(sessions, RequirePrivilege(model.PrivPackageCreate))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", 401},
		{"bad scheme", "Token abc", 401},
		{"garbage token", "Bearer abc", 401},
		{"stale session", "Bearer " + token(t, id, model.AccountExporting, "v1"), 401},
		{"unknown account", "Bearer " + token(t, uuid.New(), model.AccountExporting, "v2"), 401},
		{"farming lacks privilege", "Bearer " + token(t, id, model.AccountFarming, "v2"), 403},
		{"ok", "Bearer " + token(t, id, model.AccountExporting, "v2"), 200},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/packages", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.StatusCode)
		})
	}
}

func TestRequireAnyPrivilege(t *testing.T) {
	t.Setenv("JWT_SECRET", "middleware-secret")
	id := uuid.New()
	app := newApp(fakeSessions{id: "v1"}, RequireAnyPrivilege(model.PrivPackageViewAll, model.PrivPackageRegenerQR))

	req := httptest.NewRequest("GET", "/packages", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, id, model.AccountExporting, "v1"))
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	req = httptest.NewRequest("GET", "/packages", nil)
	req.Header.Set("Authorization", "Bearer "+token(t, id, model.AccountOperator, "v1"))
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
