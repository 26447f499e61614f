package http_test

import (
	"encoding/json"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpx "github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/interfaces/http"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/internal/domain/entity"
	"github.com/kevinvillajim/bcommerceBackEnd-sub004/pkg/jwt"
)

const testSecret = "secreto-de-pruebas"

// ── Helpers ──────────────────────────────────────────────────────────────────

// buildAuthTestApp app mínima con el middleware de auth y una ruta admin.
func buildAuthTestApp() *fiber.App {
	app := fiber.New()
	protected := app.Group("/", httpx.AuthMiddleware(testSecret))
	protected.Get("/me", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"user_id": httpx.GetUserID(c),
			"role":    httpx.GetRole(c),
		})
	})
	protected.Post("/admin-only", httpx.RequireAdmin(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app
}

func tokenForRole(t *testing.T, role string) string {
	t.Helper()
	token, err := jwt.Generate(testSecret, "user-1", role, "test", 15)
	require.NoError(t, err)
	return token
}

func doRequest(t *testing.T, app *fiber.App, method, path, token string) *nethttp.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *nethttp.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

// ── AuthMiddleware ───────────────────────────────────────────────────────────

func TestAuthMiddleware_SinHeaderEs401(t *testing.T) {
	app := buildAuthTestApp()

	resp := doRequest(t, app, fiber.MethodGet, "/me", "")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "MISSING_TOKEN", decodeBody(t, resp)["code"])
}

func TestAuthMiddleware_FormatoInvalidoEs401(t *testing.T) {
	app := buildAuthTestApp()

	req := httptest.NewRequest(fiber.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic abc123")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_TOKEN", decodeBody(t, resp)["code"])
}

func TestAuthMiddleware_TokenInvalidoEs401(t *testing.T) {
	app := buildAuthTestApp()

	resp := doRequest(t, app, fiber.MethodGet, "/me", "no-es-un-jwt")

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_FirmaConOtroSecretoEs401(t *testing.T) {
	app := buildAuthTestApp()
	token, err := jwt.Generate("otro-secreto", "user-1", entity.RoleAdmin, "test", 15)
	require.NoError(t, err)

	resp := doRequest(t, app, fiber.MethodGet, "/me", token)

	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddleware_TokenValidoExtraeClaims(t *testing.T) {
	app := buildAuthTestApp()

	resp := doRequest(t, app, fiber.MethodGet, "/me", tokenForRole(t, entity.RoleOperator))

	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "user-1", body["user_id"], "el UserID queda en locals")
	assert.Equal(t, entity.RoleOperator, body["role"])
}

// ── RequireAdmin ─────────────────────────────────────────────────────────────

func TestRequireAdmin_AdminAccede(t *testing.T) {
	app := buildAuthTestApp()

	resp := doRequest(t, app, fiber.MethodPost, "/admin-only", tokenForRole(t, entity.RoleAdmin))

	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestRequireAdmin_OperadorRecibe403(t *testing.T) {
	app := buildAuthTestApp()

	resp := doRequest(t, app, fiber.MethodPost, "/admin-only", tokenForRole(t, entity.RoleOperator))

	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "FORBIDDEN", decodeBody(t, resp)["code"])
}
