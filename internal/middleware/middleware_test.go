package middleware

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fathima-sithara/quickads/internal/auth"
	"github.com/fathima-sithara/quickads/internal/httpclient"
)

func verifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()
	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
	require.NoError(t, err)
	v, err := auth.NewVerifierFromPEM(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
	require.NoError(t, err)
	return v, priv
}

func token(t *testing.T, priv *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(priv)
	require.NoError(t, err)
	return s
}

func whoami(c *fiber.Ctx) error {
	p := Principal(c)
	return c.JSON(fiber.Map{"user": p.UserID, "roles": p.Roles})
}

func do(t *testing.T, app *fiber.App, path, bearer string) (int, string) {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestJWTRequired(t *testing.T) {
	v, priv := verifier(t)
	app := fiber.New()
	app.Get("/me", JWT(v, true, zap.NewNop()), whoami)

	code, _ := do(t, app, "/me", "")
	assert.Equal(t, 401, code)

	code, _ = do(t, app, "/me", "garbage")
	assert.Equal(t, 401, code)

	tok := token(t, priv, jwt.MapClaims{"user_id": "u-1", "exp": time.Now().Add(time.Hour).Unix()})
	code, body := do(t, app, "/me", tok)
	assert.Equal(t, 200, code)
	assert.JSONEq(t, `{"user":"u-1","roles":null}`, body)
}

func TestJWTOptional(t *testing.T) {
	v, _ := verifier(t)
	app := fiber.New()
	app.Get("/ads", JWT(v, false, zap.NewNop()), whoami)

	code, body := do(t, app, "/ads", "")
	assert.Equal(t, 200, code)
	assert.JSONEq(t, `{"user":"","roles":null}`, body)
}

func TestRequireRole(t *testing.T) {
	v, priv := verifier(t)
	app := fiber.New()
	app.Get("/admin", JWT(v, true, zap.NewNop()), RequireRole("admin"), whoami)

	user := token(t, priv, jwt.MapClaims{"user_id": "u-1"})
	code, _ := do(t, app, "/admin", user)
	assert.Equal(t, 403, code)

	admin := token(t, priv, jwt.MapClaims{"user_id": "root", "roles": []string{"admin"}})
	code, _ = do(t, app, "/admin", admin)
	assert.Equal(t, 200, code)
}

func TestRequestIDPropagates(t *testing.T) {
	app := fiber.New()
	app.Use(RequestID())
	app.Get("/", func(c *fiber.Ctx) error {
		rid, _ := c.UserContext().Value(httpclient.RequestIDKey{}).(string)
		return c.SendString(rid)
	})

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, err := app.Test(req)
	require.NoError(t, err)
	b, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "abc-123", string(b))
	assert.Equal(t, "abc-123", resp.Header.Get(HeaderRequestID))

	resp, err = app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(HeaderRequestID), 36)
}

type denyAfter struct{ n int }

func (d *denyAfter) Allow(context.Context, string) (bool, error) {
	d.n--
	return d.n >= 0, nil
}

func TestRateLimit(t *testing.T) {
	app := fiber.New()
	app.Use(Logger(zap.NewNop()), Metrics(), RateLimit(&denyAfter{n: 1}, zap.NewNop()))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(204) })

	code, _ := do(t, app, "/", "")
	assert.Equal(t, 204, code)
	code, body := do(t, app, "/", "")
	assert.Equal(t, 429, code)
	assert.Contains(t, body, "rate limit exceeded")
}
