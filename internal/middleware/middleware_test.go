package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ethereum/go-ethereum/common"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const wallet = "0x00000000000000000000000000000000000000a1"

func setupRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return rdb, mr
}

func TestSession_LoginPersistsAndLoads(t *testing.T) {
	rdb, mr := setupRedis(t)
	app := fiber.New()
	app.Use(Session(rdb))
	var sid string
	app.Post("/login", func(c *fiber.Ctx) error {
		sid = RegenerateSessionID(c)
		SetSessionUser(c, SessionUser{Address: wallet})
		return c.SendStatus(fiber.StatusOK)
	})
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error {
		addr, _ := SessionAddress(c)
		return c.SendString(addr.Hex())
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/login", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	require.True(t, mr.Exists(SessionRedisPrefix+sid))

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+sid)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, common.HexToAddress(wallet).Hex(), string(body))
}

func TestRequireAuth_NoSession(t *testing.T) {
	rdb, _ := setupRedis(t)
	app := fiber.New()
	app.Use(Session(rdb))
	app.Get("/me", RequireAuth(), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+uuid.New().String())
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 401, resp.StatusCode)

	var out map[string]interface{}
	body, _ := io.ReadAll(resp.Body)
	require.NoError(t, json.Unmarshal(body, &out))
	assert.Equal(t, "error", out["status"])
}

func TestSession_AnonymousRequestsAreNotStored(t *testing.T) {
	rdb, mr := setupRedis(t)
	app := fiber.New()
	app.Use(Session(rdb))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Cookie", SessionCookieName+"="+uuid.New().String())
	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestRequireAdminKey(t *testing.T) {
	app := fiber.New()
	app.Post("/sync", RequireAdminKey("s3cret"), func(c *fiber.Ctx) error { return c.SendStatus(200) })

	resp, err := app.Test(httptest.NewRequest("POST", "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync?key=wrong", nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("POST", "/sync?key=s3cret", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	req := httptest.NewRequest("POST", "/sync", nil)
	req.Header.Set("X-Admin-Key", "s3cret")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	disabled := fiber.New()
	disabled.Post("/sync", RequireAdminKey(""), func(c *fiber.Ctx) error { return c.SendStatus(200) })
	resp, err = disabled.Test(httptest.NewRequest("POST", "/sync?key=", nil))
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)
}

func TestTracing(t *testing.T) {
	app := fiber.New()
	app.Use(Tracing())
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString(GetTraceID(c)) })

	resp, err := app.Test(httptest.NewRequest("GET", "/", nil))
	require.NoError(t, err)
	generated := resp.Header.Get("X-Trace-Id")
	_, err = uuid.Parse(generated)
	assert.NoError(t, err)

	id := uuid.New().String()
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", id)
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, id, resp.Header.Get("X-Trace-Id"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("X-Trace-Id", "not-a-uuid")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.NotEqual(t, "not-a-uuid", resp.Header.Get("X-Trace-Id"))
}

func TestCORS(t *testing.T) {
	app := fiber.New()
	app.Use(CORS(CORSConfig{AllowedSuffix: ".houseform.app", DevPassword: "letmein"}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://www.houseform.app")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "https://www.houseform.app", resp.Header.Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 403, resp.StatusCode)

	req.Header.Set("dev-password", "letmein")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestCORS_LocalhostPreflight(t *testing.T) {
	for _, allow := range []bool{true, false} {
		app := fiber.New()
		app.Use(CORS(CORSConfig{AllowedSuffix: ".houseform.app", AllowLocalhost: allow}))
		app.Get("/", func(c *fiber.Ctx) error { return c.SendStatus(200) })

		req := httptest.NewRequest("OPTIONS", "/", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		resp, err := app.Test(req)
		require.NoError(t, err)
		if allow {
			assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
			assert.Equal(t, "true", resp.Header.Get("Access-Control-Allow-Credentials"))
		} else {
			assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
		}
	}
}

func TestHealthMarker_CountsAndLogsErrors(t *testing.T) {
	rdb, _ := setupRedis(t)
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Use(Tracing())
	app.Use(HealthMarker(rdb))
	app.Get("/ok", func(c *fiber.Ctx) error { return c.SendStatus(200) })
	app.Get("/boom", func(c *fiber.Ctx) error { return errors.New("boom") })
	app.Get("/health/json", func(c *fiber.Ctx) error { return c.SendStatus(200) })

	for _, path := range []string{"/ok", "/boom", "/health/json"} {
		_, err := app.Test(httptest.NewRequest("GET", path, nil))
		require.NoError(t, err)
	}

	ctx := context.Background()
	total, err := rdb.Get(ctx, KeyReqTotal).Int()
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	failed, err := rdb.Get(ctx, KeyReqErrors).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, failed)

	entries, err := rdb.LRange(ctx, KeyErrorLog, 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(entries[0]), &entry))
	assert.Equal(t, "/boom", entry["path"])
	assert.Equal(t, "boom", entry["message"])
}
