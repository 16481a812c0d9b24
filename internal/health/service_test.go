package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type checkFunc func(context.Context) error

func (f checkFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

func get(t *testing.T, app *fiber.App) (int, OverallHealth) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/v1/health", nil))
	require.NoError(t, err)
	defer resp.Body.Close()
	var body OverallHealth
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp.StatusCode, body
}

func TestHealth(t *testing.T) {
	dbErr := errors.New("database is locked")
	var failing atomic.Bool
	h := NewHealthHandler(map[string]Checker{
		"redis": checkFunc(func(context.Context) error { return nil }),
		"database": checkFunc(func(context.Context) error {
			if failing.Load() {
				return dbErr
			}
			return nil
		}),
	})
	app := fiber.New()
	app.Get("/v1/health", h.HandleHealth)

	status, body := get(t, app)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "starting", body.OverallStatus)

	h.SetReady()
	status, body = get(t, app)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body.OverallStatus)
	assert.Len(t, body.Components, 2)

	failing.Store(true)
	status, body = get(t, app)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "error", body.OverallStatus)
	assert.Equal(t, ComponentStatus{Status: "error", Error: dbErr.Error()}, body.Components["database"])
}

func TestRateLimiter(t *testing.T) {
	app := fiber.New()
	app.Get("/", RateLimiter(2), func(c *fiber.Ctx) error { return c.SendString("ok") })

	for i, want := range []int{200, 200, 429} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, want, resp.StatusCode, "request %d", i+1)
	}
}
