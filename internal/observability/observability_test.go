package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/ticket-chat/internal/config"
)

func TestNewLogger_FallsBackOnBadLevel(t *testing.T) {
	logger, err := NewLogger(config.LoggerConfig{Level: "loud", Encoding: "console", Output: "stderr"})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zap.InfoLevel))
	require.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestMetrics_Snapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/a", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/a", "GET", 200, 30*time.Millisecond)
	m.RecordError("/b", "POST", "NOT_FOUND")
	m.RecordEvent("published")

	snap := m.Snapshot()
	require.Equal(t, []RequestStat{{Route: "/a", Method: "GET", Status: 200, Count: 2, AvgMillis: 20}}, snap.Requests)
	require.Equal(t, []ErrorStat{{Route: "/b", Method: "POST", Code: "NOT_FOUND", Count: 1}}, snap.Errors)
	require.Equal(t, int64(1), snap.Events["published"])
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/a", "GET", 200, time.Millisecond)
	m.RecordError("/a", "GET", "X")
	m.RecordEvent("published")
	require.Empty(t, m.Snapshot().Requests)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	metrics := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.New(core), metrics))
	app.Get("/items/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) })
	app.Get("/boom", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusBadGateway) })

	for _, path := range []string{"/items/1", "/items/2", "/boom"} {
		resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil), -1)
		require.NoError(t, err)
		resp.Body.Close()
	}

	require.Equal(t, 3, logs.Len())
	require.Equal(t, 1, logs.FilterLevelExact(zap.ErrorLevel).Len())

	snap := metrics.Snapshot()
	require.Len(t, snap.Requests, 2)
	require.Equal(t, "/boom", snap.Requests[0].Route)
	require.Equal(t, "/items/:id", snap.Requests[1].Route)
	require.Equal(t, int64(2), snap.Requests[1].Count)
}
