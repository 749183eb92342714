package cmd

import (
	"io"
	"net/http/httptest"
	"testing"

	"schema-manager/core/config"
	"schema-manager/core/loader"
	"schema-manager/core/metrics"
	"schema-manager/core/server"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewApp_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	recorder, err := metrics.New("", reg)
	require.NoError(t, err)
	recorder.SessionOpened()

	cfg := &config.Config{Server: server.Config{Port: "0", ApiKey: "secret"}}
	app, err := newApp(cfg, zap.NewNop(), loader.NewManager(), reg)
	require.NoError(t, err)

	t.Run("Unauthorized", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
		require.NoError(t, err)
		assert.Equal(t, 401, resp.StatusCode)
		assert.NotEmpty(t, resp.Header.Get("X-Ray-ID"))
	})

	t.Run("Authorized", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/metrics", nil)
		req.Header.Set("X-API-Key", "secret")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "schema_manager_sessions_active 1")
	})
}

func TestNewApp_NoAuth(t *testing.T) {
	cfg := &config.Config{Server: server.Config{Port: "0"}}
	app, err := newApp(cfg, zap.NewNop(), loader.NewManager(), prometheus.NewRegistry())
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}
