package integrity

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"schema-manager/core/dialect"
	"schema-manager/core/schema"
	"schema-manager/core/storage"
	"schema-manager/core/storage/mocks"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupTestApp(t *testing.T, name string) (*fiber.App, *mocks.Client) {
	app := fiber.New()
	mockClient := new(mocks.Client)
	db, identity := setupSQLite(t, name)
	storageCfg := storage.Config{Enabled: true, Bucket: "schema-scripts", Prefix: "scripts"}
	svc := NewService(db, identity, dialect.SQLite(), schema.UpperCase, mockClient, storageCfg, zap.NewNop())
	handler := NewHandler(svc)
	handler.RegisterRoutes(app)
	return app, mockClient
}

func TestHandleSchemaCheck(t *testing.T) {
	app, _ := setupTestApp(t, "integrity_handler")

	body := `{"tables":[{"name":"orders","columns":[{"name":"id","type":"INTEGER"}]}]}`
	req := httptest.NewRequest("POST", "/integrity", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)

	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	var report map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, false, report["matched"])
	tables := report["tables"].(map[string]any)
	assert.Equal(t, "missing", tables["orders"].(map[string]any)["status"])
}

func TestHandleSchemaCheck_BadRequest(t *testing.T) {
	app, _ := setupTestApp(t, "integrity_bad_request")

	t.Run("Malformed Body", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/integrity", strings.NewReader(`{"tables":`))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("Unknown Type", func(t *testing.T) {
		body := `{"tables":[{"name":"orders","columns":[{"name":"id","type":"UUID"}]}]}`
		req := httptest.NewRequest("POST", "/integrity", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})

	t.Run("Duplicate Names", func(t *testing.T) {
		body := `{"tables":[{"name":"orders"},{"name":"ORDERS"}]}`
		req := httptest.NewRequest("POST", "/integrity", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, 400, resp.StatusCode)
	})
}

func TestHandleArchiveCheck(t *testing.T) {
	t.Run("Checked", func(t *testing.T) {
		app, mockClient := setupTestApp(t, "integrity_archive_checked")
		mockClient.On("BucketExists", mock.Anything, "schema-scripts").Return(true, nil)
		ch := make(chan minio.ObjectInfo)
		close(ch)
		mockClient.On("ListObjects", mock.Anything, "schema-scripts", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

		resp, err := app.Test(httptest.NewRequest("GET", "/integrity/archive", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "checked", body["status"])
	})

	t.Run("Fixed", func(t *testing.T) {
		app, mockClient := setupTestApp(t, "integrity_archive_fixed")
		mockClient.On("BucketExists", mock.Anything, "schema-scripts").Return(false, nil)
		mockClient.On("MakeBucket", mock.Anything, "schema-scripts", mock.Anything).Return(nil)

		resp, err := app.Test(httptest.NewRequest("GET", "/integrity/archive?fix=true", nil))
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "fixed", body["status"])
		mockClient.AssertExpectations(t)
	})

	t.Run("Disabled", func(t *testing.T) {
		app := fiber.New()
		svc := NewService(nil, setupIdentity(), dialect.SQLite(), schema.UpperCase, nil, storage.Config{}, zap.NewNop())
		NewHandler(svc).RegisterRoutes(app)

		resp, err := app.Test(httptest.NewRequest("GET", "/integrity/archive", nil))
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})
}
