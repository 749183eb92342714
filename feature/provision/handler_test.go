package provision

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, name string) *fiber.App {
	app := fiber.New()
	NewHandler(newTestService(t, name, nil)).RegisterRoutes(app)
	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)

	var out map[string]any
	if resp.StatusCode != fiber.StatusNoContent {
		_ = json.NewDecoder(resp.Body).Decode(&out)
	}
	return resp, out
}

const mutateBody = `{
	"schema": {
		"tables": [{"name": "people", "columns": [{"name": "id", "type": "INTEGER", "primaryKey": true}]}],
		"views": [{"name": "people_ids", "select": "SELECT \"id\" FROM \"people\""}]
	},
	"truncation": "always"
}`

func TestHandler_SessionFlow(t *testing.T) {
	app := setupTestApp(t, "provision_handler")

	resp, body := doJSON(t, app, "POST", "/sessions", "")
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	resp, body = doJSON(t, app, "POST", "/sessions/"+id+"/mutate", mutateBody)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []any{"people"}, body["tables_deployed"])
	assert.Equal(t, []any{"people_ids"}, body["views_deployed"])

	resp, body = doJSON(t, app, "GET", "/sessions/"+id, "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	cache := body["cache"].(map[string]any)
	assert.Equal(t, true, cache["tables_loaded"])

	resp, _ = doJSON(t, app, "POST", "/sessions/"+id+"/invalidate", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "DELETE", "/sessions/"+id+"/views", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "POST", "/sessions/"+id+"/drop-tables", `{"tables": ["people"]}`)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, _ = doJSON(t, app, "DELETE", "/sessions/"+id+"/tables", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, app, "GET", "/sessions", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, body["sessions"], 1)

	resp, _ = doJSON(t, app, "DELETE", "/sessions/"+id, "")
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, "DELETE", "/sessions/"+id, "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandler_Errors(t *testing.T) {
	app := setupTestApp(t, "provision_handler_errors")

	resp, body := doJSON(t, app, "POST", "/sessions", `{"database": ""}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	id := body["id"].(string)

	t.Run("Unknown Session", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/sessions/missing/mutate", mutateBody)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Bad Truncation", func(t *testing.T) {
		resp, _ := doJSON(t, app, "POST", "/sessions/"+id+"/mutate", `{"schema": {"tables": []}, "truncation": "sometimes"}`)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Invalid Schema", func(t *testing.T) {
		body := `{"schema": {"tables": [{"name": "a", "columns": [{"name": "id", "type": "INTEGER"}]}, {"name": "A", "columns": [{"name": "id", "type": "INTEGER"}]}]}}`
		resp, _ := doJSON(t, app, "POST", "/sessions/"+id+"/mutate", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("View Cycle", func(t *testing.T) {
		body := `{"schema": {"views": [
			{"name": "v1", "select": "SELECT 1", "dependsOn": ["v2"]},
			{"name": "v2", "select": "SELECT 2", "dependsOn": ["v1"]}
		]}}`
		resp, _ := doJSON(t, app, "POST", "/sessions/"+id+"/mutate", body)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Script Failure", func(t *testing.T) {
		body := `{"schema": {"views": [{"name": "broken", "select": "NOT A QUERY"}]}}`
		resp, out := doJSON(t, app, "POST", "/sessions/"+id+"/mutate", body)
		assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
		assert.Contains(t, out["statement"], "broken")
	})
}
