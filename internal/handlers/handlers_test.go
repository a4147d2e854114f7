package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sellerops/internal/dispatch"
	"sellerops/internal/flow"
	"sellerops/internal/ids"
	"sellerops/internal/models"
	"sellerops/internal/services"
	"sellerops/internal/store"
	"sellerops/pkg/auth"
)

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenAuth
	token  string
}

func setupTestApp(t *testing.T) *testServer {
	t.Helper()

	mem := store.NewMemory(ids.NewSequence("rec"))
	metrics := services.NewMetricsWithRegistry(prometheus.NewRegistry())
	taskService := services.NewTaskService(mem, ids.NewSequence("task"), nil, metrics)
	configService := services.NewBlockConfigService(mem, nil, services.NewConfigCache(time.Minute), metrics)
	dispatcher := dispatch.NewDispatcher(configService, mem, dispatch.DefaultTable(), dispatch.WithObserver(metrics))

	tokens, err := auth.NewTokenAuth("test-secret", time.Minute)
	require.NoError(t, err)
	token, err := tokens.IssueAccessToken("seller-1", "seller@example.com", "user")
	require.NoError(t, err)

	app := fiber.New()
	Register(app, Handlers{
		Flows:  NewFlowHandler(taskService),
		Tasks:  NewTaskHandler(taskService),
		Blocks: NewBlockHandler(configService, dispatcher, mem),
		Health: NewHealthHandler(map[string]HealthCheck{
			"store": func(ctx context.Context) error { return nil },
		}),
	}, tokens, nil)

	return &testServer{app: app, tokens: tokens, token: token}
}

func (s *testServer) do(t *testing.T, method, path string, body any) (int, map[string]any) {
	t.Helper()
	return s.doAs(t, s.token, method, path, body)
}

func (s *testServer) doAs(t *testing.T, token, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	data, _ := io.ReadAll(resp.Body)
	if len(data) > 0 {
		_ = json.Unmarshal(data, &out)
	}
	return resp.StatusCode, out
}

func testFlow(t *testing.T) models.Flow {
	t.Helper()
	gen := ids.NewSequence("f")
	f := flow.New(gen, "Restock check", "", models.TriggerManual)
	f, b, err := flow.AddBlock(f, gen, models.CategoryCollect)
	require.NoError(t, err)
	f, _, err = flow.AddStep(f, gen, flow.StepSpec{Title: "Pull inventory", BlockRef: b.ID})
	require.NoError(t, err)
	f, _, err = flow.AddStep(f, gen, flow.StepSpec{Title: "Review", IsAgentStep: true})
	require.NoError(t, err)
	return f
}

func TestHealthHandler(t *testing.T) {
	s := setupTestApp(t)
	status, body := s.doAs(t, "", "GET", "/health", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", body["status"])

	app := fiber.New()
	app.Get("/health", NewHealthHandler(map[string]HealthCheck{
		"redis": func(ctx context.Context) error { return errors.New("connection refused") },
	}).Handle)
	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestAPI_RequiresSession(t *testing.T) {
	s := setupTestApp(t)
	status, body := s.doAs(t, "", "GET", "/api/tasks/tree", nil)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.NotEmpty(t, body["error"])
}

func TestFlowValidateAndArrange(t *testing.T) {
	s := setupTestApp(t)
	f := testFlow(t)

	status, body := s.do(t, "POST", "/api/flows/validate", f)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["valid"])

	broken := f.Clone()
	broken.Steps[0].BlockRef = "missing"
	_, body = s.do(t, "POST", "/api/flows/validate", broken)
	assert.Equal(t, false, body["valid"])
	assert.Contains(t, body["error"], "missing")

	status, body = s.do(t, "POST", "/api/flows/arrange", f)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["connections"], 1)
	arranged := body["flow"].(map[string]any)
	first := arranged["steps"].([]any)[0].(map[string]any)
	assert.NotNil(t, first["canvasPosition"])
}

func TestRunFlowAndTrackSteps(t *testing.T) {
	s := setupTestApp(t)

	status, task := s.do(t, "POST", "/api/flows/run", RunFlowRequest{Flow: testFlow(t)})
	require.Equal(t, fiber.StatusCreated, status)
	id := task["id"].(string)

	status, _ = s.do(t, "POST", "/api/tasks/"+id+"/subtasks", services.TaskInput{Title: "Email supplier"})
	assert.Equal(t, fiber.StatusCreated, status)

	status, tree := s.do(t, "GET", "/api/tasks/tree", nil)
	require.Equal(t, fiber.StatusOK, status)
	roots := tree["tasks"].([]any)
	require.Len(t, roots, 1)
	assert.Len(t, roots[0].(map[string]any)["children"], 1)

	status, updated := s.do(t, "POST", "/api/tasks/"+id+"/steps/1/complete", map[string]string{"note": "looks fine"})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, []any{float64(1)}, updated["steps_completed"])

	status, _ = s.do(t, "POST", "/api/tasks/"+id+"/steps/x/complete", nil)
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, cleared := s.do(t, "POST", "/api/tasks/"+id+"/steps/clear", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, cleared["steps_completed"])

	dangling := map[string]any{
		"steps":  []models.Step{{ID: "s9", Title: "Collect", BlockRef: "gone"}},
		"blocks": []models.Block{},
	}
	status, _ = s.do(t, "PUT", "/api/tasks/"+id+"/steps", dangling)
	assert.Equal(t, fiber.StatusConflict, status)

	status, _ = s.do(t, "PATCH", "/api/tasks/"+id+"/status", map[string]string{"status": "Done"})
	assert.Equal(t, fiber.StatusOK, status)
	status, _ = s.do(t, "PATCH", "/api/tasks/"+id+"/status", map[string]string{"status": "Done-ish"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = s.do(t, "DELETE", "/api/tasks/"+id, nil)
	assert.Equal(t, fiber.StatusNoContent, status)
	status, _ = s.do(t, "GET", "/api/tasks/"+id, nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestTasksAreScopedToSession(t *testing.T) {
	s := setupTestApp(t)
	status, task := s.do(t, "POST", "/api/tasks", services.TaskInput{Title: "Private"})
	require.Equal(t, fiber.StatusCreated, status)

	other, err := s.tokens.IssueAccessToken("seller-2", "", "user")
	require.NoError(t, err)
	status, _ = s.doAs(t, other, "GET", "/api/tasks/"+task["id"].(string), nil)
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestBlockConfigsAndDispatch(t *testing.T) {
	s := setupTestApp(t)

	status, body := s.do(t, "GET", "/api/blocks/catalog", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["categories"], 4)

	status, _ = s.do(t, "PUT", "/api/block-configs", map[string]any{"category": "collect", "name": "Upload Sheet"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, "POST", "/api/blocks/dispatch", dispatch.Request{
		BlockID: "b1", Category: models.CategoryThink, Name: "Analyze Trends", Input: map[string]any{"sku": "A1"},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["demoMode"])

	status, body = s.do(t, "GET", "/api/blocks/b1/executions", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["executions"], 1)

	status, _ = s.do(t, "POST", "/api/blocks/dispatch", map[string]any{"category": "publish", "name": "x"})
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = s.do(t, "PUT", "/api/block-configs", map[string]any{
		"category": "act", "name": "Generate Report", "isFunctional": true, "configData": map[string]any{},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["is_functional"])

	status, body = s.do(t, "POST", "/api/blocks/dispatch", dispatch.Request{
		Category: models.CategoryAct, Name: "Generate Report", Input: map[string]any{"markdown": "# Weekly"},
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["demoMode"])
	assert.Contains(t, body["result"].(map[string]any)["html"], "<h1>Weekly</h1>")

	status, body = s.do(t, "PATCH", "/api/block-configs/functional", map[string]any{
		"category": "act", "name": "Generate Report", "isFunctional": false,
	})
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["is_functional"])

	status, body = s.do(t, "GET", "/api/block-configs?category=act", nil)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Len(t, body["configs"], 1)
}
