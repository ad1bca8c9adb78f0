package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"smart-meal-be/internal/entity"
	"smart-meal-be/internal/pkg/logger"
	"smart-meal-be/internal/pkg/serverutils"
	"smart-meal-be/internal/repository/fallback"
	"smart-meal-be/internal/repository/memory"
	"smart-meal-be/internal/service"
	"smart-meal-be/pkg/bargain"
	"smart-meal-be/pkg/capability"
	"smart-meal-be/pkg/filestore"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

type nopPublisher struct{}

func (nopPublisher) PublishStatus(ctx context.Context, sessionID string, status entity.SessionStatus, errMsg string) {
}

func newTestApp(t *testing.T) (*fiber.App, *fallback.SessionStore) {
	t.Helper()
	log := logger.NewNopLogger()

	files, err := filestore.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	gateway := capability.NewGateway(nil, files, log, capability.WithMockLatency(0))
	store := fallback.NewSessionStore(nil, memory.NewSessionRepository(), log)

	sessions := service.NewSessionService(store, files, nopPublisher{}, entity.RerunReject, log)
	analysis := service.NewAnalysisService(store, gateway, bargain.NewStaticProvider(), nopPublisher{}, entity.RerunReject, log)

	app := fiber.New()
	app.Use(serverutils.ErrorHandlerMiddleware(log))
	NewHealthController(nil, gateway.Mode).RegisterRoutes(app)

	api := app.Group("/api")
	NewSessionController(sessions, analysis).RegisterRoutes(api)
	NewRecipeController(service.NewRecipeService(gateway)).RegisterRoutes(api)
	NewAdminController(service.NewAdminService(store, nil, false, log)).RegisterRoutes(api)
	return app, store
}

func do(t *testing.T, app *fiber.App, req *http.Request, out interface{}) int {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(body, out), string(body))
	}
	return resp.StatusCode
}

func uploadRequest(t *testing.T, sessionID string, names ...string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, name := range names {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/session/"+sessionID+"/images", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)

	var created struct {
		SessionId string `json:"session_id"`
	}
	code := do(t, app, httptest.NewRequest(http.MethodPost, "/api/sessions", nil), &created)
	require.Equal(t, 200, code)
	require.NotEmpty(t, created.SessionId)
	id := created.SessionId

	var status map[string]interface{}
	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/session/"+id+"/status", nil), &status)
	assert.Equal(t, 200, code)
	assert.Equal(t, "waiting", status["status"])

	var uploaded struct {
		Status string   `json:"status"`
		Count  int      `json:"count"`
		Paths  []string `json:"paths"`
	}
	code = do(t, app, uploadRequest(t, id, "fridge.png", "pantry.png"), &uploaded)
	require.Equal(t, 200, code)
	assert.Equal(t, "uploaded", uploaded.Status)
	assert.Equal(t, 2, uploaded.Count)
	assert.Len(t, uploaded.Paths, 2)

	var analyzed struct {
		Status      string              `json:"status"`
		Ingredients []entity.Ingredient `json:"ingredients"`
		Source      string              `json:"source"`
	}
	code = do(t, app, httptest.NewRequest(http.MethodPost, "/api/session/"+id+"/analyze", nil), &analyzed)
	require.Equal(t, 200, code)
	assert.Equal(t, "done", analyzed.Status)
	assert.Equal(t, capability.MockIngredients(), analyzed.Ingredients)
	assert.Equal(t, string(entity.SourceMock), analyzed.Source)

	var result struct {
		Status       string                `json:"status"`
		MealPlan     []entity.DayEntry     `json:"mealPlan"`
		ShoppingList []entity.ShoppingItem `json:"shoppingList"`
	}
	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/session/"+id+"/result", nil), &result)
	require.Equal(t, 200, code)
	assert.Equal(t, "done", result.Status)
	assert.Equal(t, capability.MockPlan(), result.MealPlan)
	assert.Equal(t, capability.MockShoppingList(), result.ShoppingList)

	// a finished session rejects both another run and more uploads
	code = do(t, app, httptest.NewRequest(http.MethodPost, "/api/session/"+id+"/analyze", nil), nil)
	assert.Equal(t, 409, code)
	code = do(t, app, uploadRequest(t, id, "late.png"), nil)
	assert.Equal(t, 409, code)
}

func TestSessionErrorsOverHTTP(t *testing.T) {
	app, _ := newTestApp(t)

	var body serverutils.BaseResponse[any]
	code := do(t, app, httptest.NewRequest(http.MethodPost, "/api/session/ghost/analyze", nil), &body)
	assert.Equal(t, 404, code)
	assert.Equal(t, "session ghost not found", body.Message)

	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/session/ghost/result", nil), nil)
	assert.Equal(t, 404, code)

	var status map[string]interface{}
	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/session/ghost/status", nil), &status)
	assert.Equal(t, 200, code)
	assert.Equal(t, "waiting", status["status"])
	assert.Nil(t, status["ingredients"])

	code = do(t, app, uploadRequest(t, "ghost"), &body)
	assert.Equal(t, 400, code)

	req := httptest.NewRequest(http.MethodPost, "/api/session/ghost/images", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "text/plain")
	code = do(t, app, req, nil)
	assert.Equal(t, 400, code)
}

func TestAnalyzeWithoutImagesIsRejected(t *testing.T) {
	app, store := newTestApp(t)
	id, err := store.Create(context.Background())
	require.NoError(t, err)

	var body serverutils.BaseResponse[any]
	code := do(t, app, httptest.NewRequest(http.MethodPost, "/api/session/"+id+"/analyze", nil), &body)
	assert.Equal(t, 400, code)
	assert.Equal(t, "no images uploaded", body.Message)

	session, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusWaiting, session.Status)
}

func TestUploadAutoCreatesSession(t *testing.T) {
	app, store := newTestApp(t)

	code := do(t, app, uploadRequest(t, "kitchen-1", "a.png"), nil)
	require.Equal(t, 200, code)

	session, err := store.Get(context.Background(), "kitchen-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SessionStatusUploaded, session.Status)
	assert.Len(t, session.ImagePaths, 1)
}

func TestSuggestRecipes(t *testing.T) {
	app, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/recipes/suggest", strings.NewReader(`{"ingredient":"tofu"}`))
	req.Header.Set("Content-Type", "application/json")
	var res struct {
		Recipes []string `json:"recipes"`
		Source  string   `json:"source"`
	}
	code := do(t, app, req, &res)
	require.Equal(t, 200, code)
	assert.Len(t, res.Recipes, 3)
	assert.Equal(t, string(entity.SourceMock), res.Source)

	req = httptest.NewRequest(http.MethodPost, "/api/recipes/suggest", strings.NewReader(`{"ingredient":""}`))
	req.Header.Set("Content-Type", "application/json")
	var body serverutils.BaseResponse[any]
	code = do(t, app, req, &body)
	assert.Equal(t, 400, code)
	assert.Equal(t, "ingredient is required", body.Message)
}

func TestAdminRoutes(t *testing.T) {
	app, store := newTestApp(t)
	id, err := store.Create(context.Background())
	require.NoError(t, err)

	var backend serverutils.BaseResponse[map[string]string]
	code := do(t, app, httptest.NewRequest(http.MethodGet, "/api/admin/session/"+id+"/backend", nil), &backend)
	require.Equal(t, 200, code)
	assert.True(t, backend.Success)
	assert.Equal(t, "memory", backend.Data["backend"])

	var list serverutils.BaseResponse[[]map[string]interface{}]
	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/admin/sessions?limit=5", nil), &list)
	require.Equal(t, 200, code)
	assert.Len(t, list.Data, 1)

	var filtered serverutils.BaseResponse[[]map[string]interface{}]
	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/admin/sessions?status=done", nil), &filtered)
	require.Equal(t, 200, code)
	assert.Empty(t, filtered.Data)

	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/admin/sessions?status=finished", nil), nil)
	assert.Equal(t, 400, code)

	// no durable database configured
	code = do(t, app, httptest.NewRequest(http.MethodPost, "/api/admin/reset-schema", nil), nil)
	assert.Equal(t, 403, code)

	var reset serverutils.BaseResponse[map[string]int]
	code = do(t, app, httptest.NewRequest(http.MethodPost, "/api/admin/reset", nil), &reset)
	require.Equal(t, 200, code)
	assert.Equal(t, 1, reset.Data["cleared"])

	code = do(t, app, httptest.NewRequest(http.MethodGet, "/api/admin/logs?level=TRACE", nil), nil)
	assert.Equal(t, 400, code)
}

func TestHealth(t *testing.T) {
	app, _ := newTestApp(t)

	var health map[string]string
	code := do(t, app, httptest.NewRequest(http.MethodGet, "/health", nil), &health)
	require.Equal(t, 200, code)
	assert.Equal(t, "ok", health["status"])
	assert.Equal(t, "fallback", health["db"])
	assert.Equal(t, "mock", health["gateway"])
}
