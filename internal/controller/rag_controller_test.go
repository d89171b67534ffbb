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

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/pkg/serverutils"
	"ai-docqa-be/pkg/rag/ragerr"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRagService struct {
	mock.Mock
}

func (m *mockRagService) Ask(ctx context.Context, req *dto.AskRequest) (*dto.AskResponse, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*dto.AskResponse)
	return res, args.Error(1)
}

func (m *mockRagService) Reindex(ctx context.Context) (*dto.ReindexResponse, error) {
	args := m.Called(ctx)
	res, _ := args.Get(0).(*dto.ReindexResponse)
	return res, args.Error(1)
}

func (m *mockRagService) AddDocument(ctx context.Context, filename string, data []byte) (*dto.AddDocumentResponse, error) {
	args := m.Called(ctx, filename, data)
	res, _ := args.Get(0).(*dto.AddDocumentResponse)
	return res, args.Error(1)
}

func (m *mockRagService) Health(ctx context.Context) *dto.HealthResponse {
	return m.Called(ctx).Get(0).(*dto.HealthResponse)
}

func (m *mockRagService) GetSession(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	args := m.Called(ctx, sessionId)
	res, _ := args.Get(0).(*dto.SessionResponse)
	return res, args.Error(1)
}

func newApp(svc *mockRagService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: serverutils.ErrorHandler})
	NewRagController(svc).RegisterRoutes(app.Group("/api"))
	return app
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]interface{}) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &body))
	return resp.StatusCode, body
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestAskEndpoint(t *testing.T) {
	svc := new(mockRagService)
	svc.On("Ask", mock.Anything, &dto.AskRequest{Question: "What is the capital of France?", SessionId: "s1"}).
		Return(&dto.AskResponse{
			Answer:  "Paris",
			Mode:    "document",
			Sources: []dto.SourceDTO{{File: "france.txt", Snippet: "Paris is the capital of France", Score: 0.9}},
		}, nil)

	status, body := do(t, newApp(svc), jsonRequest("POST", "/api/ask", `{"question":"What is the capital of France?","session_id":"s1"}`))
	assert.Equal(t, 200, status)
	assert.Equal(t, true, body["success"])

	data := body["data"].(map[string]interface{})
	assert.Equal(t, "Paris", data["answer"])
	assert.Equal(t, "document", data["mode"])
	sources := data["sources"].([]interface{})
	require.Len(t, sources, 1)
	assert.Equal(t, "france.txt", sources[0].(map[string]interface{})["file"])
}

func TestAskEndpointValidation(t *testing.T) {
	svc := new(mockRagService)
	app := newApp(svc)

	status, body := do(t, app, jsonRequest("POST", "/api/ask", `{"question":"","session_id":"s1"}`))
	assert.Equal(t, 400, status)
	assert.Equal(t, "invalid_input", body["kind"])

	status, _ = do(t, app, jsonRequest("POST", "/api/ask", `{not json`))
	assert.Equal(t, 400, status)

	svc.AssertNotCalled(t, "Ask", mock.Anything, mock.Anything)
}

func TestAskEndpointMapsPipelineErrors(t *testing.T) {
	svc := new(mockRagService)
	svc.On("Ask", mock.Anything, mock.Anything).Return(nil, ragerr.Wrap(ragerr.KindUninitialized, "ask", nil))

	status, body := do(t, newApp(svc), jsonRequest("POST", "/api/ask", `{"question":"q","session_id":"s1"}`))
	assert.Equal(t, 503, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "uninitialized", body["kind"])
}

func TestReindexEndpoint(t *testing.T) {
	svc := new(mockRagService)
	svc.On("Reindex", mock.Anything).Return(nil, ragerr.ErrEmptyCorpus).Once()
	svc.On("Reindex", mock.Anything).Return(&dto.ReindexResponse{SnapshotVersion: "v2", IndexedChunks: 3}, nil).Once()
	app := newApp(svc)

	status, body := do(t, app, httptest.NewRequest("POST", "/api/reindex", nil))
	assert.Equal(t, 422, status)
	assert.Equal(t, "empty_corpus", body["kind"])

	status, body = do(t, app, httptest.NewRequest("POST", "/api/reindex", nil))
	assert.Equal(t, 200, status)
	assert.Equal(t, float64(3), body["data"].(map[string]interface{})["indexed_chunks"])
}

func TestUploadDocumentEndpoint(t *testing.T) {
	svc := new(mockRagService)
	svc.On("AddDocument", mock.Anything, "notes.md", []byte("# Notes\nhello")).
		Return(&dto.AddDocumentResponse{File: "notes.md", AddedChunks: 1, SnapshotVersion: "v1"}, nil)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", "notes.md")
	require.NoError(t, err)
	_, err = part.Write([]byte("# Notes\nhello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest("POST", "/api/documents", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	status, body := do(t, newApp(svc), req)
	assert.Equal(t, 201, status)
	assert.Equal(t, float64(1), body["data"].(map[string]interface{})["added_chunks"])
}

func TestUploadDocumentRequiresFile(t *testing.T) {
	svc := new(mockRagService)
	status, _ := do(t, newApp(svc), jsonRequest("POST", "/api/documents", `{}`))
	assert.Equal(t, 400, status)
}

func TestHealthAndSessionEndpoints(t *testing.T) {
	svc := new(mockRagService)
	svc.On("Health", mock.Anything).Return(&dto.HealthResponse{Status: "ok", Initialized: true, SnapshotVersion: "v1", IndexedChunks: 3})
	svc.On("GetSession", mock.Anything, "s1").Return(&dto.SessionResponse{SessionId: "s1", Summary: "sum"}, nil)
	svc.On("GetSession", mock.Anything, "nope").Return(nil, fiber.NewError(fiber.StatusNotFound, "session not found"))
	app := newApp(svc)

	status, body := do(t, app, httptest.NewRequest("GET", "/api/health", nil))
	assert.Equal(t, 200, status)
	assert.Equal(t, "ok", body["data"].(map[string]interface{})["status"])

	status, body = do(t, app, httptest.NewRequest("GET", "/api/sessions/s1", nil))
	assert.Equal(t, 200, status)
	assert.Equal(t, "sum", body["data"].(map[string]interface{})["summary"])

	status, _ = do(t, app, httptest.NewRequest("GET", "/api/sessions/nope", nil))
	assert.Equal(t, 404, status)
}
