package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgenie/publisher/config"
	"github.com/contentgenie/publisher/internal/api"
	"github.com/contentgenie/publisher/internal/api/handler"
	"github.com/contentgenie/publisher/internal/model"
	"github.com/contentgenie/publisher/internal/repository"
	"github.com/contentgenie/publisher/internal/service"
	"github.com/contentgenie/publisher/pkg/response"
)

type stubPublishService struct {
	resp *service.PublishResponse
	err  error
}

func (s *stubPublishService) Publish(context.Context, service.PublishRequest) (*service.PublishResponse, error) {
	return s.resp, s.err
}

func (s *stubPublishService) Status(context.Context, string) (map[string]service.AccountStatus, error) {
	return map[string]service.AccountStatus{}, nil
}

type stubGenerationService struct {
	result *service.GenerationResult
	err    error
}

func (s *stubGenerationService) Generate(context.Context, string, string) (*service.GenerationResult, error) {
	return s.result, s.err
}

func (s *stubGenerationService) History(context.Context, string, int, int) ([]*model.Generation, error) {
	return nil, nil
}

type stubTranscribeService struct {
	text string
	err  error
}

func (s *stubTranscribeService) Transcribe(context.Context, string, string, io.Reader) (string, error) {
	return s.text, s.err
}

func newTestRouter(publish service.PublishService, gen service.GenerationService, tr service.TranscribeService) http.Handler {
	cfg := &config.Config{}
	cfg.Server.Mode = "test"
	h := handler.New(publish, gen, tr, nil, nil)
	return api.NewRouter(cfg, h)
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPublishHandlerSuccess(t *testing.T) {
	router := newTestRouter(&stubPublishService{resp: &service.PublishResponse{
		Success: true,
		Status:  string(model.PostStatusPublished),
		Results: []service.PublishResult{{AccountID: "a1", Success: true, MessageID: "m1"}},
	}}, &stubGenerationService{}, &stubTranscribeService{})

	w := doJSON(t, router, http.MethodPost, "/api/v1/publish", map[string]any{
		"userId": "u1", "postId": "p1", "accountIds": []string{"a1"}, "text": "hello",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
}

func TestPublishHandlerValidation(t *testing.T) {
	router := newTestRouter(&stubPublishService{}, &stubGenerationService{}, &stubTranscribeService{})

	// accountIds 为空
	w := doJSON(t, router, http.MethodPost, "/api/v1/publish", map[string]any{
		"userId": "u1", "postId": "p1", "accountIds": []string{}, "text": "hello",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// text 缺失
	w = doJSON(t, router, http.MethodPost, "/api/v1/publish", map[string]any{
		"userId": "u1", "postId": "p1", "accountIds": []string{"a1"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishHandlerNotFound(t *testing.T) {
	router := newTestRouter(&stubPublishService{err: repository.ErrPostNotFound}, &stubGenerationService{}, &stubTranscribeService{})
	w := doJSON(t, router, http.MethodPost, "/api/v1/publish", map[string]any{
		"userId": "u1", "postId": "missing", "accountIds": []string{"a1"}, "text": "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)

	router = newTestRouter(&stubPublishService{err: service.ErrNoActiveAccounts}, &stubGenerationService{}, &stubTranscribeService{})
	w = doJSON(t, router, http.MethodPost, "/api/v1/publish", map[string]any{
		"userId": "u1", "postId": "p1", "accountIds": []string{"a1"}, "text": "x",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGenerateHandlerCreditsExhausted(t *testing.T) {
	router := newTestRouter(&stubPublishService{}, &stubGenerationService{err: service.ErrCreditsExhausted}, &stubTranscribeService{})
	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", map[string]any{
		"userId": "u1", "idea": "coffee",
	})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestGenerateHandlerSuccess(t *testing.T) {
	router := newTestRouter(&stubPublishService{},
		&stubGenerationService{result: &service.GenerationResult{Text: "copy", CreditsLeft: 4}},
		&stubTranscribeService{})
	w := doJSON(t, router, http.MethodPost, "/api/v1/generate", map[string]any{
		"userId": "u1", "idea": "coffee",
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "credits_left")
}

func TestTranscribeHandlerUnsupportedFormat(t *testing.T) {
	router := newTestRouter(&stubPublishService{}, &stubGenerationService{},
		&stubTranscribeService{err: service.ErrUnsupportedAudio})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio", "a.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("not audio"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTranscribeHandlerMissingFile(t *testing.T) {
	router := newTestRouter(&stubPublishService{}, &stubGenerationService{}, &stubTranscribeService{})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/transcribe", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
