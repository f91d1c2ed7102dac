package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appsvc "subtitle-hub/ddd/application/app"
	"subtitle-hub/ddd/domain/port"
	"subtitle-hub/ddd/domain/service"
	"subtitle-hub/ddd/infrastructure/cache"
	"subtitle-hub/ddd/infrastructure/storage"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/middleware"
	"subtitle-hub/pkg/task"
)

// deadExtractor fails every invocation; router tests never reach the tool.
type deadExtractor struct{}

func (deadExtractor) Run(context.Context, []string, time.Duration) (*port.RunResult, error) {
	return &port.RunResult{ExitCode: 1, Stderr: "ERROR: unreachable"}, nil
}

func (deadExtractor) RunStreaming(context.Context, []string, port.LineCallback) (*port.RunResult, error) {
	return &port.RunResult{ExitCode: 1, Stderr: "ERROR: unreachable"}, nil
}

func newTestEngine(t *testing.T, jwtCfg config.JWTConfig) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	root := t.TempDir()
	store, err := storage.NewLocalStorage(config.StorageConfig{
		Root:            root,
		SubtitleDirName: "subtitles",
		PromptDirName:   "prompts",
		VideoDirName:    "videos",
	})
	require.NoError(t, err)

	var ext deadExtractor
	subCache := cache.NewSubtitleCache(filepath.Join(root, "subtitle_cache.json"), store)
	prompts := service.NewPromptService(config.PromptConfig{DefaultTemplate: "{subtitle_body}"}, store)
	subtitles := service.NewSubtitleService(ext, store, subCache, prompts, config.ExtractorConfig{PlayerClient: "default"})
	playlists := service.NewPlaylistService(ext, subtitles, config.PlaylistConfig{MaxWorkers: 1}, config.ExtractorConfig{PlayerClient: "default"})
	videos := service.NewVideoService(ext, store, task.NewRunner())
	llm := service.NewLLMService(config.LLMConfig{}, nil)

	engine := gin.New()
	router := NewRouter(
		NewSubtitleController(appsvc.NewSubtitleApp(subtitles, playlists, llm)),
		NewVideoController(appsvc.NewVideoApp(videos)),
		middleware.AuthMiddleware(jwtCfg),
		store.Root(),
	)
	router.SetupRoutes(engine)
	return engine
}

func signToken(t *testing.T, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "tester",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func get(engine *gin.Engine, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestAuthGuardsAPIGroupOnly(t *testing.T) {
	const secret = "unit-test-secret"
	engine := newTestEngine(t, config.JWTConfig{Secret: secret})

	// 健康探针和/storage直链不经过认证
	rec := get(engine, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)

	rec = get(engine, "/storage/subtitles/srt/missing.srt", "")
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)

	// /api下的接口必须带合法token
	rec = get(engine, "/api/videos/status/some-job", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(engine, "/api/videos/status/some-job", "garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = get(engine, "/api/videos/status/some-job", signToken(t, secret))
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	engine := newTestEngine(t, config.JWTConfig{})

	rec := get(engine, "/api/videos/status/some-job", "")
	assert.NotEqual(t, http.StatusUnauthorized, rec.Code)
}
