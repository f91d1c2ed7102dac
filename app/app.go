package app

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	adapterhttp "subtitle-hub/ddd/adapter/http"
	appsvc "subtitle-hub/ddd/application/app"
	"subtitle-hub/ddd/domain/service"
	"subtitle-hub/ddd/infrastructure/cache"
	"subtitle-hub/ddd/infrastructure/executor"
	"subtitle-hub/ddd/infrastructure/llmcache"
	"subtitle-hub/ddd/infrastructure/storage"
	"subtitle-hub/internal/resource"
	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/logger"
	"subtitle-hub/pkg/middleware"
	"subtitle-hub/pkg/observability"
	"subtitle-hub/pkg/registry"
	"subtitle-hub/pkg/task"
)

// shutdownGrace bounds how long in-flight downloads may delay process exit.
const shutdownGrace = 10 * time.Second

// Run boots the service and blocks until shutdown.
func Run() error {
	cfg, err := config.Load(resolveConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	config.SetGlobalConfig(cfg)

	log := logger.NewLogger(cfg)
	logger.SetGlobalLogger(log)
	defer log.Close()

	observability.StartProfiling("subtitle-hub", cfg.Profiling)

	// 启动时校验yt-dlp可用，缺失时尽早失败
	if _, err := exec.LookPath(cfg.Extractor.BinaryPath); err != nil {
		return fmt.Errorf("extractor binary %q not found on PATH: %w", cfg.Extractor.BinaryPath, err)
	}

	store, err := storage.NewLocalStorage(cfg.Storage)
	if err != nil {
		return fmt.Errorf("failed to prepare storage directories: %w", err)
	}

	subtitleCache := cache.NewSubtitleCache(cfg.Storage.CacheFilePath(), store)
	ytdlp := executor.NewYtDlpExecutor(cfg.Extractor.BinaryPath)
	runner := task.NewRunner()

	prompts := service.NewPromptService(cfg.Prompt, store)
	subtitles := service.NewSubtitleService(ytdlp, store, subtitleCache, prompts, cfg.Extractor)
	playlists := service.NewPlaylistService(ytdlp, subtitles, cfg.Playlist, cfg.Extractor)
	videos := service.NewVideoService(ytdlp, store, runner)

	var rawRedis *redis.Client
	if cli := resource.GetRedisClient(cfg.Redis); cli != nil {
		rawRedis = cli.Raw()
	}
	defer resource.CloseRedisClient()
	llm := service.NewLLMService(cfg.LLM, llmcache.NewAnalysisCache(rawRedis, cfg.LLM.CacheTTL))

	subtitleApp := appsvc.NewSubtitleApp(subtitles, playlists, llm)
	videoApp := appsvc.NewVideoApp(videos)

	engine := buildEngine(cfg, store.Root(), subtitleApp, videoApp)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	reg := registerService(cfg, addr)

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("server listening addr=%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		logger.Infof("shutdown signal received signal=%s", sig)
	}

	if reg != nil {
		if err := reg.Deregister(); err != nil {
			logger.Warnf("service deregistration failed error=%v", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http server shutdown failed error=%v", err)
	}

	if !runner.Wait(shutdownGrace) {
		logger.Warnf("background jobs still running at exit running=%d", runner.Running())
	}
	logger.Infof("server stopped")
	return nil
}

func buildEngine(cfg *config.Config, storageRoot string, subtitleApp *appsvc.SubtitleApp, videoApp *appsvc.VideoApp) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	engine.Use(middleware.RequestContextMiddleware())

	// 认证只覆盖/api，健康探针和/storage直链不要求token
	router := adapterhttp.NewRouter(
		adapterhttp.NewSubtitleController(subtitleApp),
		adapterhttp.NewVideoController(videoApp),
		middleware.AuthMiddleware(cfg.JWT),
		storageRoot,
	)
	router.SetupRoutes(engine)
	return engine
}

// registerService puts this instance into etcd when discovery is enabled.
// Failure is logged, not fatal.
func registerService(cfg *config.Config, addr string) *registry.ServiceRegistry {
	if !cfg.ServiceRegistry.Enabled {
		return nil
	}
	registerAddr := addr
	if cfg.ServiceRegistry.RegisterHost != "" {
		registerAddr = fmt.Sprintf("%s:%d", cfg.ServiceRegistry.RegisterHost, cfg.Server.Port)
	}
	reg, err := registry.NewServiceRegistry(cfg.ServiceRegistry, registerAddr)
	if err != nil {
		logger.Warnf("service registry unavailable error=%v", err)
		return nil
	}
	if err := reg.Register(); err != nil {
		logger.Warnf("service registration failed error=%v", err)
		return nil
	}
	return reg
}

// resolveConfigPath picks the config file: explicit CONFIG_PATH wins, then
// CONFIG_ENV selects configs/config.<env>.yaml, default dev.
func resolveConfigPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}
