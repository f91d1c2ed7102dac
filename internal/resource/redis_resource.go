package resource

import (
	"sync"

	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/logger"
	"subtitle-hub/pkg/redisclient"
)

var (
	redisOnce   sync.Once
	redisClient *redisclient.Client
)

// GetRedisClient lazily builds the shared redis client. Returns nil when
// redis is disabled or unreachable; callers treat nil as "no cache".
func GetRedisClient(cfg config.RedisConfig) *redisclient.Client {
	redisOnce.Do(func() {
		if !cfg.Enabled {
			return
		}
		cli, err := redisclient.New(cfg)
		if err != nil {
			logger.Warnf("redis unavailable, analysis cache disabled addr=%s error=%v", cfg.GetRedisAddr(), err)
			return
		}
		redisClient = cli
	})
	return redisClient
}

// CloseRedisClient releases the shared client during shutdown.
func CloseRedisClient() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
