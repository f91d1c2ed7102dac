package observability

import (
	"os"

	"github.com/grafana/pyroscope-go"

	"subtitle-hub/pkg/config"
	"subtitle-hub/pkg/logger"
)

// StartProfiling attaches continuous profiling when a pyroscope server is
// configured; otherwise it is a no-op so local runs stay dependency-free.
func StartProfiling(appName string, cfg config.ProfilingConfig) {
	addr := cfg.ServerAddress
	if addr == "" {
		addr = os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	}
	if !cfg.Enabled || addr == "" {
		return
	}

	hostname, _ := os.Hostname()
	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   addr,
		AuthToken:       cfg.AuthToken,
		Tags:            map[string]string{"hostname": hostname},
		ProfileTypes: []pyroscope.ProfileType{
			pyroscope.ProfileCPU,
			pyroscope.ProfileAllocObjects,
			pyroscope.ProfileAllocSpace,
			pyroscope.ProfileInuseObjects,
			pyroscope.ProfileInuseSpace,
			pyroscope.ProfileGoroutines,
		},
	})
	if err != nil {
		logger.Warnf("pyroscope start failed address=%s error=%v", addr, err)
	}
}
