package observability

import (
	"os"

	"github.com/grafana/pyroscope-go"

	"audio-convert-service/pkg/logger"
)

// StartProfiling 接入Pyroscope持续剖析。
// 未设置PYROSCOPE_SERVER_ADDRESS时不启用。
func StartProfiling(appName string) {
	serverAddr := os.Getenv("PYROSCOPE_SERVER_ADDRESS")
	if serverAddr == "" {
		return
	}

	_, err := pyroscope.Start(pyroscope.Config{
		ApplicationName: appName,
		ServerAddress:   serverAddr,
		Logger:          nil,
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
		logger.Warnf("failed to start pyroscope profiling: %v", err)
	}
}
