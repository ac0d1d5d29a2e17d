package analyzebusiness

import (
	"time"

	"crm-ai-workers/internal/common/config"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const (
	defaultTimeout = 120 * time.Second

	// Fields inferred with less confidence than this are not copied into
	// the suggested profile.
	defaultMinConfidence = 0.6
)

func createConfigFromAppConfig(appConfig *config.Config, customConfig *aicontent.Config) *aicontent.Config {
	if customConfig != nil {
		return customConfig
	}
	return aicontent.LoadConfig(appConfig, TaskType, defaultTimeout)
}
