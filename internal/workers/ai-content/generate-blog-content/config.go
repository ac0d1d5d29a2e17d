package generateblogcontent

import (
	"time"

	"crm-ai-workers/internal/common/config"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

// Long-form posts get 30s per attempt.
const defaultTimeout = 120 * time.Second

func createConfigFromAppConfig(appConfig *config.Config, customConfig *aicontent.Config) *aicontent.Config {
	if customConfig != nil {
		return customConfig
	}
	return aicontent.LoadConfig(appConfig, TaskType, defaultTimeout)
}
