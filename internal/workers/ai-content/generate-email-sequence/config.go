package generateemailsequence

import (
	"time"

	"crm-ai-workers/internal/common/config"
	aicontent "crm-ai-workers/internal/workers/ai-content"
)

const defaultTimeout = 60 * time.Second

func createConfigFromAppConfig(appConfig *config.Config, customConfig *aicontent.Config) *aicontent.Config {
	if customConfig != nil {
		return customConfig
	}
	return aicontent.LoadConfig(appConfig, TaskType, defaultTimeout)
}
