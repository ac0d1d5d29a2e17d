package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GENAI_API_KEY", "AWS_SNS_TOPIC_ARN", "ZOHO_CRM_OAUTH_TOKEN"} {
		t.Setenv(key, "")
	}
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
genai:
  api_key: test-key
workers:
  research-lead:
    enabled: true
`

func TestLoadFromFile_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, "gemini", cfg.GenAI.Provider)
	assert.Equal(t, 3, cfg.GenAI.MaxAttempts)
	assert.Equal(t, 1000, cfg.GenAI.BackoffMs)
	assert.Equal(t, 10, cfg.GenAI.HistoryTurns)
	assert.Equal(t, "credits:", cfg.Credits.KeyPrefix)
	assert.Equal(t, "prompt_versions", cfg.Prompts.Table)
	assert.Equal(t, "crm-leads", cfg.Database.Elasticsearch.LeadIndex)
	assert.Equal(t, "info", cfg.Logging.Level)

	wcfg := cfg.Workers["research-lead"]
	assert.True(t, wcfg.Enabled)
	assert.Equal(t, 5, wcfg.MaxJobsActive)
	assert.Equal(t, 60000, wcfg.Timeout)
	assert.False(t, wcfg.FailOnUnavailable)
}

func TestLoadFromFile_ExpandsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEST_BROKER", "zeebe:26500")
	t.Setenv("TEST_KEY", "from-env")

	cfg, err := LoadFromFile(writeConfig(t, `
camunda:
  broker_address: ${TEST_BROKER}
genai:
  api_key: ${TEST_KEY}
  timeouts:
    lead_research: 45000
workers:
  generate-blog-content:
    enabled: true
    timeout: 120000
    fail_on_unavailable: true
`))

	require.NoError(t, err)
	assert.Equal(t, "zeebe:26500", cfg.Camunda.BrokerAddress)
	assert.Equal(t, "from-env", cfg.GenAI.APIKey)
	assert.Equal(t, 45000, cfg.GenAI.Timeouts["lead_research"])
	assert.True(t, cfg.Workers["generate-blog-content"].FailOnUnavailable)
	assert.Equal(t, 120000, cfg.Workers["generate-blog-content"].Timeout)
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		contains string
	}{
		{
			name:     "missing broker",
			body:     "genai:\n  api_key: k\n",
			contains: "broker_address",
		},
		{
			name:     "unknown provider",
			body:     "camunda:\n  broker_address: b\ngenai:\n  provider: claude\n  api_key: k\n",
			contains: "genai.provider",
		},
		{
			name:     "missing api key",
			body:     "camunda:\n  broker_address: b\n",
			contains: "genai.api_key",
		},
		{
			name:     "credits without redis",
			body:     "camunda:\n  broker_address: b\ngenai:\n  api_key: k\ncredits:\n  enabled: true\n",
			contains: "redis.address",
		},
		{
			name:     "prompts without postgres",
			body:     "camunda:\n  broker_address: b\ngenai:\n  api_key: k\nprompts:\n  enabled: true\n",
			contains: "postgres.host",
		},
		{
			name:     "sns without topic",
			body:     "camunda:\n  broker_address: b\ngenai:\n  api_key: k\nintegrations:\n  aws:\n    sns:\n      enabled: true\n",
			contains: "topic_arn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := LoadFromFile(writeConfig(t, tt.body))

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestLoad_EnvironmentOverlay(t *testing.T) {
	tests := []struct {
		name     string
		overlay  string
		wantErr  string
		wantPort int
	}{
		{name: "no overlay", wantPort: 8080},
		{name: "overlay merged", overlay: "app:\n  http_port: 9090\n", wantPort: 9090},
		{name: "malformed overlay", overlay: "app: [unclosed\n", wantErr: "staging config overlay"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("APP_ENVIRONMENT", "staging")
			dir := t.TempDir()
			require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(minimalConfig), 0o600))
			if tt.overlay != "" {
				require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(tt.overlay), 0o600))
			}
			t.Chdir(dir)

			cfg, err := Load()

			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPort, cfg.App.HTTPPort)
		})
	}
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestGetWorkerConfig(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{
		"research-lead": {Enabled: false, MaxJobsActive: 2, Timeout: 1000},
	}}

	assert.Equal(t, WorkerConfig{Enabled: false, MaxJobsActive: 2, Timeout: 1000}, GetWorkerConfig(cfg, "research-lead"))
	assert.False(t, IsWorkerEnabled(cfg, "research-lead"))

	fallback := GetWorkerConfig(cfg, "generate-blog-content")
	assert.True(t, fallback.Enabled)
	assert.Equal(t, 5, fallback.MaxJobsActive)
	assert.True(t, IsWorkerEnabled(cfg, "generate-blog-content"))
}

func TestElasticsearchConfig_GetURL(t *testing.T) {
	assert.Equal(t, "http://a:9200", ElasticsearchConfig{URL: "http://a:9200", Addresses: []string{"http://b:9200"}}.GetURL())
	assert.Equal(t, "http://b:9200", ElasticsearchConfig{Addresses: []string{"http://b:9200"}}.GetURL())
	assert.Empty(t, ElasticsearchConfig{}.GetURL())
}
