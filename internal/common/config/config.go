// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App          AppConfig               `mapstructure:"app"`
	Camunda      CamundaConfig           `mapstructure:"camunda"`
	Database     DatabaseConfig          `mapstructure:"database"`
	Workers      map[string]WorkerConfig `mapstructure:"workers"`
	GenAI        GenAIConfig             `mapstructure:"genai"`
	Credits      CreditsConfig           `mapstructure:"credits"`
	Prompts      PromptsConfig           `mapstructure:"prompts"`
	Integrations IntegrationConfig       `mapstructure:"integrations"`
	Logging      LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	HTTPPort    int    `mapstructure:"http_port"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"` // Single URL for backwards compatibility
	LeadIndex  string   `mapstructure:"lead_index"`
	MaxLeads   int      `mapstructure:"max_leads"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling

	// FailOnUnavailable raises a BPMN error instead of completing the job
	// with available=false when the model could not answer.
	FailOnUnavailable bool `mapstructure:"fail_on_unavailable"`
}

// --- Generation ---

// GenAIConfig selects the model provider and the retry policy shared by
// every content kind. Timeouts are per kind, keyed by kind name.
type GenAIConfig struct {
	Provider        string         `mapstructure:"provider"` // gemini | openai
	APIKey          string         `mapstructure:"api_key"`
	Model           string         `mapstructure:"model"`
	BaseURL         string         `mapstructure:"base_url"`
	Temperature     float32        `mapstructure:"temperature"`
	MaxOutputTokens int            `mapstructure:"max_output_tokens"`
	MaxAttempts     int            `mapstructure:"max_attempts"`
	BackoffMs       int            `mapstructure:"backoff_ms"`
	Timeouts        map[string]int `mapstructure:"timeouts"` // milliseconds
	HistoryTurns    int            `mapstructure:"history_turns"`
}

// CreditsConfig controls the per-account generation ledger. Costs override
// the built-in price of a kind; a cost of 0 makes that kind free.
type CreditsConfig struct {
	Enabled   bool           `mapstructure:"enabled"`
	KeyPrefix string         `mapstructure:"key_prefix"`
	Costs     map[string]int `mapstructure:"costs"`
}

// PromptsConfig controls the versioned prompt store.
type PromptsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Table      string `mapstructure:"table"`
	CacheTTLMs int    `mapstructure:"cache_ttl_ms"`
}

// IntegrationConfig holds settings for the CRM and alerting services.
type IntegrationConfig struct {
	Zoho struct {
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
		Timeout   int    `mapstructure:"timeout"` // milliseconds
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SNS    struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
