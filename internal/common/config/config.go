package config

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Credentials   CredentialsConfig       `mapstructure:"credentials"`
	Model         ModelConfig             `mapstructure:"model"`
	Dataset       DatasetConfig           `mapstructure:"dataset"`
	Tools         []ToolBinding           `mapstructure:"tools"`
	Stages        StagesConfig            `mapstructure:"stages"`
	Pipeline      PipelineConfig          `mapstructure:"pipeline"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Observability ObservabilityConfig     `mapstructure:"observability"`
	Logging       LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// CredentialsConfig holds secrets read from the environment.
type CredentialsConfig struct {
	ApifyToken   string `mapstructure:"apify_token"`
	OpenAIAPIKey string `mapstructure:"openai_api_key"`
}

// ModelConfig points at an OpenAI-compatible chat completions endpoint.
type ModelConfig struct {
	BaseURL     string  `mapstructure:"base_url"`
	Name        string  `mapstructure:"name"`
	Temperature float64 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// DatasetConfig describes the local spreadsheet the gathering stage may read.
type DatasetConfig struct {
	Path   string   `mapstructure:"path"`
	Sheets []string `mapstructure:"sheets"`
}

// Tool transports.
const (
	TransportStdio   = "stdio"
	TransportBuiltin = "builtin"
)

// ToolBinding declares one external capability available to the gathering stage.
type ToolBinding struct {
	Name        string   `mapstructure:"name" yaml:"name"`
	Transport   string   `mapstructure:"transport" yaml:"transport"`
	Command     string   `mapstructure:"command" yaml:"command,omitempty"`
	Args        []string `mapstructure:"args" yaml:"args,omitempty"`
	InitTimeout int      `mapstructure:"init_timeout" yaml:"initTimeoutMs,omitempty"` // milliseconds
	Enabled     *bool    `mapstructure:"enabled" yaml:"enabled,omitempty"`
}

// IsEnabled treats an unset flag as enabled.
func (b ToolBinding) IsEnabled() bool {
	return b.Enabled == nil || *b.Enabled
}

// StagesConfig holds both pipeline stages and the orchestrator's identity.
type StagesConfig struct {
	RootName      string      `mapstructure:"root_name"`
	GatherContext StageConfig `mapstructure:"gather_context"`
	Recommend     StageConfig `mapstructure:"recommend"`
}

// StageConfig configures a single agent stage.
type StageConfig struct {
	Name        string `mapstructure:"name"`
	Description string `mapstructure:"description"`
	Instruction string `mapstructure:"instruction"`
	OutputKey   string `mapstructure:"output_key"`
	MaxSteps    int    `mapstructure:"max_steps"`
	Timeout     int    `mapstructure:"timeout"` // milliseconds
}

// PipelineConfig holds orchestrator switches.
type PipelineConfig struct {
	RejectEmptyContext bool `mapstructure:"reject_empty_context"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
	Plaintext      bool   `mapstructure:"plaintext"`
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"` // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"`
}

// ObservabilityConfig controls the metrics endpoint and trace export.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	MetricsAddress string `mapstructure:"metrics_address"`
	JaegerEndpoint string `mapstructure:"jaeger_endpoint"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
