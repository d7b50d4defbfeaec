package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "gig-recommender/internal/common/errors"
)

// Environment variables carrying secrets.
const (
	EnvApifyToken   = "APIFY_TOKEN"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// Load reads .env, config.yaml and config.<APP_ENVIRONMENT>.yaml, then
// applies environment overrides, defaults and validation.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("credentials.apify_token", EnvApifyToken)
	_ = v.BindEnv("credentials.openai_api_key", EnvOpenAIAPIKey)
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory looking for go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			// Unset variables expand to "", so a placeholder never passes
			// for a configured value.
			v.Set(key, os.ExpandEnv(strVal))
		}
	}
}

// overrideEmptyConfig fills secrets still empty after unmarshal straight from
// the process environment.
func overrideEmptyConfig(cfg *Config) {
	if cfg.Credentials.ApifyToken == "" {
		cfg.Credentials.ApifyToken = os.Getenv(EnvApifyToken)
	}
	if cfg.Credentials.OpenAIAPIKey == "" {
		cfg.Credentials.OpenAIAPIKey = os.Getenv(EnvOpenAIAPIKey)
	}
}

func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "gig-recommender"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "dev"
	}

	// Model
	if cfg.Model.BaseURL == "" {
		cfg.Model.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model.Name == "" {
		cfg.Model.Name = "gpt-4o-mini"
	}
	if cfg.Model.Timeout == 0 {
		cfg.Model.Timeout = 60000
	}

	// Dataset
	if cfg.Dataset.Path == "" {
		cfg.Dataset.Path = "dataset/dataset.xlsx"
	}
	if len(cfg.Dataset.Sheets) == 0 {
		cfg.Dataset.Sheets = append([]string(nil), DefaultSheets...)
	}

	// Tools
	if len(cfg.Tools) == 0 {
		cfg.Tools = DefaultTools()
	}
	for i := range cfg.Tools {
		if cfg.Tools[i].Transport == "" {
			cfg.Tools[i].Transport = TransportStdio
		}
		if cfg.Tools[i].InitTimeout == 0 {
			cfg.Tools[i].InitTimeout = 60000
		}
	}

	// Stages
	if cfg.Stages.RootName == "" {
		cfg.Stages.RootName = DefaultRootName
	}
	g := &cfg.Stages.GatherContext
	if g.Name == "" {
		g.Name = DefaultGatherName
	}
	if g.Instruction == "" {
		g.Instruction = DefaultGatherInstruction
	}
	if g.OutputKey == "" {
		g.OutputKey = DefaultOutputKey
	}
	if g.MaxSteps == 0 {
		g.MaxSteps = 8
	}
	if g.Timeout == 0 {
		g.Timeout = 180000
	}
	r := &cfg.Stages.Recommend
	if r.Name == "" {
		r.Name = DefaultRecommendName
	}
	if r.Instruction == "" {
		r.Instruction = DefaultRecommendInstruction
	}
	if r.Timeout == 0 {
		r.Timeout = 60000
	}

	// Camunda
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Observability
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = cfg.App.Name
	}
	if cfg.Observability.MetricsAddress == "" {
		cfg.Observability.MetricsAddress = ":8080"
	}

	// Logging
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stderr"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 300000
		}
		cfg.Workers[key] = worker
	}
}

// Validate re-runs load-time validation on a config built in code.
func Validate(cfg *Config) error {
	return validateConfig(cfg)
}

// validateConfig rejects configurations the pipeline cannot start with. A
// missing Apify token is fatal before any tool server is launched.
func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.Credentials.ApifyToken) == "" {
		return apperrors.NewMissingCredentialError(EnvApifyToken)
	}

	seen := make(map[string]bool, len(cfg.Tools))
	for _, b := range cfg.Tools {
		if b.Name == "" {
			return apperrors.NewInvalidConfigurationError("tools: binding without name")
		}
		if seen[b.Name] {
			return apperrors.NewInvalidConfigurationError(fmt.Sprintf("tools: duplicate binding %q", b.Name))
		}
		seen[b.Name] = true
		switch b.Transport {
		case TransportStdio:
			if b.Command == "" {
				return apperrors.NewInvalidConfigurationError(fmt.Sprintf("tools.%s: command is required for stdio transport", b.Name))
			}
		case TransportBuiltin:
		default:
			return apperrors.NewInvalidConfigurationError(fmt.Sprintf("tools.%s: unsupported transport %q", b.Name, b.Transport))
		}
	}

	if cfg.Stages.GatherContext.MaxSteps < 1 {
		return apperrors.NewInvalidConfigurationError("stages.gather_context.max_steps must be positive")
	}
	if cfg.Stages.Recommend.OutputKey != "" && cfg.Stages.Recommend.OutputKey == cfg.Stages.GatherContext.OutputKey {
		return apperrors.NewInvalidConfigurationError("stages.recommend.output_key collides with gather_context.output_key")
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration.
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults.
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       300000,
		MaxRetries:    0,
	}
}

// EnabledTools returns the bindings that are switched on.
func (c *Config) EnabledTools() []ToolBinding {
	out := make([]ToolBinding, 0, len(c.Tools))
	for _, b := range c.Tools {
		if b.IsEnabled() {
			out = append(out, b)
		}
	}
	return out
}
