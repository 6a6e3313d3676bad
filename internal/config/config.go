// Package config loads runtime configuration from config files and the
// environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds everything the companion needs at startup.
type Config struct {
	Port      string `mapstructure:"port"`
	LogDir    string `mapstructure:"log_dir"`
	JWTSecret string `mapstructure:"jwt_secret"`

	MonitorUsername string `mapstructure:"monitor_username"`
	MonitorPassword string `mapstructure:"monitor_password"`

	AgentURL   string `mapstructure:"agent_url"`
	AgentToken string `mapstructure:"agent_token"`

	Persona          string `mapstructure:"persona"`
	Voice            string `mapstructure:"voice"`
	ResponseModality string `mapstructure:"response_modality"`

	GeminiAPIKey string `mapstructure:"gemini_api_key"`
	GeminiModel  string `mapstructure:"gemini_model"`

	STTEnabled  bool   `mapstructure:"stt_enabled"`
	STTLanguage string `mapstructure:"stt_language"`

	MongoEnabled  bool   `mapstructure:"mongo_enabled"`
	MongoURI      string `mapstructure:"mongo_uri"`
	MongoDatabase string `mapstructure:"mongo_database"`

	WorkspaceDir string `mapstructure:"workspace_dir"`
}

// Load reads companion.yaml when present, with COMPANION_* environment
// variables taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("companion")
	v.SetConfigType("yaml")
	if path != "" {
		v.AddConfigPath(path)
	}
	v.AddConfigPath(".")

	v.SetEnvPrefix("companion")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Keys without a real default still need one registered, or
	// AutomaticEnv will not surface them through Unmarshal.
	v.SetDefault("port", "8080")
	v.SetDefault("log_dir", "logs")
	v.SetDefault("jwt_secret", "")
	v.SetDefault("monitor_username", "admin")
	v.SetDefault("monitor_password", "")
	v.SetDefault("agent_token", "")
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("stt_enabled", false)
	v.SetDefault("mongo_enabled", false)
	v.SetDefault("agent_url", "ws://localhost:9000/live")
	v.SetDefault("persona", "You are a friendly voice companion. Keep answers short and conversational.")
	v.SetDefault("voice", "Aoede")
	v.SetDefault("response_modality", "AUDIO")
	v.SetDefault("gemini_model", "gemini-2.0-flash")
	v.SetDefault("stt_language", "en-US")
	v.SetDefault("mongo_uri", "mongodb://localhost:27017")
	v.SetDefault("mongo_database", "companion")
	v.SetDefault("workspace_dir", "workspace")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("jwt_secret is required (set COMPANION_JWT_SECRET)")
	}
	if cfg.MonitorPassword == "" {
		return nil, fmt.Errorf("monitor_password is required (set COMPANION_MONITOR_PASSWORD)")
	}
	return &cfg, nil
}
