package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

// DevSecret signs session cookies outside release mode when no secret is set.
const DevSecret = "babel-dev-insecure-secret"

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	Secret     string        `mapstructure:"secret"`
	LogLevel   string        `mapstructure:"log_level"`

	GracePeriod      time.Duration `mapstructure:"grace_period"`
	RoomTTL          time.Duration `mapstructure:"room_ttl"`
	HistoryLimit     int           `mapstructure:"history_limit"`
	RecentLimit      int           `mapstructure:"recent_limit"`
	MaxMessageLen    int           `mapstructure:"max_message_len"`
	ChatRateLimit    int           `mapstructure:"chat_rate_limit"`
	ChatRateInterval time.Duration `mapstructure:"chat_rate_interval"`
	Backpressure     string        `mapstructure:"backpressure"`

	TranslateTimeout time.Duration `mapstructure:"translate_timeout"`
	OpenAIAPIKey     string        `mapstructure:"openai_api_key"`
	OpenAIModel      string        `mapstructure:"openai_model"`
	OpenAIBaseURL    string        `mapstructure:"openai_base_url"`
}

// Load reads config/config.<CONFIG_ENV>.yaml (dev by default) with
// BABEL_* environment overrides.
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile is Load with an explicit file; a missing file means defaults.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	setDefaults(v)

	v.SetEnvPrefix("BABEL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// conventional names used by hosting platforms and the OpenAI SDKs
	_ = v.BindEnv("port", "BABEL_PORT", "PORT")
	_ = v.BindEnv("openai_api_key", "BABEL_OPENAI_API_KEY", "OPENAI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Secret == "" {
		if cfg.Mode == "release" {
			return nil, fmt.Errorf("secret must be set in release mode")
		}
		log.Warn().Str("module", "config").Msg("no secret configured, using the insecure development secret")
		cfg.Secret = DevSecret
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("static", cfg.StaticPath).
		Bool("translation", cfg.OpenAIAPIKey != "").
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "debug")
	v.SetDefault("port", 8080)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("secret", "")
	v.SetDefault("log_level", "info")

	v.SetDefault("grace_period", "5m")
	v.SetDefault("room_ttl", "2m")
	v.SetDefault("history_limit", 100)
	v.SetDefault("recent_limit", 50)
	v.SetDefault("max_message_len", 2000)
	v.SetDefault("chat_rate_limit", 20)
	v.SetDefault("chat_rate_interval", "10s")
	v.SetDefault("backpressure", "kick")

	v.SetDefault("translate_timeout", "8s")
	v.SetDefault("openai_api_key", "")
	v.SetDefault("openai_model", "gpt-4o-mini")
	v.SetDefault("openai_base_url", "")
}
