package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode         string        `mapstructure:"mode"`
	Port         int           `mapstructure:"port"`
	CorsOrigin   string        `mapstructure:"cors_origin"`
	ReadLimit    int64         `mapstructure:"read_limit"`
	PingPeriod   time.Duration `mapstructure:"ping_period"`
	PongWait     time.Duration `mapstructure:"pong_wait"`
	WriteWait    time.Duration `mapstructure:"write_wait"`
	SendBuffer   int           `mapstructure:"send_buffer"`
	Secret       string        `mapstructure:"secret"`
	LogLevel     string        `mapstructure:"log_level"`
	Backpressure string        `mapstructure:"backpressure"`
	RateLimit    float64       `mapstructure:"rate_limit"`
	RateBurst    int           `mapstructure:"rate_burst"`
}

var (
	ErrInvalidPort       = errors.New("port must be in 1..65535")
	ErrInvalidSendBuffer = errors.New("send_buffer must be positive")
	ErrInvalidKeepalive  = errors.New("pong_wait must be longer than ping_period")
	ErrInvalidReadLimit  = errors.New("read_limit must be positive")
)

// Load reads config/config.<CONFIG_ENV>.yaml (CONFIG_ENV defaults to dev).
func Load() (*Config, error) {
	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	return LoadFile(fmt.Sprintf("config/config.%s.yaml", env))
}

// LoadFile reads fileName if it exists, then applies environment overrides.
// SOCKET_PORT and CORS_ORIGIN keep the names the dashboard deployment uses;
// every other key can be set as LEADRELAY_<KEY>.
func LoadFile(fileName string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(fileName)

	v.SetDefault("mode", "release")
	v.SetDefault("port", 4001)
	v.SetDefault("cors_origin", "http://localhost:3000")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "leadrelay-dev-secret")
	v.SetDefault("log_level", "info")
	v.SetDefault("backpressure", "drop")
	v.SetDefault("rate_limit", 0)
	v.SetDefault("rate_burst", 20)

	v.SetEnvPrefix("LEADRELAY")
	v.AutomaticEnv()
	_ = v.BindEnv("port", "SOCKET_PORT")
	_ = v.BindEnv("cors_origin", "CORS_ORIGIN")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config %s: %w", fileName, err)
		}
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).Str("cors_origin", cfg.CorsOrigin).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if c.SendBuffer <= 0 {
		return ErrInvalidSendBuffer
	}
	if c.ReadLimit <= 0 {
		return ErrInvalidReadLimit
	}
	if c.PongWait <= c.PingPeriod {
		return ErrInvalidKeepalive
	}
	return nil
}

// AllowOrigin reports whether a handshake from origin is accepted. Requests
// without an Origin header (non-browser clients) are always accepted.
func (c *Config) AllowOrigin(origin string) bool {
	return origin == "" || c.CorsOrigin == "*" || origin == c.CorsOrigin
}
