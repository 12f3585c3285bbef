package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	LogLevel   string        `mapstructure:"log_level"`
	LogFormat  string        `mapstructure:"log_format"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`
	// CORSOrigins lists browser origins allowed to call the API; "*" allows any.
	CORSOrigins []string `mapstructure:"cors_origins"`

	Database Database `mapstructure:"database"`
	Auth     Auth     `mapstructure:"auth"`
	Session  Session  `mapstructure:"session"`
	Archive  Archive  `mapstructure:"archive"`
	Signal   Signal   `mapstructure:"signal"`
}

type Database struct {
	Driver        string        `mapstructure:"driver"`
	DSN           string        `mapstructure:"dsn"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

type Auth struct {
	UserSecret string `mapstructure:"user_secret"`
	Issuer     string `mapstructure:"issuer"`
}

type Session struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	Pepper      string        `mapstructure:"pepper"`
	BcryptCost  int           `mapstructure:"bcrypt_cost"`
}

type Archive struct {
	Cipher           string `mapstructure:"cipher"`
	Key              string `mapstructure:"key"`
	MigratePlaintext bool   `mapstructure:"migrate_plaintext"`
}

type Signal struct {
	MessageRateLimit    int           `mapstructure:"message_rate_limit"`
	MessageRateInterval time.Duration `mapstructure:"message_rate_interval"`
	MaxSignalBytes      int           `mapstructure:"max_signal_bytes"`
	Backpressure        string        `mapstructure:"backpressure"`
}

func Load() (*Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix("CONFER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Str("module", "config").
		Str("mode", cfg.Mode).
		Int("port", cfg.Port).
		Str("db", cfg.Database.Driver).
		Str("cipher", cfg.Archive.Cipher).
		Msg("config ready")
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_wait", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("cors_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "confer.db")
	v.SetDefault("database.slow_threshold", "200ms")

	// Secrets have empty defaults so AutomaticEnv can still bind them.
	v.SetDefault("auth.user_secret", "")
	v.SetDefault("auth.issuer", "confer")

	v.SetDefault("session.token_secret", "")
	v.SetDefault("session.token_ttl", "24h")
	v.SetDefault("session.pepper", "")
	v.SetDefault("session.bcrypt_cost", 10)

	v.SetDefault("archive.cipher", "aes-256-gcm")
	v.SetDefault("archive.key", "")
	v.SetDefault("archive.migrate_plaintext", false)

	v.SetDefault("signal.message_rate_limit", 20)
	v.SetDefault("signal.message_rate_interval", "10s")
	v.SetDefault("signal.max_signal_bytes", 65536)
	v.SetDefault("signal.backpressure", "ignore")
}

func (c *Config) Validate() error {
	var errs []error
	if c.Auth.UserSecret == "" {
		errs = append(errs, errors.New("auth.user_secret is required"))
	}
	if c.Session.TokenSecret == "" {
		errs = append(errs, errors.New("session.token_secret is required"))
	}
	if c.Session.TokenTTL <= 0 {
		errs = append(errs, errors.New("session.token_ttl must be positive"))
	}
	if _, err := c.ArchiveKey(); err != nil {
		errs = append(errs, err)
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q is not supported", c.Database.Driver))
	}
	switch c.Archive.Cipher {
	case "aes-256-gcm", "chacha20-poly1305":
	default:
		errs = append(errs, fmt.Errorf("archive.cipher %q is not supported", c.Archive.Cipher))
	}
	switch c.Signal.Backpressure {
	case "ignore", "kick":
	default:
		errs = append(errs, fmt.Errorf("signal.backpressure %q is not supported", c.Signal.Backpressure))
	}
	return errors.Join(errs...)
}

// ArchiveKey decodes the static chat encryption key.
func (c *Config) ArchiveKey() ([]byte, error) {
	key, err := hex.DecodeString(c.Archive.Key)
	if err != nil {
		return nil, fmt.Errorf("archive.key must be hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("archive.key must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
