// Package config loads server settings from defaults, an optional config
// file, GOPHCOLLAB_* environment variables and command line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/session"
	"github.com/iudanet/gophcollab/internal/wire"
)

// EnvPrefix префикс переменных окружения: collab.mode -> GOPHCOLLAB_COLLAB_MODE
const EnvPrefix = "GOPHCOLLAB"

// Драйверы хранилища
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverBoltDB   = "boltdb"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

// ErrInvalidConfig indicates a configuration value that cannot be used
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete server configuration
type Config struct {
	Server     ServerConfig
	Storage    StorageConfig
	Gatekeeper GatekeeperConfig
	Log        LogConfig
	Collab     CollabConfig
	RateLimit  RateLimitConfig
}

// ServerConfig настройки HTTP сервера
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// CollabConfig настройки акторов документов
type CollabConfig struct {
	Mode               models.Mode
	TextName           string
	CheckpointInterval time.Duration
	Retention          time.Duration
	MaxPlainFrame      int
	MaxCRDTFrame       int
	SendBuffer         int
}

// StorageConfig выбор и адрес хранилища
type StorageConfig struct {
	Driver string
	DSN    string
	Secret string // непустой секрет включает шифрование содержимого
}

// GatekeeperConfig настройки проверки grant токенов
type GatekeeperConfig struct {
	Secret   string
	GrantTTL time.Duration
}

// RateLimitConfig ограничение websocket upgrade; Upgrades == 0 отключает
type RateLimitConfig struct {
	Upgrades int
	Window   time.Duration
}

// LogConfig настройки логирования
type LogConfig struct {
	Level  string
	Format string
}

// Session returns the actor settings derived from the collab section
func (c CollabConfig) Session() session.Config {
	cfg := session.DefaultConfig()
	cfg.Mode = c.Mode
	cfg.TextName = c.TextName
	cfg.CheckpointInterval = c.CheckpointInterval
	cfg.Retention = c.Retention
	cfg.MaxPlainFrame = c.MaxPlainFrame
	cfg.MaxCRDTFrame = c.MaxCRDTFrame
	return cfg
}

// SlogLevel converts the configured level name
func (c LogConfig) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// New creates a viper instance with defaults and environment binding
func New() *viper.Viper {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// SetDefaults registers the default value of every key
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("collab.mode", string(models.ModeCRDT))
	v.SetDefault("collab.text_name", crdt.DefaultTextName)
	v.SetDefault("collab.checkpoint_interval", session.DefaultCheckpointInterval)
	v.SetDefault("collab.retention", session.DefaultRetention)
	v.SetDefault("collab.max_plain_frame", wire.MaxPlainFrameSize)
	v.SetDefault("collab.max_crdt_frame", wire.MaxCRDTFrameSize)
	v.SetDefault("collab.send_buffer", 256)

	v.SetDefault("storage.driver", DriverSQLite)
	v.SetDefault("storage.dsn", "gophcollab.db")
	v.SetDefault("storage.secret", "")

	v.SetDefault("gatekeeper.secret", "")
	v.SetDefault("gatekeeper.grant_ttl", time.Hour)

	v.SetDefault("ratelimit.upgrades", 60)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// BindFlags привязывает флаги команды к ключам конфигурации.
// Ключ флага совпадает с ключом viper, например --server.addr.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil || !strings.Contains(f.Name, ".") {
			return
		}
		if err := v.BindPFlag(f.Name, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag %s: %w", f.Name, err)
		}
	})
	return bindErr
}

// Load reads the optional config file and returns the validated config
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Collab: CollabConfig{
			Mode:               models.Mode(strings.ToLower(v.GetString("collab.mode"))),
			TextName:           v.GetString("collab.text_name"),
			CheckpointInterval: v.GetDuration("collab.checkpoint_interval"),
			Retention:          v.GetDuration("collab.retention"),
			MaxPlainFrame:      v.GetInt("collab.max_plain_frame"),
			MaxCRDTFrame:       v.GetInt("collab.max_crdt_frame"),
			SendBuffer:         v.GetInt("collab.send_buffer"),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(v.GetString("storage.driver")),
			DSN:    v.GetString("storage.dsn"),
			Secret: v.GetString("storage.secret"),
		},
		Gatekeeper: GatekeeperConfig{
			Secret:   v.GetString("gatekeeper.secret"),
			GrantTTL: v.GetDuration("gatekeeper.grant_ttl"),
		},
		RateLimit: RateLimitConfig{
			Upgrades: v.GetInt("ratelimit.upgrades"),
			Window:   v.GetDuration("ratelimit.window"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: strings.ToLower(v.GetString("log.format")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every value that the server cannot start with
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is empty", ErrInvalidConfig)
	}

	switch c.Collab.Mode {
	case models.ModePlain, models.ModeCRDT:
	default:
		return fmt.Errorf("%w: unknown collab.mode %q", ErrInvalidConfig, c.Collab.Mode)
	}

	switch c.Storage.Driver {
	case DriverSQLite, DriverPostgres, DriverBoltDB, DriverRedis:
		if c.Storage.DSN == "" {
			return fmt.Errorf("%w: storage.dsn is required for driver %s", ErrInvalidConfig, c.Storage.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("%w: unknown storage.driver %q", ErrInvalidConfig, c.Storage.Driver)
	}

	durations := []struct {
		value time.Duration
		key   string
	}{
		{c.Server.ShutdownTimeout, "server.shutdown_timeout"},
		{c.Collab.CheckpointInterval, "collab.checkpoint_interval"},
		{c.Collab.Retention, "collab.retention"},
		{c.Gatekeeper.GrantTTL, "gatekeeper.grant_ttl"},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%w: %s must be positive, got %s", ErrInvalidConfig, d.key, d.value)
		}
	}

	if c.Collab.MaxPlainFrame <= 0 || c.Collab.MaxCRDTFrame <= 0 {
		return fmt.Errorf("%w: frame limits must be positive", ErrInvalidConfig)
	}
	if c.Collab.SendBuffer <= 0 {
		return fmt.Errorf("%w: collab.send_buffer must be positive", ErrInvalidConfig)
	}

	if c.RateLimit.Upgrades < 0 {
		return fmt.Errorf("%w: ratelimit.upgrades must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit.Upgrades > 0 && c.RateLimit.Window <= 0 {
		return fmt.Errorf("%w: ratelimit.window must be positive", ErrInvalidConfig)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Log.Format)
	}

	return nil
}
