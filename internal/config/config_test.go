package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, models.ModeCRDT, cfg.Collab.Mode)
	assert.Equal(t, 30*time.Second, cfg.Collab.CheckpointInterval)
	assert.Equal(t, 48*time.Hour, cfg.Collab.Retention)
	assert.Equal(t, 65536, cfg.Collab.MaxPlainFrame)
	assert.Equal(t, 1048576, cfg.Collab.MaxCRDTFrame)
	assert.Equal(t, "content", cfg.Collab.TextName)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "gophcollab.db", cfg.Storage.DSN)
	assert.Empty(t, cfg.Gatekeeper.Secret)
	assert.Empty(t, cfg.Storage.Secret)
	assert.Equal(t, 60, cfg.RateLimit.Upgrades)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("GOPHCOLLAB_COLLAB_MODE", "plain")
	t.Setenv("GOPHCOLLAB_COLLAB_RETENTION", "1h")
	t.Setenv("GOPHCOLLAB_STORAGE_DRIVER", "memory")
	t.Setenv("GOPHCOLLAB_GATEKEEPER_SECRET", "s3cret")

	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, models.ModePlain, cfg.Collab.Mode)
	assert.Equal(t, time.Hour, cfg.Collab.Retention)
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, "s3cret", cfg.Gatekeeper.Secret)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gophcollab.yaml")
	content := `
server:
  addr: ":9090"
collab:
  mode: plain
  checkpoint_interval: 5s
storage:
  driver: boltdb
  dsn: /tmp/docs.bolt
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	// переменная окружения важнее файла
	t.Setenv("GOPHCOLLAB_SERVER_ADDR", ":7070")

	cfg, err := Load(New(), path)
	require.NoError(t, err)

	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, models.ModePlain, cfg.Collab.Mode)
	assert.Equal(t, 5*time.Second, cfg.Collab.CheckpointInterval)
	assert.Equal(t, DriverBoltDB, cfg.Storage.Driver)
	assert.Equal(t, "/tmp/docs.bolt", cfg.Storage.DSN)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestBindFlags(t *testing.T) {
	flags := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	flags.String("server.addr", ":8080", "listen address")
	flags.String("config", "", "config file")

	v := New()
	require.NoError(t, BindFlags(v, flags))
	require.NoError(t, flags.Parse([]string{"--server.addr=:6060"}))

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, ":6060", cfg.Server.Addr)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		mutate func(c *Config)
		name   string
	}{
		{name: "unknown mode", mutate: func(c *Config) { c.Collab.Mode = "rich" }},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "mongo" }},
		{name: "missing dsn", mutate: func(c *Config) { c.Storage.DSN = "" }},
		{name: "zero retention", mutate: func(c *Config) { c.Collab.Retention = 0 }},
		{name: "negative checkpoint", mutate: func(c *Config) { c.Collab.CheckpointInterval = -time.Second }},
		{name: "zero frame limit", mutate: func(c *Config) { c.Collab.MaxCRDTFrame = 0 }},
		{name: "rate limit without window", mutate: func(c *Config) { c.RateLimit.Window = 0 }},
		{name: "unknown log format", mutate: func(c *Config) { c.Log.Format = "xml" }},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(New(), "")
			require.NoError(t, err)

			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	t.Run("memory driver needs no dsn", func(t *testing.T) {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		cfg.Storage.Driver = DriverMemory
		cfg.Storage.DSN = ""
		assert.NoError(t, cfg.Validate())
	})
}

func TestCollabConfig_Session(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)
	cfg.Collab.Mode = models.ModePlain
	cfg.Collab.Retention = time.Hour

	s := cfg.Collab.Session()
	assert.Equal(t, models.ModePlain, s.Mode)
	assert.Equal(t, time.Hour, s.Retention)
	assert.Equal(t, 65536, s.FrameLimit())
}

func TestLogConfig_SlogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", LogConfig{Level: "debug"}.SlogLevel().String())
	assert.Equal(t, "WARN", LogConfig{Level: "WARN"}.SlogLevel().String())
	assert.Equal(t, "INFO", LogConfig{Level: "bogus"}.SlogLevel().String())
}
