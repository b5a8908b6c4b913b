package session

import (
	"time"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/presence"
	"github.com/iudanet/gophcollab/internal/wire"
)

const (
	// DefaultCheckpointInterval горизонт debounce checkpoint
	DefaultCheckpointInterval = 30 * time.Second
	// DefaultRetention время простоя, после которого документ удаляется
	DefaultRetention = 48 * time.Hour
	// DefaultMailboxSize размер очереди событий актора
	DefaultMailboxSize = 256
	// DefaultStoreTimeout таймаут одного обращения к хранилищу
	DefaultStoreTimeout = 5 * time.Second
	// DefaultLoadTimeout сколько актор пытается загрузить запись при старте
	DefaultLoadTimeout = 10 * time.Second
)

// Config holds per-actor settings shared by all documents of a registry.
// Zero fields take defaults, except AwarenessTimeout where zero disables
// awareness expiry.
type Config struct {
	Mode               models.Mode
	TextName           string
	CheckpointInterval time.Duration
	Retention          time.Duration
	AwarenessTimeout   time.Duration
	StoreTimeout       time.Duration
	LoadTimeout        time.Duration
	MaxPlainFrame      int
	MaxCRDTFrame       int
	MailboxSize        int
}

// DefaultConfig returns the observed production settings in CRDT mode.
func DefaultConfig() Config {
	return Config{
		Mode:               models.ModeCRDT,
		TextName:           crdt.DefaultTextName,
		CheckpointInterval: DefaultCheckpointInterval,
		Retention:          DefaultRetention,
		AwarenessTimeout:   presence.DefaultAwarenessTimeout,
		StoreTimeout:       DefaultStoreTimeout,
		LoadTimeout:        DefaultLoadTimeout,
		MaxPlainFrame:      wire.MaxPlainFrameSize,
		MaxCRDTFrame:       wire.MaxCRDTFrameSize,
		MailboxSize:        DefaultMailboxSize,
	}
}

// withDefaults заполняет нулевые поля значениями по умолчанию
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if c.TextName == "" {
		c.TextName = d.TextName
	}
	if c.CheckpointInterval <= 0 {
		c.CheckpointInterval = d.CheckpointInterval
	}
	if c.Retention <= 0 {
		c.Retention = d.Retention
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = d.StoreTimeout
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = d.LoadTimeout
	}
	if c.MaxPlainFrame <= 0 {
		c.MaxPlainFrame = d.MaxPlainFrame
	}
	if c.MaxCRDTFrame <= 0 {
		c.MaxCRDTFrame = d.MaxCRDTFrame
	}
	if c.MailboxSize <= 0 {
		c.MailboxSize = d.MailboxSize
	}
	return c
}

// FrameLimit returns the inbound frame ceiling of the configured mode.
func (c Config) FrameLimit() int {
	c = c.withDefaults()
	if c.Mode == models.ModePlain {
		return c.MaxPlainFrame
	}
	return c.MaxCRDTFrame
}
