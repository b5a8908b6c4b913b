package models

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// DocumentKey идентифицирует один совместно редактируемый документ.
// Ключ выводится внешним gatekeeper'ом (org/repo/branch/path) и внутри ядра
// считается непрозрачной строкой.
type DocumentKey string

// ID returns the stable storage identifier of the document.
// Two actors can never share an ID unless they share the key.
func (k DocumentKey) ID() string {
	sum := blake2b.Sum256([]byte(k))
	return hex.EncodeToString(sum[:])
}

func (k DocumentKey) String() string {
	return string(k)
}

// Mode выбирает модель состояния документа
type Mode string

const (
	// ModePlain - документ как одна строка, правки last-write-wins
	ModePlain Mode = "plain"
	// ModeCRDT - документ как sequence CRDT со слиянием конкурентных правок
	ModeCRDT Mode = "crdt"
)

// ParseMode converts a configuration value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePlain:
		return ModePlain, nil
	case ModeCRDT:
		return ModeCRDT, nil
	default:
		return "", fmt.Errorf("unknown collaboration mode %q (want %q or %q)", s, ModePlain, ModeCRDT)
	}
}

// DocumentRecord - персистентная запись документа (одна строка на ключ).
// Единственный долговременный источник истины; состояние в памяти актора
// является кэшем, который сводится к записи через checkpoint.
type DocumentRecord struct {
	LastActivity time.Time   `json:"last_activity"` // LastActivity время последнего checkpoint или отключения
	Key          DocumentKey `json:"key"`           // Key ключ документа
	Mode         Mode        `json:"mode"`          // Mode режим, в котором записано содержимое
	Content      []byte      `json:"content"`       // Content текст (plain) или закодированное CRDT состояние
}

// Clone создает глубокую копию записи
func (r *DocumentRecord) Clone() *DocumentRecord {
	content := make([]byte, len(r.Content))
	copy(content, r.Content)

	return &DocumentRecord{
		Key:          r.Key,
		Mode:         r.Mode,
		Content:      content,
		LastActivity: r.LastActivity,
	}
}
