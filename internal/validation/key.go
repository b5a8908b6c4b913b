package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxDocumentKeyLen максимальная длина ключа документа в байтах
	MaxDocumentKeyLen = 1024
)

// ValidateDocumentKey проверяет, что ключ документа пригоден для адресации актора.
// Ключ непрозрачен: проверяется только то, что ломает хранение и логи
// (пустота, длина, невалидный UTF-8, управляющие символы).
func ValidateDocumentKey(key string) error {
	if key == "" {
		return fmt.Errorf("document key cannot be empty")
	}

	if len(key) > MaxDocumentKeyLen {
		return fmt.Errorf("document key must not exceed %d bytes", MaxDocumentKeyLen)
	}

	if !utf8.ValidString(key) {
		return fmt.Errorf("document key must be valid UTF-8")
	}

	if strings.IndexFunc(key, isControl) >= 0 {
		return fmt.Errorf("document key must not contain control characters")
	}

	if strings.TrimSpace(key) != key {
		return fmt.Errorf("document key must not start or end with whitespace")
	}

	return nil
}

func isControl(r rune) bool {
	return r < 0x20 || r == 0x7f
}
