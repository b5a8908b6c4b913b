// Package document содержит авторитетные in-memory копии документа для
// обоих режимов. Движки не потокобезопасны: ими владеет актор документа.
package document

import (
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/iudanet/gophcollab/pkg/api"
)

// PlainEngine хранит текст как UTF-16 code units, в тех же единицах, что
// и смещения редактора.
type PlainEngine struct {
	text        []uint16
	initialized bool
}

// NewPlainEngine создает пустой движок.
func NewPlainEngine() *PlainEngine {
	return &PlainEngine{}
}

// Load восстанавливает текст из сохраненной записи (UTF-8).
// Невалидные последовательности заменяются на U+FFFD.
func (e *PlainEngine) Load(state []byte) {
	s := string(state)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "�")
	}
	e.text = utf16.Encode([]rune(s))
	if len(e.text) > 0 {
		e.initialized = true
	}
}

// Bootstrap принимает candidate как начальное содержимое, если документ
// пуст и еще ни разу не инициализировался. Возвращает true, если принял.
func (e *PlainEngine) Bootstrap(candidate string) bool {
	if e.initialized || len(e.text) > 0 || candidate == "" {
		return false
	}
	e.text = utf16.Encode([]rune(candidate))
	e.initialized = true
	return true
}

// Apply заменяет [From, To) на Insert. Смещения трактуются как у
// String.prototype.slice: отрицательные считаются от конца, выход за
// границы обрезается. Правка никогда не отвергается.
func (e *PlainEngine) Apply(change api.Change) {
	n := len(e.text)
	from := sliceIndex(change.From, n)
	to := sliceIndex(change.To, n)
	insert := utf16.Encode([]rune(change.Insert))

	next := make([]uint16, 0, from+len(insert)+n-to)
	next = append(next, e.text[:from]...)
	next = append(next, insert...)
	next = append(next, e.text[to:]...)

	e.text = next
	e.initialized = true
}

// sliceIndex нормализует индекс по правилам slice.
func sliceIndex(i, n int) int {
	if i < 0 {
		i += n
		if i < 0 {
			return 0
		}
		return i
	}
	if i > n {
		return n
	}
	return i
}

// Text возвращает текущий текст.
func (e *PlainEngine) Text() string {
	return string(utf16.Decode(e.text))
}

// Snapshot возвращает текст в виде для хранения (UTF-8).
func (e *PlainEngine) Snapshot() []byte {
	return []byte(e.Text())
}

// Len возвращает длину в UTF-16 code units.
func (e *PlainEngine) Len() int {
	return len(e.text)
}
