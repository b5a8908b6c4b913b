package document

import (
	"fmt"

	"github.com/iudanet/gophcollab/internal/crdt"
)

// CRDTEngine оборачивает реплику crdt.Doc, принадлежащую серверу.
type CRDTEngine struct {
	doc         *crdt.Doc
	initialized bool
}

// NewCRDTEngine создает пустую серверную реплику.
func NewCRDTEngine(opts ...crdt.Option) *CRDTEngine {
	return &CRDTEngine{doc: crdt.NewDoc(opts...)}
}

// Load применяет сохраненное состояние к пустой реплике. Применение
// идемпотентно, поэтому повторная загрузка безопасна.
func (e *CRDTEngine) Load(state []byte) error {
	if len(state) == 0 {
		return nil
	}
	if _, err := e.doc.ApplyUpdate(state); err != nil {
		return fmt.Errorf("failed to load crdt state: %w", err)
	}
	if e.doc.Len() > 0 {
		e.initialized = true
	}
	return nil
}

// Bootstrap вставляет candidate от имени сервера, если документ пуст и еще
// не инициализировался. Возвращает обновление для рассылки.
func (e *CRDTEngine) Bootstrap(candidate string) ([]byte, bool) {
	if e.initialized || e.doc.Len() > 0 || candidate == "" {
		return nil, false
	}
	update, err := e.doc.Insert(0, candidate)
	if err != nil {
		return nil, false
	}
	e.initialized = true
	return update, true
}

// Apply сливает входящее обновление и возвращает дельту для рассылки.
func (e *CRDTEngine) Apply(update []byte) (crdt.Change, error) {
	change, err := e.doc.ApplyUpdate(update)
	if err != nil {
		return crdt.Change{}, fmt.Errorf("failed to apply update: %w", err)
	}
	if change.Changed {
		e.initialized = true
	}
	return change, nil
}

// StateVector кодирует вектор состояния для sync step 1.
func (e *CRDTEngine) StateVector() []byte {
	return e.doc.EncodeStateVector()
}

// DiffSince отвечает на sync step 1 клиента.
func (e *CRDTEngine) DiffSince(stateVector []byte) ([]byte, error) {
	diff, err := e.doc.DiffSince(stateVector)
	if err != nil {
		return nil, fmt.Errorf("failed to diff state: %w", err)
	}
	return diff, nil
}

// Snapshot возвращает полное закодированное состояние для хранения.
func (e *CRDTEngine) Snapshot() []byte {
	return e.doc.EncodeStateAsUpdate(nil)
}

// Text возвращает текст документа.
func (e *CRDTEngine) Text() string {
	return e.doc.String()
}
