package collab

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/wire"
	"github.com/iudanet/gophcollab/pkg/api"
)

// CRDTOptions параметры реплики
type CRDTOptions struct {
	// InitialContent уходит в X-Initial-Content, сервер засевает им пустой документ
	InitialContent *string
	// TextName имя корневого текста; должно совпадать с серверным
	TextName string
	ClientID uint64
}

// CRDTSession локальная реплика документа, синхронизируемая с сервером
// по y-protocols: step1/step2 при подключении, затем инкрементальные update.
type CRDTSession struct {
	*conn
	doc       *crdt.Doc
	synced    chan struct{}
	changes   chan string
	awareness int
	mu        sync.Mutex
	syncOnce  sync.Once
}

// OpenCRDT подключается к документу key в CRDT режиме
func (c *Client) OpenCRDT(ctx context.Context, key models.DocumentKey, opts CRDTOptions) (*CRDTSession, error) {
	header := http.Header{}
	if opts.InitialContent != nil {
		header.Set(api.HeaderInitialContent, base64.StdEncoding.EncodeToString([]byte(*opts.InitialContent)))
	}

	docOpts := []crdt.Option{}
	if opts.TextName != "" {
		docOpts = append(docOpts, crdt.WithTextName(opts.TextName))
	}
	if opts.ClientID != 0 {
		docOpts = append(docOpts, crdt.WithClientID(opts.ClientID))
	}

	ws, err := c.dial(ctx, key, header)
	if err != nil {
		return nil, err
	}

	s := &CRDTSession{
		conn:    newConn(ws),
		doc:     crdt.NewDoc(docOpts...),
		synced:  make(chan struct{}),
		changes: make(chan string, 1),
	}
	go s.readLoop(s.dispatch)

	// свой step 1: сервер ответит step 2 со всем, чего у нас нет
	if err := s.write(websocket.BinaryMessage, wire.EncodeSyncStep1(s.doc.EncodeStateVector())); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

func (s *CRDTSession) dispatch(data []byte) bool {
	f, err := wire.DecodeFrame(data, 0)
	if err != nil {
		return true
	}

	switch f.Kind {
	case wire.FrameSync:
		s.handleSync(f.Body)
	case wire.FrameAwareness:
		s.handleAwareness(f.Body)
	}
	return true
}

func (s *CRDTSession) handleSync(body []byte) {
	msg, err := wire.DecodeSyncMessage(body)
	if err != nil {
		return
	}

	switch msg.Type {
	case wire.SyncStep1:
		s.mu.Lock()
		diff, err := s.doc.DiffSince(msg.Payload)
		s.mu.Unlock()
		if err != nil {
			return
		}
		_ = s.write(websocket.BinaryMessage, wire.EncodeSyncStep2(diff))

	case wire.SyncStep2, wire.SyncUpdate:
		s.mu.Lock()
		change, err := s.doc.ApplyUpdate(msg.Payload)
		text := s.doc.String()
		s.mu.Unlock()
		if err != nil {
			return
		}
		if msg.Type == wire.SyncStep2 {
			s.syncOnce.Do(func() { close(s.synced) })
		}
		if change.Changed {
			s.notify(text)
		}
	}
}

func (s *CRDTSession) handleAwareness(body []byte) {
	update, err := wire.DecodeAwarenessFrame(body)
	if err != nil {
		return
	}
	entries, err := wire.DecodeAwarenessUpdate(update)
	if err != nil {
		return
	}
	s.mu.Lock()
	s.awareness += len(entries)
	s.mu.Unlock()
}

// notify кладет последний текст, вытесняя непрочитанный
func (s *CRDTSession) notify(text string) {
	for {
		select {
		case s.changes <- text:
			return
		default:
		}
		select {
		case <-s.changes:
		default:
		}
	}
}

// WaitSynced ждет первый step 2 сервера
func (s *CRDTSession) WaitSynced(ctx context.Context) error {
	select {
	case <-s.synced:
		return nil
	case <-s.done:
		if s.err != nil {
			return fmt.Errorf("session ended before sync: %w", s.err)
		}
		return ErrSessionClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Changes отдает текст документа после каждого удаленного изменения;
// медленный читатель видит только последнее состояние
func (s *CRDTSession) Changes() <-chan string {
	return s.changes
}

// Text возвращает текущий текст реплики
func (s *CRDTSession) Text() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.String()
}

// Len возвращает длину текста в UTF-16 единицах
func (s *CRDTSession) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Len()
}

// AwarenessEntries сколько presence записей получила реплика
func (s *CRDTSession) AwarenessEntries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.awareness
}

// Insert вставляет text в позицию index локально и отправляет update
func (s *CRDTSession) Insert(index int, text string) error {
	s.mu.Lock()
	update, err := s.doc.Insert(index, text)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to insert: %w", err)
	}
	return s.send(update)
}

// Delete удаляет length единиц с позиции index и отправляет update
func (s *CRDTSession) Delete(index, length int) error {
	s.mu.Lock()
	update, err := s.doc.Delete(index, length)
	s.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}
	return s.send(update)
}

// SetAwareness публикует presence состояние реплики (JSON)
func (s *CRDTSession) SetAwareness(clock uint64, state []byte) error {
	update := wire.EncodeAwarenessUpdate([]wire.AwarenessEntry{{
		ClientID: s.doc.ClientID(),
		Clock:    clock,
		State:    state,
	}})
	return s.write(websocket.BinaryMessage, wire.EncodeAwarenessFrame(update))
}

func (s *CRDTSession) send(update []byte) error {
	if len(update) == 0 {
		return nil
	}
	return s.write(websocket.BinaryMessage, wire.EncodeSyncUpdate(update))
}

// Close закрывает сессию с кодом 1000
func (s *CRDTSession) Close() error {
	return s.close()
}
