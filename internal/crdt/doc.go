// Package crdt реализует текстовый CRDT (YATA), совместимый с форматом
// обновлений Yjs v1, и LWW регистры для presence.
package crdt

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"sort"
	"unicode/utf16"
)

// DefaultTextName имя корневого текстового типа документа
const DefaultTextName = "content"

var (
	// ErrMalformedUpdate indicates bytes that are not a valid update or state vector
	ErrMalformedUpdate = errors.New("malformed update")

	// ErrUnsupportedContent indicates an update touching anything but the root text type
	ErrUnsupportedContent = errors.New("unsupported update content")

	// ErrOutOfRange indicates a local edit outside the current text
	ErrOutOfRange = errors.New("position out of range")
)

// Change результат применения обновления.
type Change struct {
	Update  []byte // дельта: новые блоки и новые удаления
	Changed bool
}

// Doc реплика текстового документа. Не потокобезопасна: ею владеет
// одна горутина (актор документа).
type Doc struct {
	clients        map[uint64][]*item
	pending        map[uint64][]*item // блоки с неразрешенными зависимостями
	pendingDeletes DeleteSet
	tx             DeleteSet // удаления текущей операции
	start          *item
	textName       string
	clientID       uint64
	length         uint64
}

// Option настраивает Doc.
type Option func(*Doc)

// WithClientID фиксирует id реплики (по умолчанию случайный uint32).
func WithClientID(id uint64) Option {
	return func(d *Doc) {
		d.clientID = id
	}
}

// WithTextName задает имя корневого текстового типа.
func WithTextName(name string) Option {
	return func(d *Doc) {
		if name != "" {
			d.textName = name
		}
	}
}

// NewDoc создает пустую реплику.
func NewDoc(opts ...Option) *Doc {
	d := &Doc{
		clients:        make(map[uint64][]*item),
		pending:        make(map[uint64][]*item),
		pendingDeletes: DeleteSet{},
		textName:       DefaultTextName,
		clientID:       randomClientID(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func randomClientID() uint64 {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic("crdt: failed to generate client id: " + err.Error())
	}
	return uint64(binary.LittleEndian.Uint32(b[:]))
}

// ClientID возвращает id реплики.
func (d *Doc) ClientID() uint64 {
	return d.clientID
}

// TextName возвращает имя корневого текстового типа.
func (d *Doc) TextName() string {
	return d.textName
}

// Len возвращает длину текста в UTF-16 code units.
func (d *Doc) Len() int {
	return int(d.length)
}

// String возвращает текущий текст.
func (d *Doc) String() string {
	units := make([]uint16, 0, d.length)
	for it := d.start; it != nil; it = it.right {
		if it.countable() {
			units = append(units, it.content...)
		}
	}
	return string(utf16.Decode(units))
}

// HasPending сообщает, есть ли блоки или удаления, ждущие зависимостей.
func (d *Doc) HasPending() bool {
	return len(d.pending) > 0 || !d.pendingDeletes.empty()
}

// StateVector возвращает вектор состояния интегрированных блоков.
func (d *Doc) StateVector() StateVector {
	sv := make(StateVector, len(d.clients))
	for client := range d.clients {
		sv[client] = d.state(client)
	}
	return sv
}

// ApplyUpdate применяет закодированное обновление. Ошибка декодирования
// оставляет документ нетронутым. Блоки с отсутствующими зависимостями
// откладываются и интегрируются, когда зависимости придут.
func (d *Doc) ApplyUpdate(update []byte) (Change, error) {
	structs, ds, err := decodeUpdate(update, d.textName)
	if err != nil {
		return Change{}, err
	}

	before := d.StateVector()
	d.tx = DeleteSet{}
	defer func() { d.tx = nil }()

	d.integrateStructs(structs)

	deletes := d.pendingDeletes
	deletes.merge(ds)
	deletes.normalize()
	d.pendingDeletes = d.applyDeleteSet(deletes)

	if !d.advanced(before) && d.tx.empty() {
		return Change{}, nil
	}
	return Change{Update: d.encode(before, d.tx, false), Changed: true}, nil
}

// Insert вставляет text в позицию index (UTF-16) и возвращает обновление.
func (d *Doc) Insert(index int, text string) ([]byte, error) {
	if index < 0 || uint64(index) > d.length {
		return nil, ErrOutOfRange
	}
	units := utf16.Encode([]rune(text))
	if len(units) == 0 {
		return nil, nil
	}

	before := d.StateVector()
	d.tx = DeleteSet{}
	defer func() { d.tx = nil }()

	left, right := d.findPosition(uint64(index))
	it := &item{
		id:      ID{Client: d.clientID, Clock: d.state(d.clientID)},
		content: units,
		length:  uint64(len(units)),
	}
	if left != nil {
		origin := left.lastID()
		it.origin = &origin
	}
	if right != nil {
		rightOrigin := right.id
		it.rightOrigin = &rightOrigin
	}
	d.integrate(it, 0)

	return d.encode(before, d.tx, false), nil
}

// Delete удаляет length единиц начиная с index и возвращает обновление.
func (d *Doc) Delete(index, length int) ([]byte, error) {
	if index < 0 || length < 0 || uint64(index+length) > d.length {
		return nil, ErrOutOfRange
	}
	if length == 0 {
		return nil, nil
	}

	before := d.StateVector()
	d.tx = DeleteSet{}
	defer func() { d.tx = nil }()

	_, right := d.findPosition(uint64(index))
	remaining := uint64(length)
	for right != nil && remaining > 0 {
		if right.countable() {
			if remaining < right.length {
				d.getItemCleanStart(ID{Client: right.id.Client, Clock: right.id.Clock + remaining})
			}
			remaining -= right.length
			d.deleteItem(right)
		}
		right = right.right
	}

	return d.encode(before, d.tx, false), nil
}

// EncodeStateVector кодирует вектор состояния для sync step 1.
func (d *Doc) EncodeStateVector() []byte {
	return d.StateVector().Encode()
}

// EncodeStateAsUpdate кодирует все, чего нет в sv (nil означает все
// состояние), включая отложенные блоки. Для одинаковых множеств операций
// результат побайтно одинаков.
func (d *Doc) EncodeStateAsUpdate(sv StateVector) []byte {
	ds := d.deleteSetFromStore()
	ds.merge(d.pendingDeletes)
	return d.encode(sv, ds, true)
}

// DiffSince кодирует обновление относительно закодированного вектора состояния.
func (d *Doc) DiffSince(encodedSV []byte) ([]byte, error) {
	sv, err := DecodeStateVector(encodedSV)
	if err != nil {
		return nil, err
	}
	return d.EncodeStateAsUpdate(sv), nil
}

func (d *Doc) advanced(before StateVector) bool {
	for client := range d.clients {
		if d.state(client) != before.Get(client) {
			return true
		}
	}
	return false
}

// findPosition возвращает соседей для вставки в видимую позицию index.
func (d *Doc) findPosition(index uint64) (*item, *item) {
	var left *item
	right := d.start
	for right != nil && index > 0 {
		if right.countable() {
			if index < right.length {
				right = d.getItemCleanStart(ID{Client: right.id.Client, Clock: right.id.Clock + index})
				return right.left, right
			}
			index -= right.length
		}
		left, right = right, right.right
	}
	return left, right
}

func (d *Doc) deleteItem(it *item) {
	if it.deleted {
		return
	}
	if !it.gc {
		d.length -= it.length
	}
	it.deleted = true
	it.content = nil
	if d.tx != nil {
		d.tx.add(it.id.Client, it.id.Clock, it.length)
	}
}

// integrateStructs интегрирует новые и ранее отложенные блоки, пока есть
// прогресс. Остаток уходит в pending.
func (d *Doc) integrateStructs(incoming map[uint64][]*item) {
	queues := d.pending
	d.pending = make(map[uint64][]*item)
	for client, structs := range incoming {
		queues[client] = append(queues[client], structs...)
	}

	clients := make([]uint64, 0, len(queues))
	for client, q := range queues {
		sort.SliceStable(q, func(i, j int) bool { return q[i].id.Clock < q[j].id.Clock })
		clients = append(clients, client)
	}
	sortClientsDesc(clients)

	for progress := true; progress; {
		progress = false
		for _, client := range clients {
			q := queues[client]
			for len(q) > 0 {
				s := q[0]
				state := d.state(client)
				if s.id.Clock > state {
					// разрыв в потоке клиента
					break
				}
				if s.id.Clock+s.length <= state {
					q = q[1:]
					continue
				}
				if !s.gc && d.missing(s) {
					break
				}
				d.integrate(s, state-s.id.Clock)
				q = q[1:]
				progress = true
			}
			queues[client] = q
		}
	}

	for client, q := range queues {
		if len(q) > 0 {
			d.pending[client] = q
		}
	}
}

// missing сообщает, ссылается ли блок на еще неизвестные единицы.
func (d *Doc) missing(s *item) bool {
	if s.origin != nil && s.origin.Clock >= d.state(s.origin.Client) {
		return true
	}
	if s.rightOrigin != nil && s.rightOrigin.Clock >= d.state(s.rightOrigin.Client) {
		return true
	}
	return false
}

// integrate вставляет блок в список. offset > 0 означает, что начало блока
// уже известно и отбрасывается.
func (d *Doc) integrate(s *item, offset uint64) {
	if s.gc {
		d.integrateGC(s, offset)
		return
	}

	var left, right *item
	if s.origin != nil {
		left = d.getItemCleanEnd(*s.origin)
		origin := left.lastID()
		s.origin = &origin
	}
	if s.rightOrigin != nil {
		right = d.getItemCleanStart(*s.rightOrigin)
		rightOrigin := right.id
		s.rightOrigin = &rightOrigin
	}

	if offset > 0 {
		s.id.Clock += offset
		left = d.getItemCleanEnd(ID{Client: s.id.Client, Clock: s.id.Clock - 1})
		origin := left.lastID()
		s.origin = &origin
		if s.content != nil {
			_, s.content = splitUnits(s.content, offset)
		}
		s.length -= offset
		offset = 0
	}

	// соседи удалены сборщиком: вставка превращается в GC
	if (left != nil && left.gc) || (right != nil && right.gc) {
		d.integrateGC(s, offset)
		return
	}

	if (left == nil && (right == nil || right.left != nil)) || (left != nil && left.right != right) {
		left = d.resolveConflict(s, left, right)
	}

	s.left = left
	if left != nil {
		s.right = left.right
		left.right = s
	} else {
		s.right = d.start
		d.start = s
	}
	if s.right != nil {
		s.right.left = s
	}

	d.addStruct(s)
	if s.countable() {
		d.length += s.length
	} else if d.tx != nil {
		d.tx.add(s.id.Client, s.id.Clock, s.length)
	}
}

// resolveConflict выбирает левого соседа среди конкурентных вставок
// между left и right (YATA). Меньший client id оказывается левее.
func (d *Doc) resolveConflict(s, left, right *item) *item {
	var o *item
	if left != nil {
		o = left.right
	} else {
		o = d.start
	}

	conflicting := make(map[*item]struct{})
	beforeOrigin := make(map[*item]struct{})
	for o != nil && o != right {
		beforeOrigin[o] = struct{}{}
		conflicting[o] = struct{}{}

		switch {
		case sameID(s.origin, o.origin):
			if o.id.Client < s.id.Client {
				left = o
				clear(conflicting)
			} else if sameID(s.rightOrigin, o.rightOrigin) {
				return left
			}
		case o.origin != nil:
			originItem := d.getItem(*o.origin)
			if _, ok := beforeOrigin[originItem]; !ok {
				return left
			}
			if _, ok := conflicting[originItem]; !ok {
				left = o
				clear(conflicting)
			}
		default:
			return left
		}
		o = o.right
	}
	return left
}

func (d *Doc) integrateGC(s *item, offset uint64) {
	s.id.Clock += offset
	s.length -= offset
	s.gc = true
	s.deleted = true
	s.content = nil
	s.origin, s.rightOrigin = nil, nil
	d.addStruct(s)
}

// applyDeleteSet помечает удаленными известные диапазоны и возвращает
// те, что относятся к еще неизвестным блокам.
func (d *Doc) applyDeleteSet(ds DeleteSet) DeleteSet {
	unapplied := DeleteSet{}
	for client, ranges := range ds {
		state := d.state(client)
		for _, r := range ranges {
			clock, end := r.Clock, r.Clock+r.Len
			if clock >= state {
				unapplied.add(client, clock, r.Len)
				continue
			}
			if end > state {
				unapplied.add(client, state, end-state)
				end = state
			}

			i := findIndex(d.clients[client], clock)
			if s := d.clients[client][i]; !s.deleted && s.id.Clock < clock {
				d.split(client, i, clock-s.id.Clock)
				i++
			}
			for i < len(d.clients[client]) {
				s := d.clients[client][i]
				if s.id.Clock >= end {
					break
				}
				if !s.deleted {
					if end < s.id.Clock+s.length {
						d.split(client, i, end-s.id.Clock)
					}
					d.deleteItem(s)
				}
				i++
			}
		}
	}
	unapplied.normalize()
	return unapplied
}

// deleteSetFromStore собирает все удаленные диапазоны, включая GC.
func (d *Doc) deleteSetFromStore() DeleteSet {
	ds := DeleteSet{}
	for client, structs := range d.clients {
		for _, s := range structs {
			if s.deleted {
				ds.add(client, s.id.Clock, s.length)
			}
		}
	}
	ds.normalize()
	return ds
}
