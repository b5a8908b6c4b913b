package crdt

import (
	"sort"
	"sync"
	"time"
)

// Outcome результат применения записи к LWWSet.
type Outcome int

const (
	// Unchanged запись устарела и отброшена
	Unchanged Outcome = iota
	// Added клиент появился
	Added
	// Updated состояние клиента изменилось
	Updated
	// Refreshed clock вырос, состояние то же (heartbeat)
	Refreshed
	// Removed клиент ушел
	Removed
)

// Register последнее известное состояние одного клиента, версионированное
// собственным clock клиента.
type Register[V any] struct {
	Value   V
	Updated time.Time // локальное время последнего применения
	Client  uint64
	Clock   uint64
	Present bool
}

// LWWSet представляет набор Last-Write-Wins регистров, по одному на клиента.
// Побеждает больший clock; при равном clock удаление побеждает значение.
// Метаданные удаленных клиентов сохраняются, чтобы старые записи не
// воскрешали их.
type LWWSet[V any] struct {
	registers map[uint64]*Register[V]
	equal     func(a, b V) bool
	mu        sync.RWMutex
}

// NewLWWSet создает пустой набор. equal сравнивает значения для
// различения Updated и Refreshed.
func NewLWWSet[V any](equal func(a, b V) bool) *LWWSet[V] {
	return &LWWSet[V]{
		registers: make(map[uint64]*Register[V]),
		equal:     equal,
	}
}

// Set применяет значение клиента с заданным clock.
func (s *LWWSet[V]) Set(client, clock uint64, value V, now time.Time) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.registers[client]
	if exists && clock <= existing.Clock {
		return Unchanged
	}

	outcome := Added
	if exists && existing.Present {
		outcome = Updated
		if s.equal != nil && s.equal(existing.Value, value) {
			outcome = Refreshed
		}
	}

	s.registers[client] = &Register[V]{
		Client:  client,
		Clock:   clock,
		Value:   value,
		Updated: now,
		Present: true,
	}
	return outcome
}

// Remove применяет удаление клиента с заданным clock.
func (s *LWWSet[V]) Remove(client, clock uint64, now time.Time) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.registers[client]
	if exists {
		// при равном clock удаление побеждает, если клиент еще присутствует
		if clock < existing.Clock || (clock == existing.Clock && !existing.Present) {
			return Unchanged
		}
	}

	wasPresent := exists && existing.Present
	s.registers[client] = &Register[V]{
		Client:  client,
		Clock:   clock,
		Updated: now,
	}
	switch {
	case wasPresent:
		return Removed
	case exists:
		return Refreshed
	default:
		// неизвестный клиент: запоминаем clock, но рассылать нечего
		return Unchanged
	}
}

// Get возвращает регистр присутствующего клиента.
func (s *LWWSet[V]) Get(client uint64) (Register[V], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.registers[client]
	if !ok || !r.Present {
		return Register[V]{}, false
	}
	return *r, true
}

// Clock возвращает последний известный clock клиента (0 если неизвестен).
func (s *LWWSet[V]) Clock(client uint64) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.registers[client]; ok {
		return r.Clock
	}
	return 0
}

// GetAll возвращает присутствующих клиентов в порядке возрастания id.
func (s *LWWSet[V]) GetAll() []Register[V] {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]Register[V], 0, len(s.registers))
	for _, r := range s.registers {
		if r.Present {
			result = append(result, *r)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Client < result[j].Client })
	return result
}

// Expire удаляет клиентов, не обновлявшихся с before. Clock не меняется:
// следующая запись живого клиента снова его добавит.
func (s *LWWSet[V]) Expire(before, now time.Time) []Register[V] {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []Register[V]
	for client, r := range s.registers {
		if !r.Present || !r.Updated.Before(before) {
			continue
		}
		removed := Register[V]{Client: client, Clock: r.Clock, Updated: now}
		s.registers[client] = &removed
		expired = append(expired, removed)
	}
	sort.Slice(expired, func(i, j int) bool { return expired[i].Client < expired[j].Client })
	return expired
}

// Size возвращает количество присутствующих клиентов.
func (s *LWWSet[V]) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, r := range s.registers {
		if r.Present {
			count++
		}
	}
	return count
}
