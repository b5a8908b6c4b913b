package crdt

import (
	"fmt"
	"sort"

	"github.com/iudanet/gophcollab/internal/wire"
)

// ID логический адрес одной UTF-16 единицы документа: клиент, создавший ее,
// и порядковый номер в потоке операций этого клиента.
type ID struct {
	Client uint64
	Clock  uint64
}

func (id ID) String() string {
	return fmt.Sprintf("%d:%d", id.Client, id.Clock)
}

// sameID сравнивает необязательные ссылки на ID (nil == nil).
func sameID(a, b *ID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// StateVector хранит для каждого клиента следующий ожидаемый clock,
// то есть количество уже известных единиц этого клиента.
type StateVector map[uint64]uint64

// Get возвращает clock клиента, 0 если клиент неизвестен.
func (sv StateVector) Get(client uint64) uint64 {
	return sv[client]
}

// Clone возвращает независимую копию вектора.
func (sv StateVector) Clone() StateVector {
	out := make(StateVector, len(sv))
	for client, clock := range sv {
		out[client] = clock
	}
	return out
}

// clients возвращает клиентов в порядке убывания id, как их пишет Yjs.
func (sv StateVector) clients() []uint64 {
	out := make([]uint64, 0, len(sv))
	for client := range sv {
		out = append(out, client)
	}
	sortClientsDesc(out)
	return out
}

// Encode кодирует вектор в формате y-protocols (varuint пары).
func (sv StateVector) Encode() []byte {
	e := wire.NewEncoder()
	e.WriteVarUint(uint64(len(sv)))
	for _, client := range sv.clients() {
		e.WriteVarUint(client)
		e.WriteVarUint(sv[client])
	}
	return e.Bytes()
}

// DecodeStateVector разбирает закодированный вектор состояния.
// Пустой ввод трактуется как пустой вектор.
func DecodeStateVector(data []byte) (StateVector, error) {
	sv := StateVector{}
	if len(data) == 0 {
		return sv, nil
	}

	d := wire.NewDecoder(data)
	n, err := d.ReadVarUint()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read state vector length: %v", ErrMalformedUpdate, err)
	}
	for i := uint64(0); i < n; i++ {
		client, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read state vector client: %v", ErrMalformedUpdate, err)
		}
		clock, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read state vector clock: %v", ErrMalformedUpdate, err)
		}
		sv[client] = clock
	}
	return sv, nil
}

func sortClientsDesc(clients []uint64) {
	sort.Slice(clients, func(i, j int) bool { return clients[i] > clients[j] })
}
