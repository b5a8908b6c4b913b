package crdt

import (
	"fmt"
	"sort"

	"github.com/iudanet/gophcollab/internal/wire"
)

// DeleteRange непрерывный диапазон удаленных единиц одного клиента.
type DeleteRange struct {
	Clock uint64
	Len   uint64
}

// DeleteSet удаленные диапазоны, сгруппированные по клиенту.
type DeleteSet map[uint64][]DeleteRange

func (ds DeleteSet) add(client, clock, length uint64) {
	if length == 0 {
		return
	}
	ds[client] = append(ds[client], DeleteRange{Clock: clock, Len: length})
}

// normalize сортирует диапазоны и склеивает пересекающиеся и смежные.
func (ds DeleteSet) normalize() {
	for client, ranges := range ds {
		if len(ranges) == 0 {
			delete(ds, client)
			continue
		}
		sort.Slice(ranges, func(i, j int) bool { return ranges[i].Clock < ranges[j].Clock })
		merged := ranges[:1]
		for _, r := range ranges[1:] {
			last := &merged[len(merged)-1]
			if r.Clock <= last.Clock+last.Len {
				if end := r.Clock + r.Len; end > last.Clock+last.Len {
					last.Len = end - last.Clock
				}
				continue
			}
			merged = append(merged, r)
		}
		ds[client] = merged
	}
}

func (ds DeleteSet) merge(other DeleteSet) {
	for client, ranges := range other {
		ds[client] = append(ds[client], ranges...)
	}
}

func (ds DeleteSet) empty() bool {
	for _, ranges := range ds {
		if len(ranges) > 0 {
			return false
		}
	}
	return true
}

func (ds DeleteSet) write(e *wire.Encoder) {
	ds.normalize()
	clients := make([]uint64, 0, len(ds))
	for client := range ds {
		clients = append(clients, client)
	}
	sortClientsDesc(clients)

	e.WriteVarUint(uint64(len(clients)))
	for _, client := range clients {
		ranges := ds[client]
		e.WriteVarUint(client)
		e.WriteVarUint(uint64(len(ranges)))
		for _, r := range ranges {
			e.WriteVarUint(r.Clock)
			e.WriteVarUint(r.Len)
		}
	}
}

func readDeleteSet(d *wire.Decoder) (DeleteSet, error) {
	ds := DeleteSet{}
	n, err := d.ReadVarUint()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read delete set length: %v", ErrMalformedUpdate, err)
	}
	for i := uint64(0); i < n; i++ {
		client, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read delete set client: %v", ErrMalformedUpdate, err)
		}
		count, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read delete set ranges: %v", ErrMalformedUpdate, err)
		}
		for j := uint64(0); j < count; j++ {
			clock, err := d.ReadVarUint()
			if err != nil {
				return nil, fmt.Errorf("%w: failed to read delete range clock: %v", ErrMalformedUpdate, err)
			}
			length, err := d.ReadVarUint()
			if err != nil {
				return nil, fmt.Errorf("%w: failed to read delete range length: %v", ErrMalformedUpdate, err)
			}
			ds.add(client, clock, length)
		}
	}
	return ds, nil
}
