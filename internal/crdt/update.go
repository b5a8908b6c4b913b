package crdt

import (
	"fmt"
	"math"
	"unicode/utf16"

	"github.com/iudanet/gophcollab/internal/wire"
)

// номера типов блоков и содержимого Yjs
const (
	refGC      = 0
	refDeleted = 1
	refString  = 4
	refSkip    = 10
)

const (
	bitsRef         = 0x1f
	bitParentSub    = 0x20
	bitRightOrigin  = 0x40
	bitOrigin       = 0x80
	parentInfoIsKey = 1
)

// decodeUpdate разбирает обновление целиком до любых изменений документа.
func decodeUpdate(update []byte, textName string) (map[uint64][]*item, DeleteSet, error) {
	d := wire.NewDecoder(update)
	numClients, err := d.ReadVarUint()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to read client count: %v", ErrMalformedUpdate, err)
	}

	structs := make(map[uint64][]*item)
	for i := uint64(0); i < numClients; i++ {
		count, err := d.ReadVarUint()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read struct count: %v", ErrMalformedUpdate, err)
		}
		client, err := d.ReadVarUint()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read client: %v", ErrMalformedUpdate, err)
		}
		clock, err := d.ReadVarUint()
		if err != nil {
			return nil, nil, fmt.Errorf("%w: failed to read clock: %v", ErrMalformedUpdate, err)
		}

		for j := uint64(0); j < count; j++ {
			info, err := d.ReadUint8()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: failed to read struct info: %v", ErrMalformedUpdate, err)
			}

			id := ID{Client: client, Clock: clock}
			var s *item
			switch info & bitsRef {
			case refGC, refSkip:
				length, err := d.ReadVarUint()
				if err != nil {
					return nil, nil, fmt.Errorf("%w: failed to read struct length: %v", ErrMalformedUpdate, err)
				}
				if info&bitsRef == refGC {
					s = &item{id: id, length: length, gc: true, deleted: true}
				} else if err := advanceClock(&clock, length); err != nil {
					return nil, nil, err
				}
			default:
				if s, err = readItem(d, info, id, textName); err != nil {
					return nil, nil, err
				}
			}

			if s == nil {
				continue
			}
			if err := advanceClock(&clock, s.length); err != nil {
				return nil, nil, err
			}
			structs[client] = append(structs[client], s)
		}
	}

	ds, err := readDeleteSet(d)
	if err != nil {
		return nil, nil, err
	}
	return structs, ds, nil
}

func advanceClock(clock *uint64, length uint64) error {
	if length == 0 {
		return fmt.Errorf("%w: zero length struct", ErrMalformedUpdate)
	}
	if length > math.MaxUint64-*clock {
		return fmt.Errorf("%w: clock overflow", ErrMalformedUpdate)
	}
	*clock += length
	return nil
}

func readID(d *wire.Decoder) (ID, error) {
	client, err := d.ReadVarUint()
	if err != nil {
		return ID{}, err
	}
	clock, err := d.ReadVarUint()
	if err != nil {
		return ID{}, err
	}
	return ID{Client: client, Clock: clock}, nil
}

func readItem(d *wire.Decoder, info uint8, id ID, textName string) (*item, error) {
	s := &item{id: id}

	if info&bitOrigin != 0 {
		origin, err := readID(d)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read origin: %v", ErrMalformedUpdate, err)
		}
		s.origin = &origin
	}
	if info&bitRightOrigin != 0 {
		rightOrigin, err := readID(d)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read right origin: %v", ErrMalformedUpdate, err)
		}
		s.rightOrigin = &rightOrigin
	}

	if info&(bitOrigin|bitRightOrigin) == 0 {
		isKey, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read parent info: %v", ErrMalformedUpdate, err)
		}
		if isKey != parentInfoIsKey {
			return nil, fmt.Errorf("%w: nested parent type", ErrUnsupportedContent)
		}
		name, err := d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read parent key: %v", ErrMalformedUpdate, err)
		}
		if name != textName {
			return nil, fmt.Errorf("%w: root type %q", ErrUnsupportedContent, name)
		}
		if info&bitParentSub != 0 {
			return nil, fmt.Errorf("%w: map entry in %q", ErrUnsupportedContent, name)
		}
	}

	switch ref := info & bitsRef; ref {
	case refDeleted:
		length, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read deleted length: %v", ErrMalformedUpdate, err)
		}
		s.length = length
		s.deleted = true
	case refString:
		str, err := d.ReadVarString()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read string content: %v", ErrMalformedUpdate, err)
		}
		s.content = utf16.Encode([]rune(str))
		s.length = uint64(len(s.content))
	default:
		return nil, fmt.Errorf("%w: content ref %d", ErrUnsupportedContent, ref)
	}

	return s, nil
}

// segment один записываемый блок: несколько смежных блоков одного
// клиента, склеенных в канонический вид.
type segment struct {
	origin      *ID
	rightOrigin *ID
	content     []uint16
	id          ID
	length      uint64
	deleted     bool
	gc          bool
	skip        bool
}

func segmentOf(s *item, offset uint64) segment {
	seg := segment{
		id:          ID{Client: s.id.Client, Clock: s.id.Clock + offset},
		origin:      s.origin,
		rightOrigin: s.rightOrigin,
		length:      s.length - offset,
		deleted:     s.deleted,
		gc:          s.gc,
	}
	if offset > 0 && !s.gc {
		seg.origin = &ID{Client: s.id.Client, Clock: s.id.Clock + offset - 1}
	}
	if s.countable() {
		seg.content = append([]uint16(nil), s.content[offset:]...)
	}
	return seg
}

// mergeable сообщает, продолжает ли next блок prev без разрывов в списке.
func mergeable(prev, next *item) bool {
	if prev.gc || next.gc {
		return prev.gc && next.gc
	}
	return prev.deleted == next.deleted &&
		prev.right == next &&
		next.origin != nil && *next.origin == prev.lastID() &&
		sameID(prev.rightOrigin, next.rightOrigin)
}

// clientSegments строит канонические сегменты клиента начиная с clock from.
func (d *Doc) clientSegments(client, from uint64, withPending bool) []segment {
	var segs []segment
	structs := d.clients[client]
	cursor := d.state(client)

	if from < cursor {
		first := findIndex(structs, from)
		for i := first; i < len(structs); i++ {
			s := structs[i]
			if i > first && mergeable(structs[i-1], s) {
				last := &segs[len(segs)-1]
				last.length += s.length
				last.content = append(last.content, s.content...)
				continue
			}
			offset := uint64(0)
			if i == first {
				offset = from - s.id.Clock
			}
			segs = append(segs, segmentOf(s, offset))
		}
	} else {
		cursor = from
	}

	if !withPending {
		return segs
	}
	for _, p := range d.pending[client] {
		end := p.id.Clock + p.length
		if end <= cursor {
			continue
		}
		offset := uint64(0)
		switch {
		case p.id.Clock < cursor:
			offset = cursor - p.id.Clock
		case p.id.Clock > cursor && len(segs) > 0:
			segs = append(segs, segment{id: ID{Client: client, Clock: cursor}, length: p.id.Clock - cursor, skip: true})
		}
		segs = append(segs, segmentOf(p, offset))
		cursor = end
	}
	return segs
}

// encode пишет блоки, отсутствующие в sv, и набор удалений ds.
func (d *Doc) encode(sv StateVector, ds DeleteSet, withPending bool) []byte {
	clientSet := make(map[uint64]struct{}, len(d.clients)+len(d.pending))
	for client := range d.clients {
		clientSet[client] = struct{}{}
	}
	if withPending {
		for client := range d.pending {
			clientSet[client] = struct{}{}
		}
	}
	clients := make([]uint64, 0, len(clientSet))
	for client := range clientSet {
		clients = append(clients, client)
	}
	sortClientsDesc(clients)

	type section struct {
		segs   []segment
		client uint64
	}
	sections := make([]section, 0, len(clients))
	for _, client := range clients {
		if segs := d.clientSegments(client, sv.Get(client), withPending); len(segs) > 0 {
			sections = append(sections, section{client: client, segs: segs})
		}
	}

	e := wire.NewEncoder()
	e.WriteVarUint(uint64(len(sections)))
	for _, sec := range sections {
		e.WriteVarUint(uint64(len(sec.segs)))
		e.WriteVarUint(sec.client)
		e.WriteVarUint(sec.segs[0].id.Clock)
		for _, seg := range sec.segs {
			d.writeSegment(e, seg)
		}
	}

	if ds == nil {
		ds = DeleteSet{}
	}
	ds.write(e)
	return e.Bytes()
}

func (d *Doc) writeSegment(e *wire.Encoder, seg segment) {
	switch {
	case seg.skip:
		e.WriteUint8(refSkip)
		e.WriteVarUint(seg.length)
		return
	case seg.gc:
		e.WriteUint8(refGC)
		e.WriteVarUint(seg.length)
		return
	}

	info := uint8(refString)
	if seg.deleted {
		info = refDeleted
	}
	if seg.origin != nil {
		info |= bitOrigin
	}
	if seg.rightOrigin != nil {
		info |= bitRightOrigin
	}
	e.WriteUint8(info)

	if seg.origin != nil {
		e.WriteVarUint(seg.origin.Client)
		e.WriteVarUint(seg.origin.Clock)
	}
	if seg.rightOrigin != nil {
		e.WriteVarUint(seg.rightOrigin.Client)
		e.WriteVarUint(seg.rightOrigin.Clock)
	}
	if seg.origin == nil && seg.rightOrigin == nil {
		e.WriteVarUint(parentInfoIsKey)
		e.WriteVarString(d.textName)
	}

	if seg.deleted {
		e.WriteVarUint(seg.length)
	} else {
		e.WriteVarString(string(utf16.Decode(seg.content)))
	}
}
