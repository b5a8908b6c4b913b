package crdt

import "sort"

// findIndex возвращает индекс блока, содержащего clock. Вызывающий
// гарантирует clock < state клиента.
func findIndex(structs []*item, clock uint64) int {
	return sort.Search(len(structs), func(i int) bool {
		return structs[i].id.Clock+structs[i].length > clock
	})
}

func (d *Doc) state(client uint64) uint64 {
	structs := d.clients[client]
	if len(structs) == 0 {
		return 0
	}
	last := structs[len(structs)-1]
	return last.id.Clock + last.length
}

func (d *Doc) addStruct(s *item) {
	d.clients[s.id.Client] = append(d.clients[s.id.Client], s)
}

// getItem возвращает блок, содержащий id, без разрезания.
func (d *Doc) getItem(id ID) *item {
	structs := d.clients[id.Client]
	i := findIndex(structs, id.Clock)
	if i == len(structs) {
		return nil
	}
	return structs[i]
}

// getItemCleanStart возвращает блок, начинающийся ровно с id, разрезая при необходимости.
func (d *Doc) getItemCleanStart(id ID) *item {
	structs := d.clients[id.Client]
	i := findIndex(structs, id.Clock)
	s := structs[i]
	if s.id.Clock < id.Clock && !s.gc {
		return d.split(id.Client, i, id.Clock-s.id.Clock)
	}
	return s
}

// getItemCleanEnd возвращает блок, заканчивающийся ровно на id, разрезая при необходимости.
func (d *Doc) getItemCleanEnd(id ID) *item {
	structs := d.clients[id.Client]
	i := findIndex(structs, id.Clock)
	s := structs[i]
	if id.Clock != s.id.Clock+s.length-1 && !s.gc {
		d.split(id.Client, i, id.Clock-s.id.Clock+1)
	}
	return s
}

// split делит блок structs[i] клиента на [0, diff) и [diff, length),
// возвращает правую часть.
func (d *Doc) split(client uint64, i int, diff uint64) *item {
	structs := d.clients[client]
	left := structs[i]
	right := &item{
		id:          ID{Client: client, Clock: left.id.Clock + diff},
		origin:      &ID{Client: client, Clock: left.id.Clock + diff - 1},
		rightOrigin: left.rightOrigin,
		left:        left,
		right:       left.right,
		length:      left.length - diff,
		deleted:     left.deleted,
	}
	if left.content != nil {
		left.content, right.content = splitUnits(left.content, diff)
	}
	left.length = diff
	left.right = right
	if right.right != nil {
		right.right.left = right
	}

	structs = append(structs, nil)
	copy(structs[i+2:], structs[i+1:])
	structs[i+1] = right
	d.clients[client] = structs
	return right
}
