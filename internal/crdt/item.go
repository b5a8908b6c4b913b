package crdt

// item непрерывный блок вставки одного клиента. Элементы образуют
// двусвязный список документа (left/right) и параллельно хранятся в срезах
// по клиенту, упорядоченных по clock.
type item struct {
	origin      *ID // последний символ слева на момент вставки
	rightOrigin *ID // первый символ справа на момент вставки
	left        *item
	right       *item
	content     []uint16 // nil для удаленных элементов и GC
	id          ID
	length      uint64
	deleted     bool
	gc          bool // GC блок занимает clock, но не участвует в списке
}

func (it *item) lastID() ID {
	return ID{Client: it.id.Client, Clock: it.id.Clock + it.length - 1}
}

// countable сообщает, входит ли элемент в видимую длину текста.
func (it *item) countable() bool {
	return !it.deleted && !it.gc
}

const replacementChar = 0xfffd

func isHighSurrogate(u uint16) bool {
	return u >= 0xd800 && u <= 0xdbff
}

// splitUnits режет content на [0, at) и [at, len). Разрезанная суррогатная
// пара заменяется на U+FFFD с обеих сторон, сохраняя длины.
func splitUnits(content []uint16, at uint64) ([]uint16, []uint16) {
	left := append([]uint16(nil), content[:at]...)
	right := append([]uint16(nil), content[at:]...)
	if len(left) > 0 && isHighSurrogate(left[len(left)-1]) {
		left[len(left)-1] = replacementChar
		if len(right) > 0 {
			right[0] = replacementChar
		}
	}
	return left, right
}
