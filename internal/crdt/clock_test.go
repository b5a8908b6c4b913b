package crdt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/wire"
)

func TestStateVector_Encode(t *testing.T) {
	sv := StateVector{1: 5, 7: 2}
	// клиенты пишутся по убыванию id
	assert.Equal(t, []byte{2, 7, 2, 1, 5}, sv.Encode())
}

func TestStateVector_RoundTrip(t *testing.T) {
	tests := []struct {
		sv   StateVector
		name string
	}{
		{name: "empty", sv: StateVector{}},
		{name: "single client", sv: StateVector{42: 1}},
		{name: "large ids", sv: StateVector{3735928559: 300, 1: 1 << 40}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeStateVector(tt.sv.Encode())
			require.NoError(t, err)
			assert.Equal(t, tt.sv, decoded)
		})
	}
}

func TestDecodeStateVector_EmptyInput(t *testing.T) {
	sv, err := DecodeStateVector(nil)
	require.NoError(t, err)
	assert.Empty(t, sv)
	assert.Equal(t, uint64(0), sv.Get(9))
}

func TestStateVector_Clone(t *testing.T) {
	sv := StateVector{1: 1}
	clone := sv.Clone()
	clone[1] = 10

	assert.Equal(t, uint64(1), sv.Get(1), "clone must be independent")
}

func TestSameID(t *testing.T) {
	a := ID{Client: 1, Clock: 2}
	b := ID{Client: 1, Clock: 2}
	c := ID{Client: 2, Clock: 2}

	assert.True(t, sameID(nil, nil))
	assert.True(t, sameID(&a, &b))
	assert.False(t, sameID(&a, &c))
	assert.False(t, sameID(&a, nil))
	assert.Equal(t, "1:2", a.String())
}

func TestDeleteSet_Normalize(t *testing.T) {
	ds := DeleteSet{}
	ds.add(1, 10, 2)
	ds.add(1, 0, 3)
	ds.add(1, 3, 2)  // смежный с [0,3)
	ds.add(1, 11, 4) // пересекается с [10,12)
	ds.add(2, 0, 0)  // пустой диапазон игнорируется

	ds.normalize()

	assert.Equal(t, DeleteSet{1: {{Clock: 0, Len: 5}, {Clock: 10, Len: 5}}}, ds)
}

func TestDeleteSet_RoundTrip(t *testing.T) {
	ds := DeleteSet{}
	ds.add(5, 0, 1)
	ds.add(3, 4, 2)

	e := wire.NewEncoder()
	ds.write(e)

	decoded, err := readDeleteSet(wire.NewDecoder(e.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, ds, decoded)
	assert.False(t, decoded.empty())
	assert.True(t, DeleteSet{}.empty())
}

func TestSplitUnits_SurrogatePair(t *testing.T) {
	units := []uint16{'a', 0xd83d, 0xde00, 'b'}

	left, right := splitUnits(units, 2)
	assert.Equal(t, []uint16{'a', replacementChar}, left)
	assert.Equal(t, []uint16{replacementChar, 'b'}, right)

	left, right = splitUnits(units, 1)
	assert.Equal(t, []uint16{'a'}, left)
	assert.Equal(t, []uint16{0xd83d, 0xde00, 'b'}, right)
}
