package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/crdt"
	"github.com/iudanet/gophcollab/pkg/api"
)

func TestPlainEngine_Apply(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		want    string
		change  api.Change
	}{
		{"insert at start", "hello", "Xhello", api.Change{From: 0, To: 0, Insert: "X"}},
		{"replace range", "hello", "hEYo", api.Change{From: 1, To: 4, Insert: "EY"}},
		{"delete range", "hello", "ho", api.Change{From: 1, To: 4}},
		{"append past end", "hi", "hi!", api.Change{From: 10, To: 10, Insert: "!"}},
		{"negative offsets count from end", "hello", "helXo", api.Change{From: -2, To: -1, Insert: "X"}},
		{"very negative clamps to zero", "ab", "Xab", api.Change{From: -10, To: -10, Insert: "X"}},
		{"inverted range duplicates like slice", "abc", "abXbc", api.Change{From: 2, To: 1, Insert: "X"}},
		{"utf-16 offsets", "a😀b", "a😀Xb", api.Change{From: 3, To: 3, Insert: "X"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewPlainEngine()
			e.Load([]byte(tt.initial))
			e.Apply(tt.change)
			assert.Equal(t, tt.want, e.Text())
		})
	}
}

func TestPlainEngine_ArrivalOrderWins(t *testing.T) {
	e := NewPlainEngine()
	e.Load([]byte("abcdef"))

	// два клиента правят пересекающиеся диапазоны одного снимка
	e.Apply(api.Change{From: 1, To: 4, Insert: "X"})
	e.Apply(api.Change{From: 2, To: 5, Insert: "Y"})

	assert.Equal(t, "aXY", e.Text())
}

func TestPlainEngine_Bootstrap(t *testing.T) {
	t.Run("first non-empty candidate wins", func(t *testing.T) {
		e := NewPlainEngine()

		assert.True(t, e.Bootstrap("X"))
		assert.False(t, e.Bootstrap("Y"))
		assert.False(t, e.Bootstrap("Z"))
		assert.Equal(t, "X", e.Text())
	})

	t.Run("guard survives the document becoming empty", func(t *testing.T) {
		e := NewPlainEngine()
		require.True(t, e.Bootstrap("X"))

		e.Apply(api.Change{From: 0, To: 1})
		require.Equal(t, 0, e.Len())

		assert.False(t, e.Bootstrap("Y"), "late init must not re-seed")
		assert.Equal(t, "", e.Text())
	})

	t.Run("empty candidate does not arm the guard", func(t *testing.T) {
		e := NewPlainEngine()

		assert.False(t, e.Bootstrap(""))
		assert.False(t, e.initialized)
		assert.True(t, e.Bootstrap("X"))
	})

	t.Run("loaded content blocks bootstrap", func(t *testing.T) {
		e := NewPlainEngine()
		e.Load([]byte("stored"))

		assert.True(t, e.initialized)
		assert.False(t, e.Bootstrap("X"))
		assert.Equal(t, "stored", e.Text())
	})

	t.Run("edit arms the guard", func(t *testing.T) {
		e := NewPlainEngine()
		e.Apply(api.Change{Insert: ""})

		assert.False(t, e.Bootstrap("X"))
	})
}

func TestPlainEngine_Snapshot(t *testing.T) {
	e := NewPlainEngine()
	e.Load([]byte("при\xffвет"))

	assert.Equal(t, "при�вет", e.Text())
	assert.Equal(t, []byte("при�вет"), e.Snapshot())
}

func TestCRDTEngine_SyncRoundTrip(t *testing.T) {
	server := NewCRDTEngine(crdt.WithClientID(1))
	client := crdt.NewDoc(crdt.WithClientID(2))

	update, err := client.Insert(0, "hello")
	require.NoError(t, err)

	change, err := server.Apply(update)
	require.NoError(t, err)
	assert.True(t, change.Changed)
	assert.Equal(t, "hello", server.Text())
	assert.True(t, server.initialized)

	// новый клиент догоняет по sync step 1
	late := crdt.NewDoc(crdt.WithClientID(3))
	diff, err := server.DiffSince(late.EncodeStateVector())
	require.NoError(t, err)
	_, err = late.ApplyUpdate(diff)
	require.NoError(t, err)
	assert.Equal(t, "hello", late.String())
}

func TestCRDTEngine_LoadSnapshot(t *testing.T) {
	src := NewCRDTEngine(crdt.WithClientID(1))
	_, ok := src.Bootstrap("seed")
	require.True(t, ok)

	restored := NewCRDTEngine(crdt.WithClientID(9))
	require.NoError(t, restored.Load(src.Snapshot()))
	assert.Equal(t, "seed", restored.Text())
	assert.True(t, restored.initialized)

	// повторная загрузка идемпотентна
	require.NoError(t, restored.Load(src.Snapshot()))
	assert.Equal(t, "seed", restored.Text())
	assert.Equal(t, src.Snapshot(), restored.Snapshot())
}

func TestCRDTEngine_LoadErrors(t *testing.T) {
	e := NewCRDTEngine()
	require.NoError(t, e.Load(nil))

	err := e.Load([]byte{0xff})
	assert.ErrorIs(t, err, crdt.ErrMalformedUpdate)
}

func TestCRDTEngine_Bootstrap(t *testing.T) {
	e := NewCRDTEngine(crdt.WithClientID(1))

	update, ok := e.Bootstrap("X")
	require.True(t, ok)
	assert.NotEmpty(t, update)

	_, ok = e.Bootstrap("Y")
	assert.False(t, ok)
	assert.Equal(t, "X", e.Text())

	other := NewCRDTEngine(crdt.WithClientID(2))
	_, err := other.Apply(update)
	require.NoError(t, err)
	_, ok = other.Bootstrap("Z")
	assert.False(t, ok, "remote content arms the guard")
}

func TestCRDTEngine_ApplyRejectsGarbage(t *testing.T) {
	e := NewCRDTEngine()
	_, err := e.Apply([]byte{1})
	assert.ErrorIs(t, err, crdt.ErrMalformedUpdate)
	assert.False(t, e.initialized)
}
