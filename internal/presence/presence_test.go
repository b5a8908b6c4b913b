package presence

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iudanet/gophcollab/internal/models"
	"github.com/iudanet/gophcollab/internal/wire"
	"github.com/iudanet/gophcollab/pkg/api"
)

type fakeConn struct {
	sendErr   error
	id        string
	identity  models.Identity
	frames    [][]byte
	closeCode int
}

func (c *fakeConn) ID() string                { return c.id }
func (c *fakeConn) Identity() models.Identity { return c.identity }
func (c *fakeConn) Close(code int, _ string)  { c.closeCode = code }

func (c *fakeConn) Send(frame []byte) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.frames = append(c.frames, frame)
	return nil
}

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSet_AddRemove(t *testing.T) {
	s := NewSet(setupTestLogger())
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}

	s.Add(a)
	s.Add(b)
	s.Add(a) // повторная регистрация не дублирует
	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"a", "b"}, s.order)

	m, ok := s.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "a", m.Conn.ID())
	assert.Equal(t, []string{"b"}, s.order)

	_, ok = s.Remove("a")
	assert.False(t, ok)
}

func TestSet_BroadcastExcludesSender(t *testing.T) {
	s := NewSet(setupTestLogger())
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	c := &fakeConn{id: "c"}
	s.Add(a)
	s.Add(b)
	s.Add(c)

	failed := s.Broadcast([]byte("x"), "a")

	assert.Equal(t, 0, failed)
	assert.Empty(t, a.frames)
	assert.Equal(t, [][]byte{[]byte("x")}, b.frames)
	assert.Equal(t, [][]byte{[]byte("x")}, c.frames)

	s.Broadcast([]byte("y"), "")
	assert.Len(t, a.frames, 1)
}

func TestSet_BroadcastIsolatesFailures(t *testing.T) {
	s := NewSet(setupTestLogger())
	a := &fakeConn{id: "a"}
	broken := &fakeConn{id: "broken", sendErr: errors.New("buffer full")}
	c := &fakeConn{id: "c"}
	s.Add(a)
	s.Add(broken)
	s.Add(c)

	failed := s.Broadcast([]byte("x"), "")

	assert.Equal(t, 1, failed)
	assert.Len(t, a.frames, 1)
	assert.Len(t, c.frames, 1, "delivery continues after a failure")
	assert.Equal(t, wire.CloseInternalError, broken.closeCode)
	assert.Zero(t, a.closeCode)
}

func TestSet_Send(t *testing.T) {
	s := NewSet(setupTestLogger())
	a := &fakeConn{id: "a"}
	s.Add(a)

	require.NoError(t, s.Send("a", []byte("x")))
	assert.ErrorIs(t, s.Send("missing", []byte("x")), ErrSendFailed)

	a.sendErr = errors.New("closed")
	assert.ErrorIs(t, s.Send("a", []byte("x")), ErrSendFailed)
}

func TestSet_CloseAll(t *testing.T) {
	s := NewSet(setupTestLogger())
	a := &fakeConn{id: "a"}
	b := &fakeConn{id: "b"}
	s.Add(a)
	s.Add(b)

	s.CloseAll(wire.CloseGoingAway, "shutdown")

	assert.Equal(t, wire.CloseGoingAway, a.closeCode)
	assert.Equal(t, wire.CloseGoingAway, b.closeCode)
}

func TestMember_UpdateCursor(t *testing.T) {
	tests := []struct {
		name      string
		req       wire.CursorRequest
		wantName  string
		wantImage string
	}{
		{
			name:      "falls back to connection identity",
			req:       wire.CursorRequest{Position: 3},
			wantName:  "Ann",
			wantImage: "https://example.com/ann.png",
		},
		{
			name:      "client override wins",
			req:       wire.CursorRequest{Position: 3, UserName: "Bob", UserImage: "img"},
			wantName:  "Bob",
			wantImage: "img",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSet(setupTestLogger())
			m := s.Add(&fakeConn{id: "a", identity: models.Identity{
				UserName:  "Ann",
				UserImage: "https://example.com/ann.png",
			}})

			c := m.UpdateCursor(tt.req)

			assert.Equal(t, "a", c.ConnectionID)
			assert.Equal(t, 3, c.Position)
			assert.Equal(t, tt.wantName, c.UserName)
			assert.Equal(t, tt.wantImage, c.UserImage)
			assert.True(t, m.HasCursor)
			assert.Equal(t, 3, m.Position)
		})
	}
}

func TestCursor_Encode(t *testing.T) {
	c := Cursor{ConnectionID: "a", Position: 1, Selection: &api.Selection{From: 1, To: 2}, UserName: "Ann"}

	data, err := c.Encode()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"cursor","position":1,"selection":{"from":1,"to":2},"connectionId":"a","userName":"Ann"}`, string(data))
}

func awarenessUpdate(entries ...wire.AwarenessEntry) []byte {
	return wire.EncodeAwarenessUpdate(entries)
}

func TestAwareness_Apply(t *testing.T) {
	now := time.Unix(1000, 0)
	a := NewAwareness(DefaultAwarenessTimeout)

	_, ok := a.Encode()
	assert.False(t, ok, "no states yet")

	state := json.RawMessage(`{"user":{"name":"Ann"}}`)
	changed, err := a.Apply(awarenessUpdate(wire.AwarenessEntry{ClientID: 7, Clock: 1, State: state}), now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 1, a.Len())

	changed, err = a.Apply(awarenessUpdate(wire.AwarenessEntry{ClientID: 7, Clock: 1, State: state}), now)
	require.NoError(t, err)
	assert.False(t, changed, "replayed clock is not a change")

	encoded, ok := a.Encode()
	require.True(t, ok)
	entries, err := wire.DecodeAwarenessUpdate(encoded)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(7), entries[0].ClientID)
	assert.JSONEq(t, string(state), string(entries[0].State))

	changed, err = a.Apply(awarenessUpdate(wire.AwarenessEntry{ClientID: 7, Clock: 2}), now)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 0, a.Len())
}

func TestAwareness_ApplyMalformed(t *testing.T) {
	a := NewAwareness(DefaultAwarenessTimeout)
	_, err := a.Apply([]byte{0x80}, time.Now())
	assert.ErrorIs(t, err, wire.ErrMalformedFrame)
}

func TestAwareness_Expire(t *testing.T) {
	start := time.Unix(1000, 0)
	a := NewAwareness(DefaultAwarenessTimeout)
	_, err := a.Apply(awarenessUpdate(wire.AwarenessEntry{ClientID: 7, Clock: 4, State: json.RawMessage(`{}`)}), start)
	require.NoError(t, err)

	assert.Nil(t, a.Expire(start.Add(29*time.Second)))

	removal := a.Expire(start.Add(31 * time.Second))
	require.NotNil(t, removal)
	entries, err := wire.DecodeAwarenessUpdate(removal)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint64(7), entries[0].ClientID)
	assert.Equal(t, uint64(4), entries[0].Clock)
	assert.True(t, entries[0].Removed())
	assert.Equal(t, 0, a.Len())
}

func TestAwareness_ExpiryDisabled(t *testing.T) {
	start := time.Unix(1000, 0)
	a := NewAwareness(0)
	_, err := a.Apply(awarenessUpdate(wire.AwarenessEntry{ClientID: 1, Clock: 1, State: json.RawMessage(`{}`)}), start)
	require.NoError(t, err)

	assert.Nil(t, a.Expire(start.Add(time.Hour)))
	assert.Equal(t, 1, a.Len())
}
