package wire

import (
	"encoding/json"
	"fmt"
)

// FrameKind is the leading varuint tag of a CRDT-mode binary frame.
type FrameKind uint64

const (
	// FrameSync carries a sync-protocol message
	FrameSync FrameKind = 0
	// FrameAwareness carries an encoded presence delta
	FrameAwareness FrameKind = 1
)

// SyncMessageType is the sub-type of a sync frame.
type SyncMessageType uint64

const (
	// SyncStep1 carries the sender's state vector and asks for what it lacks
	SyncStep1 SyncMessageType = 0
	// SyncStep2 answers SyncStep1 with the missing update
	SyncStep2 SyncMessageType = 1
	// SyncUpdate carries an incremental update
	SyncUpdate SyncMessageType = 2
)

func (t SyncMessageType) String() string {
	switch t {
	case SyncStep1:
		return "sync-step-1"
	case SyncStep2:
		return "sync-step-2"
	case SyncUpdate:
		return "update"
	default:
		return fmt.Sprintf("sync-type-%d", uint64(t))
	}
}

// Frame is a decoded CRDT-mode frame: its tag and the undecoded rest.
type Frame struct {
	Body []byte
	Kind FrameKind
}

// SyncMessage is a decoded sync frame body.
type SyncMessage struct {
	Payload []byte // state vector for SyncStep1, update otherwise
	Type    SyncMessageType
}

// DecodeFrame reads the tag of a binary frame. The size check happens first.
func DecodeFrame(frame []byte, limit int) (Frame, error) {
	if err := CheckFrameSize(len(frame), limit); err != nil {
		return Frame{}, err
	}

	d := NewDecoder(frame)
	tag, err := d.ReadVarUint()
	if err != nil {
		return Frame{}, fmt.Errorf("%w: failed to read frame tag: %v", ErrMalformedFrame, err)
	}

	kind := FrameKind(tag)
	switch kind {
	case FrameSync, FrameAwareness:
		return Frame{Kind: kind, Body: d.Remaining()}, nil
	default:
		return Frame{}, fmt.Errorf("%w: frame tag %d", ErrUnknownMessageType, tag)
	}
}

// DecodeSyncMessage decodes the body of a FrameSync frame.
func DecodeSyncMessage(body []byte) (SyncMessage, error) {
	d := NewDecoder(body)
	t, err := d.ReadVarUint()
	if err != nil {
		return SyncMessage{}, fmt.Errorf("%w: failed to read sync type: %v", ErrMalformedFrame, err)
	}

	msgType := SyncMessageType(t)
	switch msgType {
	case SyncStep1, SyncStep2, SyncUpdate:
	default:
		return SyncMessage{}, fmt.Errorf("%w: %s", ErrUnknownMessageType, msgType)
	}

	payload, err := d.ReadVarBytes()
	if err != nil {
		return SyncMessage{}, fmt.Errorf("%w: failed to read %s payload: %v", ErrMalformedFrame, msgType, err)
	}

	return SyncMessage{Type: msgType, Payload: payload}, nil
}

// DecodeAwarenessFrame extracts the encoded awareness update from the body
// of a FrameAwareness frame.
func DecodeAwarenessFrame(body []byte) ([]byte, error) {
	update, err := NewDecoder(body).ReadVarBytes()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read awareness update: %v", ErrMalformedFrame, err)
	}
	return update, nil
}

// EncodeSyncStep1 builds a frame asking the peer for everything missing from stateVector.
func EncodeSyncStep1(stateVector []byte) []byte {
	return encodeSync(SyncStep1, stateVector)
}

// EncodeSyncStep2 builds the reply to a SyncStep1.
func EncodeSyncStep2(update []byte) []byte {
	return encodeSync(SyncStep2, update)
}

// EncodeSyncUpdate builds an incremental update frame.
func EncodeSyncUpdate(update []byte) []byte {
	return encodeSync(SyncUpdate, update)
}

func encodeSync(t SyncMessageType, payload []byte) []byte {
	e := NewEncoder()
	e.WriteVarUint(uint64(FrameSync))
	e.WriteVarUint(uint64(t))
	e.WriteVarBytes(payload)
	return e.Bytes()
}

// EncodeAwarenessFrame wraps an encoded awareness update into a frame.
func EncodeAwarenessFrame(update []byte) []byte {
	e := NewEncoder()
	e.WriteVarUint(uint64(FrameAwareness))
	e.WriteVarBytes(update)
	return e.Bytes()
}

// AwarenessEntry is one client's presence state inside an awareness update.
// A nil (or JSON null) State means the client went away.
type AwarenessEntry struct {
	State    json.RawMessage
	ClientID uint64
	Clock    uint64
}

// Removed reports whether the entry announces the client's departure.
func (e AwarenessEntry) Removed() bool {
	return len(e.State) == 0 || string(e.State) == "null"
}

// EncodeAwarenessUpdate encodes entries in the y-protocols awareness format.
func EncodeAwarenessUpdate(entries []AwarenessEntry) []byte {
	e := NewEncoder()
	e.WriteVarUint(uint64(len(entries)))
	for _, entry := range entries {
		e.WriteVarUint(entry.ClientID)
		e.WriteVarUint(entry.Clock)
		if entry.Removed() {
			e.WriteVarString("null")
		} else {
			e.WriteVarString(string(entry.State))
		}
	}
	return e.Bytes()
}

// DecodeAwarenessUpdate decodes an awareness update. States must be valid JSON.
func DecodeAwarenessUpdate(update []byte) ([]AwarenessEntry, error) {
	d := NewDecoder(update)
	n, err := d.ReadVarUint()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read awareness length: %v", ErrMalformedFrame, err)
	}
	// каждая запись занимает минимум 3 байта
	if n > uint64(len(d.Remaining()))/3+1 {
		return nil, fmt.Errorf("%w: awareness length %d exceeds frame", ErrMalformedFrame, n)
	}

	entries := make([]AwarenessEntry, 0, n)
	for i := uint64(0); i < n; i++ {
		clientID, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read awareness client: %v", ErrMalformedFrame, err)
		}
		clock, err := d.ReadVarUint()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read awareness clock: %v", ErrMalformedFrame, err)
		}
		state, err := d.ReadVarBytes()
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read awareness state: %v", ErrMalformedFrame, err)
		}
		if !json.Valid(state) {
			return nil, fmt.Errorf("%w: awareness state of client %d is not JSON", ErrMalformedFrame, clientID)
		}

		entry := AwarenessEntry{ClientID: clientID, Clock: clock}
		if string(state) != "null" {
			entry.State = append(json.RawMessage(nil), state...)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
