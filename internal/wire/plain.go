package wire

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/iudanet/gophcollab/pkg/api"
)

var (
	// ErrMalformedFrame indicates a frame that could not be decoded. The frame
	// is dropped and the connection stays open.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrUnknownMessageType indicates a well-formed frame with an unrecognized tag
	ErrUnknownMessageType = errors.New("unknown message type")
)

// ClientMessage is one decoded client→server plain-text message.
// Implementations: InitRequest, ChangeRequest, CursorRequest.
type ClientMessage interface {
	clientMessage()
}

// InitRequest asks for the current document; Content seeds an empty document.
type InitRequest struct {
	Content    string
	HasContent bool
}

// ChangeRequest carries one range replacement.
type ChangeRequest struct {
	Change api.Change
}

// CursorRequest carries the sender's cursor. UserName/UserImage are optional
// overrides of the connection's identity.
type CursorRequest struct {
	Selection *api.Selection
	UserName  string
	UserImage string
	Position  int
}

func (InitRequest) clientMessage()   {}
func (ChangeRequest) clientMessage() {}
func (CursorRequest) clientMessage() {}

// DecodeClientMessage decodes a plain-text frame. The size check happens
// before parsing.
func DecodeClientMessage(frame []byte, limit int) (ClientMessage, error) {
	if err := CheckFrameSize(len(frame), limit); err != nil {
		return nil, err
	}

	var msg api.Message
	if err := json.Unmarshal(frame, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
	}

	switch msg.Type {
	case api.TypeInit:
		req := InitRequest{}
		if msg.Content != nil {
			req.Content = *msg.Content
			req.HasContent = true
		}
		return req, nil

	case api.TypeChange:
		if msg.Changes == nil {
			return nil, fmt.Errorf("%w: change without changes", ErrMalformedFrame)
		}
		return ChangeRequest{Change: *msg.Changes}, nil

	case api.TypeCursor:
		if msg.Position == nil {
			return nil, fmt.Errorf("%w: cursor without position", ErrMalformedFrame)
		}
		return CursorRequest{
			Position:  *msg.Position,
			Selection: msg.Selection,
			UserName:  msg.UserName,
			UserImage: msg.UserImage,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessageType, msg.Type)
	}
}

// EncodeInit builds the server's init reply. Content is always present.
func EncodeInit(content, connectionID string) ([]byte, error) {
	return encode(api.Message{
		Type:         api.TypeInit,
		Content:      &content,
		ConnectionID: connectionID,
	})
}

// EncodeChange builds a change broadcast.
func EncodeChange(change api.Change, connectionID string) ([]byte, error) {
	return encode(api.Message{
		Type:         api.TypeChange,
		Changes:      &change,
		ConnectionID: connectionID,
	})
}

// EncodeCursor builds a cursor broadcast.
func EncodeCursor(position int, selection *api.Selection, connectionID, userName, userImage string) ([]byte, error) {
	return encode(api.Message{
		Type:         api.TypeCursor,
		Position:     &position,
		Selection:    selection,
		ConnectionID: connectionID,
		UserName:     userName,
		UserImage:    userImage,
	})
}

// EncodeCursorLeave builds the presence-left broadcast.
func EncodeCursorLeave(connectionID string) ([]byte, error) {
	return encode(api.Message{
		Type:         api.TypeCursorLeave,
		ConnectionID: connectionID,
	})
}

func encode(msg api.Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s message: %w", msg.Type, err)
	}
	return data, nil
}
