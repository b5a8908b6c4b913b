package wire

import (
	"errors"
	"fmt"
)

const (
	// MaxPlainFrameSize потолок JSON frame plain-text протокола (64 KiB)
	MaxPlainFrameSize = 64 * 1024
	// MaxCRDTFrameSize потолок бинарного frame CRDT протокола (1 MiB)
	MaxCRDTFrameSize = 1024 * 1024
)

const (
	// CloseMessageTooBig close code for frames over the ceiling
	CloseMessageTooBig = 1009
	// CloseInternalError close code for transport failures
	CloseInternalError = 1011
	// CloseGoingAway close code used on server shutdown
	CloseGoingAway = 1001
)

// ErrFrameTooLarge indicates a frame above the protocol ceiling. The
// connection that sent it must be closed with CloseMessageTooBig.
var ErrFrameTooLarge = errors.New("frame too large")

// CheckFrameSize rejects frames strictly larger than limit. It must run
// before any decoding work.
func CheckFrameSize(size, limit int) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %d bytes, limit %d", ErrFrameTooLarge, size, limit)
	}
	return nil
}
