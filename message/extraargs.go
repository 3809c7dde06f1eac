package message

import (
	"encoding/binary"
	"sync"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/pkg/errors"
)

// ExtraArgsTagLen is the length of the version tag prefixing every extra
// args blob.
const ExtraArgsTagLen = 4

// ExtraArgsTagV1 identifies the version 1 layout: 8-byte big endian gas
// limit followed by a 1-byte out-of-order execution flag.
var ExtraArgsTagV1 = [ExtraArgsTagLen]byte{0x97, 0xA6, 0x57, 0xC9}

const extraArgsV1PayloadLen = 9

// ExtraArgs is the extensible, versioned tail of the message envelope
// carrying execution hints for the destination chain.
type ExtraArgs struct {
	GasLimit                 uint64
	AllowOutOfOrderExecution bool
}

// Encode returns the version-tagged binary blob. The tag always comes
// first so decoders of future versions can dispatch on it.
func (e ExtraArgs) Encode() []byte {
	out := make([]byte, 0, ExtraArgsTagLen+extraArgsV1PayloadLen)
	out = append(out, ExtraArgsTagV1[:]...)
	var gas [8]byte
	binary.BigEndian.PutUint64(gas[:], e.GasLimit)
	out = append(out, gas[:]...)
	if e.AllowOutOfOrderExecution {
		out = append(out, 0x01)
	} else {
		out = append(out, 0x00)
	}
	return out
}

// ExtraArgsDecoder decodes a tag-stripped payload into ExtraArgs.
type ExtraArgsDecoder func(payload []byte) (ExtraArgs, error)

var (
	extraArgsMu       sync.RWMutex
	extraArgsDecoders = map[[ExtraArgsTagLen]byte]ExtraArgsDecoder{
		ExtraArgsTagV1: decodeExtraArgsV1,
	}
)

// RegisterExtraArgsDecoder registers a decoder for a new version tag.
// Registering an already known tag replaces the previous decoder.
func RegisterExtraArgsDecoder(tag [ExtraArgsTagLen]byte, dec ExtraArgsDecoder) {
	extraArgsMu.Lock()
	defer extraArgsMu.Unlock()
	extraArgsDecoders[tag] = dec
}

// DecodeExtraArgs decodes a version-tagged blob. Unknown tags fail with
// gerror.ErrUnknownExtraArgsTag instead of guessing a layout.
func DecodeExtraArgs(b []byte) (ExtraArgs, error) {
	if len(b) < ExtraArgsTagLen {
		return ExtraArgs{}, errors.Wrapf(gerror.ErrMalformedEnvelope, "extra args blob too short (%d bytes)", len(b))
	}
	var tag [ExtraArgsTagLen]byte
	copy(tag[:], b[:ExtraArgsTagLen])

	extraArgsMu.RLock()
	dec, ok := extraArgsDecoders[tag]
	extraArgsMu.RUnlock()
	if !ok {
		return ExtraArgs{}, errors.Wrapf(gerror.ErrUnknownExtraArgsTag, "tag 0x%x", tag)
	}
	return dec(b[ExtraArgsTagLen:])
}

func decodeExtraArgsV1(payload []byte) (ExtraArgs, error) {
	if len(payload) != extraArgsV1PayloadLen {
		return ExtraArgs{}, errors.Wrapf(gerror.ErrMalformedEnvelope, "extra args v1 payload must be %d bytes, got %d", extraArgsV1PayloadLen, len(payload))
	}
	return ExtraArgs{
		GasLimit:                 binary.BigEndian.Uint64(payload[:8]),
		AllowOutOfOrderExecution: payload[8] == 0x01,
	}, nil
}
