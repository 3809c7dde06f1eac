package message

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
)

// envelopeVersion is the first byte of every serialized envelope.
const envelopeVersion = 0x01

var stateCodes = map[ExecutionState]byte{
	StateUntouched:       0,
	StatePending:         1,
	StateSourceConfirmed: 2,
	StateInFlight:        3,
	StateSuccess:         4,
	StateFailed:          5,
}

var codeStates = map[byte]ExecutionState{
	0: StateUntouched,
	1: StatePending,
	2: StateSourceConfirmed,
	3: StateInFlight,
	4: StateSuccess,
	5: StateFailed,
}

// Serialize encodes the envelope into its canonical byte representation.
// The encoding is deterministic: same message, same bytes.
func Serialize(m *CCIPMessage) []byte {
	var buf encodeBuffer
	buf.writeRaw([]byte{envelopeVersion})
	buf.writeString(m.ID)
	buf.writeUint64(m.SourceChainSelector)
	buf.writeUint64(m.DestinationChainSelector)
	buf.writeString(m.Sender)
	buf.writeString(m.Receiver)
	buf.writeBytes(m.Payload)
	buf.writeUint32(uint32(len(m.TokenAmounts)))
	for _, ta := range m.TokenAmounts {
		buf.writeRaw(ta.TokenAddress.Bytes())
		buf.writeBytes(ta.Amount.Bytes())
		buf.writeRaw([]byte{ta.Decimals})
		buf.writeString(ta.Symbol)
	}
	buf.writeBytes(m.ExtraArgs.Encode())
	buf.writeRaw([]byte{stateCodes[m.ExecutionState]})
	buf.writeUint64(uint64(m.SentAt.UnixNano()))
	return buf.bytes()
}

// Deserialize decodes wire bytes back into an envelope. Any truncation,
// trailing garbage or unknown tag fails the whole decode; nothing is
// partially accepted.
func Deserialize(b []byte) (*CCIPMessage, error) {
	r := decodeReader{data: b}
	version, err := r.readByte()
	if err != nil {
		return nil, err
	}
	if version != envelopeVersion {
		return nil, errors.Wrapf(gerror.ErrMalformedEnvelope, "unknown envelope version 0x%x", version)
	}

	var m CCIPMessage
	if m.ID, err = r.readString(); err != nil {
		return nil, err
	}
	if m.SourceChainSelector, err = r.readUint64(); err != nil {
		return nil, err
	}
	if m.DestinationChainSelector, err = r.readUint64(); err != nil {
		return nil, err
	}
	if m.Sender, err = r.readString(); err != nil {
		return nil, err
	}
	if m.Receiver, err = r.readString(); err != nil {
		return nil, err
	}
	if m.Payload, err = r.readBytes(); err != nil {
		return nil, err
	}

	count, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < count; i++ {
		var ta TokenAmount
		addr, err := r.readRaw(common.AddressLength)
		if err != nil {
			return nil, err
		}
		ta.TokenAddress = common.BytesToAddress(addr)
		amount, err := r.readBytes()
		if err != nil {
			return nil, err
		}
		ta.Amount = new(big.Int).SetBytes(amount)
		if ta.Decimals, err = r.readByte(); err != nil {
			return nil, err
		}
		if ta.Symbol, err = r.readString(); err != nil {
			return nil, err
		}
		m.TokenAmounts = append(m.TokenAmounts, ta)
	}

	extra, err := r.readBytes()
	if err != nil {
		return nil, err
	}
	if m.ExtraArgs, err = DecodeExtraArgs(extra); err != nil {
		return nil, err
	}

	stateCode, err := r.readByte()
	if err != nil {
		return nil, err
	}
	state, ok := codeStates[stateCode]
	if !ok {
		return nil, errors.Wrapf(gerror.ErrMalformedEnvelope, "unknown execution state code %d", stateCode)
	}
	m.ExecutionState = state

	sentAt, err := r.readUint64()
	if err != nil {
		return nil, err
	}
	m.SentAt = time.Unix(0, int64(sentAt)).UTC()

	if r.remaining() != 0 {
		return nil, errors.Wrapf(gerror.ErrMalformedEnvelope, "%d trailing bytes after envelope", r.remaining())
	}
	m.Type = deriveType(m.Payload, m.TokenAmounts)
	return &m, nil
}

// encodeBuffer builds length-prefixed big endian frames.
type encodeBuffer struct {
	data []byte
}

func (b *encodeBuffer) bytes() []byte { return b.data }

func (b *encodeBuffer) writeRaw(p []byte) {
	b.data = append(b.data, p...)
}

func (b *encodeBuffer) writeUint16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	b.writeRaw(tmp[:])
}

func (b *encodeBuffer) writeUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.writeRaw(tmp[:])
}

func (b *encodeBuffer) writeUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	b.writeRaw(tmp[:])
}

func (b *encodeBuffer) writeBytes(p []byte) {
	b.writeUint32(uint32(len(p)))
	b.writeRaw(p)
}

func (b *encodeBuffer) writeString(s string) {
	b.writeBytes([]byte(s))
}

type decodeReader struct {
	data []byte
	pos  int
}

func (r *decodeReader) remaining() int { return len(r.data) - r.pos }

func (r *decodeReader) readRaw(n int) ([]byte, error) {
	if r.remaining() < n {
		return nil, errors.Wrapf(gerror.ErrMalformedEnvelope, "need %d bytes at offset %d, have %d", n, r.pos, r.remaining())
	}
	out := r.data[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *decodeReader) readByte() (byte, error) {
	b, err := r.readRaw(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *decodeReader) readUint32() (uint32, error) {
	b, err := r.readRaw(4) //nolint:gomnd
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *decodeReader) readUint64() (uint64, error) {
	b, err := r.readRaw(8) //nolint:gomnd
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (r *decodeReader) readBytes() ([]byte, error) {
	n, err := r.readUint32()
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	raw, err := r.readRaw(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, raw)
	return out, nil
}

func (r *decodeReader) readString() (string, error) {
	b, err := r.readBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
