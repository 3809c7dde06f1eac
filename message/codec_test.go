package message

import (
	"math/big"
	"testing"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRoundTrip(t *testing.T) {
	p := validParams()
	p.TokenAmounts = []TokenAmount{
		{
			TokenAddress: common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
			Amount:       big.NewInt(500000000),
			Decimals:     6,
			Symbol:       "USDT",
		},
	}
	p.ExtraArgs = &ExtraArgs{GasLimit: 350000, AllowOutOfOrderExecution: true}
	m, err := Build(p)
	require.NoError(t, err)

	decoded, err := Deserialize(Serialize(m))
	require.NoError(t, err)

	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, m.SourceChainSelector, decoded.SourceChainSelector)
	assert.Equal(t, m.DestinationChainSelector, decoded.DestinationChainSelector)
	assert.Equal(t, m.Sender, decoded.Sender)
	assert.Equal(t, m.Receiver, decoded.Receiver)
	assert.Equal(t, m.Payload, decoded.Payload)
	assert.Equal(t, m.TokenAmounts, decoded.TokenAmounts)
	assert.Equal(t, m.ExtraArgs, decoded.ExtraArgs)
	assert.Equal(t, m.Type, decoded.Type)
	assert.Equal(t, m.ExecutionState, decoded.ExecutionState)
	assert.Equal(t, m.ContentHash(), decoded.ContentHash())
}

func TestSerializeRoundTripLargePayload(t *testing.T) {
	p := validParams()
	p.Payload = make([]byte, 70_000)
	for i := range p.Payload {
		p.Payload[i] = byte(i)
	}
	m, err := Build(p)
	require.NoError(t, err)

	decoded, err := Deserialize(Serialize(m))
	require.NoError(t, err)
	assert.Equal(t, m.Payload, decoded.Payload)
	assert.Equal(t, m.ContentHash(), decoded.ContentHash())
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	t.Run("empty input", func(t *testing.T) {
		_, err := Deserialize(nil)
		require.ErrorIs(t, err, gerror.ErrMalformedEnvelope)
	})

	t.Run("unknown envelope version", func(t *testing.T) {
		_, err := Deserialize([]byte{0x7f, 0x00})
		require.ErrorIs(t, err, gerror.ErrMalformedEnvelope)
	})

	t.Run("truncated envelope", func(t *testing.T) {
		m, err := Build(validParams())
		require.NoError(t, err)
		raw := Serialize(m)
		_, err = Deserialize(raw[:len(raw)-5])
		require.ErrorIs(t, err, gerror.ErrMalformedEnvelope)
	})

	t.Run("trailing bytes", func(t *testing.T) {
		m, err := Build(validParams())
		require.NoError(t, err)
		raw := append(Serialize(m), 0xde, 0xad)
		_, err = Deserialize(raw)
		require.ErrorIs(t, err, gerror.ErrMalformedEnvelope)
	})
}

func TestExtraArgsEncode(t *testing.T) {
	e := ExtraArgs{GasLimit: 0x0102030405060708, AllowOutOfOrderExecution: true}
	raw := e.Encode()

	require.Len(t, raw, ExtraArgsTagLen+9)
	assert.Equal(t, ExtraArgsTagV1[:], raw[:ExtraArgsTagLen], "version tag must lead the blob")
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}, raw[4:12])
	assert.Equal(t, byte(0x01), raw[12])

	decoded, err := DecodeExtraArgs(raw)
	require.NoError(t, err)
	assert.Equal(t, e, decoded)
}

func TestExtraArgsUnknownTag(t *testing.T) {
	raw := ExtraArgs{GasLimit: 21000}.Encode()
	raw[0] ^= 0xff

	_, err := DecodeExtraArgs(raw)
	require.ErrorIs(t, err, gerror.ErrUnknownExtraArgsTag)
}

func TestExtraArgsDecoderRegistry(t *testing.T) {
	tag := [ExtraArgsTagLen]byte{0xde, 0xad, 0xbe, 0xef}
	RegisterExtraArgsDecoder(tag, func(payload []byte) (ExtraArgs, error) {
		return ExtraArgs{GasLimit: uint64(len(payload))}, nil
	})

	decoded, err := DecodeExtraArgs([]byte{0xde, 0xad, 0xbe, 0xef, 0x00, 0x00, 0x00})
	require.NoError(t, err)
	assert.Equal(t, uint64(3), decoded.GasLimit)
}

func TestExtraArgsTooShort(t *testing.T) {
	_, err := DecodeExtraArgs([]byte{0x97, 0xa6})
	require.ErrorIs(t, err, gerror.ErrMalformedEnvelope)
}
