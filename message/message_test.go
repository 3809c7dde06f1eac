package message

import (
	"math/big"
	"testing"

	"github.com/crosslane/bridge-service/gerror"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectorEthereum = uint64(5009297550715157269)
	selectorPolygon  = uint64(4051577828743386545)
)

func validParams() BuildParams {
	return BuildParams{
		SourceChainSelector:      selectorEthereum,
		DestinationChainSelector: selectorPolygon,
		Sender:                   "0x90F79bf6EB2c4f870365E785982E1f101E93b906",
		Receiver:                 "0x15d34AAf54267DB7D7c367839AAf71A00a2C6A65",
		Payload:                  []byte("hello"),
	}
}

func TestBuildValidation(t *testing.T) {
	t.Run("same chain rejected", func(t *testing.T) {
		p := validParams()
		p.DestinationChainSelector = p.SourceChainSelector
		_, err := Build(p)
		require.ErrorIs(t, err, gerror.ErrSameChainLane)
	})

	t.Run("empty message rejected", func(t *testing.T) {
		p := validParams()
		p.Payload = nil
		p.TokenAmounts = nil
		_, err := Build(p)
		require.ErrorIs(t, err, gerror.ErrEmptyMessage)
	})

	t.Run("zero token amount rejected", func(t *testing.T) {
		p := validParams()
		p.TokenAmounts = []TokenAmount{{Amount: big.NewInt(0), Symbol: "USDT"}}
		_, err := Build(p)
		require.ErrorIs(t, err, gerror.ErrNonPositiveAmount)
	})

	t.Run("negative token amount rejected", func(t *testing.T) {
		p := validParams()
		p.TokenAmounts = []TokenAmount{{Amount: big.NewInt(-3), Symbol: "USDT"}}
		_, err := Build(p)
		require.ErrorIs(t, err, gerror.ErrNonPositiveAmount)
	})

	t.Run("valid message starts untouched", func(t *testing.T) {
		m, err := Build(validParams())
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, StateUntouched, m.ExecutionState)
		assert.Equal(t, uint64(DefaultGasLimit), m.ExtraArgs.GasLimit)
	})
}

func TestBuildDerivesType(t *testing.T) {
	tokens := []TokenAmount{{Amount: big.NewInt(100), Decimals: 6, Symbol: "USDT"}}

	p := validParams()
	m, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, TypeArbitraryMessage, m.Type)

	p = validParams()
	p.Payload = nil
	p.TokenAmounts = tokens
	m, err = Build(p)
	require.NoError(t, err)
	assert.Equal(t, TypeTokenTransfer, m.Type)

	p = validParams()
	p.TokenAmounts = tokens
	m, err = Build(p)
	require.NoError(t, err)
	assert.Equal(t, TypeProgrammableTokenTransfer, m.Type)
}

func TestIdentityEquality(t *testing.T) {
	m1, err := Build(validParams())
	require.NoError(t, err)
	m2, err := Build(validParams())
	require.NoError(t, err)

	assert.NotEqual(t, m1.ID, m2.ID, "identical parts must still produce distinct identities")
	assert.False(t, m1.Equal(m2))
	assert.True(t, m1.Equal(m1))
}

func TestExecutionStateMachine(t *testing.T) {
	m, err := Build(validParams())
	require.NoError(t, err)

	t.Run("cannot skip to success", func(t *testing.T) {
		err := m.SetExecutionState(StateSuccess)
		require.ErrorIs(t, err, gerror.ErrInvalidTransition)
	})

	t.Run("forward path", func(t *testing.T) {
		require.NoError(t, m.SetExecutionState(StatePending))
		require.NoError(t, m.SetExecutionState(StateSourceConfirmed))
		require.NoError(t, m.SetExecutionState(StateInFlight))
		require.NoError(t, m.SetExecutionState(StateSuccess))
	})

	t.Run("terminal state is sticky", func(t *testing.T) {
		err := m.SetExecutionState(StateFailed)
		require.ErrorIs(t, err, gerror.ErrInvalidTransition)
	})

	t.Run("no backward moves", func(t *testing.T) {
		m2, err := Build(validParams())
		require.NoError(t, err)
		require.NoError(t, m2.SetExecutionState(StatePending))
		require.ErrorIs(t, m2.SetExecutionState(StateUntouched), gerror.ErrInvalidTransition)
	})

	t.Run("failure reachable before quorum", func(t *testing.T) {
		m3, err := Build(validParams())
		require.NoError(t, err)
		require.NoError(t, m3.SetExecutionState(StatePending))
		require.NoError(t, m3.SetExecutionState(StateFailed))
	})
}

func TestTokenAmountFormatting(t *testing.T) {
	raw, ok := new(big.Int).SetString("1500000000000000000", 10)
	require.True(t, ok)
	ta := TokenAmount{Amount: raw, Decimals: 18, Symbol: "WETH"}

	assert.Equal(t, "1.5", ta.Formatted().FloatString(1))
}

func TestTotalUSDValue(t *testing.T) {
	tokenA := common.HexToAddress("0x0000000000000000000000000000000000000a0a")
	tokenB := common.HexToAddress("0x0000000000000000000000000000000000000b0b")

	oneA, _ := new(big.Int).SetString("1000000000000000000", 10) // 1 tokenA, 18 decimals
	twoB := big.NewInt(2000000)                                  // 2 tokenB, 6 decimals

	amounts := []TokenAmount{
		{TokenAddress: tokenA, Amount: oneA, Decimals: 18, Symbol: "TKA"},
		{TokenAddress: tokenB, Amount: twoB, Decimals: 6, Symbol: "TKB"},
	}
	prices := map[common.Address]*big.Rat{
		tokenA: big.NewRat(100, 1),
		tokenB: big.NewRat(50, 1),
	}

	total := TotalUSDValue(amounts, func(addr common.Address) *big.Rat { return prices[addr] })
	assert.Equal(t, "200", total.FloatString(0))
}

func TestContentHashIgnoresExecutionState(t *testing.T) {
	m, err := Build(validParams())
	require.NoError(t, err)

	before := m.ContentHash()
	require.NoError(t, m.SetExecutionState(StatePending))
	assert.Equal(t, before, m.ContentHash(), "content hash must be stable across lifecycle updates")

	other, err := Build(validParams())
	require.NoError(t, err)
	assert.NotEqual(t, before, other.ContentHash(), "distinct identities hash differently")
}
