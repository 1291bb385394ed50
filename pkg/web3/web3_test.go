package web3

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testContract = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testStaker   = common.HexToAddress("0x2222222222222222222222222222222222222222")
)

func stakeLog(t *testing.T, contract, staker common.Address, challengeID, amount int64) *types.Log {
	t.Helper()
	event := StakingABI.Events[EventStakeReceived]
	data, err := event.Inputs.NonIndexed().Pack(big.NewInt(amount))
	require.NoError(t, err)
	return &types.Log{
		Address: contract,
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(staker.Bytes()),
			common.BigToHash(big.NewInt(challengeID)),
		},
		Data: data,
	}
}

func TestToBaseUnits(t *testing.T) {
	assert.Equal(t, "100000000", ToBaseUnits(decimal.RequireFromString("100")).String())
	assert.Equal(t, "1500000", ToBaseUnits(decimal.RequireFromString("1.5")).String())
	assert.Equal(t, "1", ToBaseUnits(decimal.RequireFromString("0.0000019")).String())
	assert.True(t, FromBaseUnits(big.NewInt(2500000)).Equal(decimal.RequireFromString("2.5")))
}

func TestBasisPoints(t *testing.T) {
	assert.Equal(t, int64(1250), BasisPoints(12.5).Int64())
	assert.Equal(t, int64(0), BasisPoints(0).Int64())
	assert.Equal(t, int64(10000), BasisPoints(100).Int64())
}

func TestBumpTip(t *testing.T) {
	tip := big.NewInt(1000)
	assert.Equal(t, int64(1000), BumpTip(tip, 20, 1).Int64())
	assert.Equal(t, int64(1200), BumpTip(tip, 20, 2).Int64())
	assert.Equal(t, int64(1400), BumpTip(tip, 20, 3).Int64())
	assert.Equal(t, int64(1000), tip.Int64(), "input must not be mutated")
}

func TestFindStakeReceived(t *testing.T) {
	receipt := &types.Receipt{Logs: []*types.Log{
		{Address: testContract, Topics: []common.Hash{common.HexToHash("0xdead")}},
		stakeLog(t, common.HexToAddress("0x9999999999999999999999999999999999999999"), testStaker, 7, 1),
		stakeLog(t, testContract, testStaker, 7, 50_000_000),
	}}

	ev, ok := FindStakeReceived(receipt, testContract)
	require.True(t, ok)
	assert.Equal(t, testStaker, ev.Staker)
	assert.Equal(t, int64(7), ev.ChallengeID.Int64())
	assert.Equal(t, int64(50_000_000), ev.Amount.Int64())

	_, ok = FindChallengeCompleted(receipt, testContract)
	assert.False(t, ok)
}

func TestAddressHelpers(t *testing.T) {
	assert.True(t, SameAddress("0xAbC0000000000000000000000000000000000001", "0xabc0000000000000000000000000000000000001"))
	assert.True(t, IsAddress(testStaker.Hex()))
	assert.False(t, IsAddress("2222222222222222222222222222222222222222"))
	assert.True(t, IsTxHash("0x"+"ab"+"00000000000000000000000000000000000000000000000000000000000000"))
	assert.False(t, IsTxHash("0x1234"))
}
