package web3

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// StakingContractABI covers the parts of the challenge staking contract the
// backend talks to. Users call stake from their wallet; the server only reads
// StakeReceived logs and sends completeChallenge with the admin key.
const StakingContractABI = `[
	{"type":"function","name":"stake","stateMutability":"nonpayable",
	 "inputs":[{"name":"challengeId","type":"uint256"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"completeChallenge","stateMutability":"nonpayable",
	 "inputs":[{"name":"user","type":"address"},{"name":"challengeId","type":"uint256"},{"name":"yieldBasisPoints","type":"uint256"}],"outputs":[]},
	{"type":"event","name":"StakeReceived","anonymous":false,
	 "inputs":[{"name":"staker","type":"address","indexed":true},{"name":"challengeId","type":"uint256","indexed":true},{"name":"amount","type":"uint256","indexed":false}]},
	{"type":"event","name":"ChallengeCompleted","anonymous":false,
	 "inputs":[{"name":"user","type":"address","indexed":true},{"name":"challengeId","type":"uint256","indexed":true},{"name":"reward","type":"uint256","indexed":false}]}
]`

// ERC20ABI is the single read the payout balance check needs.
const ERC20ABI = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const (
	MethodCompleteChallenge = "completeChallenge"
	EventStakeReceived      = "StakeReceived"
	EventChallengeCompleted = "ChallengeCompleted"
)

var (
	StakingABI = mustParseABI(StakingContractABI)
	TokenABI   = mustParseABI(ERC20ABI)
)

func mustParseABI(raw string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("web3: invalid ABI: %v", err))
	}
	return parsed
}

// StakeReceived is a decoded StakeReceived log.
type StakeReceived struct {
	Staker      common.Address
	ChallengeID *big.Int
	Amount      *big.Int
}

// ChallengeCompleted is a decoded ChallengeCompleted log.
type ChallengeCompleted struct {
	User        common.Address
	ChallengeID *big.Int
	Reward      *big.Int
}

// FindStakeReceived returns the first StakeReceived event emitted by contract
// in the receipt, or false when there is none.
func FindStakeReceived(receipt *types.Receipt, contract common.Address) (*StakeReceived, bool) {
	event := StakingABI.Events[EventStakeReceived]
	for _, lg := range receipt.Logs {
		addr, amount, challengeID, ok := decodeAccountEvent(lg, contract, event)
		if !ok {
			continue
		}
		return &StakeReceived{Staker: addr, ChallengeID: challengeID, Amount: amount}, true
	}
	return nil, false
}

// FindChallengeCompleted returns the first ChallengeCompleted event emitted by
// contract in the receipt, or false when there is none.
func FindChallengeCompleted(receipt *types.Receipt, contract common.Address) (*ChallengeCompleted, bool) {
	event := StakingABI.Events[EventChallengeCompleted]
	for _, lg := range receipt.Logs {
		addr, reward, challengeID, ok := decodeAccountEvent(lg, contract, event)
		if !ok {
			continue
		}
		return &ChallengeCompleted{User: addr, ChallengeID: challengeID, Reward: reward}, true
	}
	return nil, false
}

// Both events share the layout (address indexed, uint256 indexed, uint256).
func decodeAccountEvent(lg *types.Log, contract common.Address, event abi.Event) (common.Address, *big.Int, *big.Int, bool) {
	if lg == nil || lg.Address != contract || len(lg.Topics) < 3 || lg.Topics[0] != event.ID {
		return common.Address{}, nil, nil, false
	}

	values, err := event.Inputs.NonIndexed().Unpack(lg.Data)
	if err != nil || len(values) == 0 {
		return common.Address{}, nil, nil, false
	}
	amount, ok := values[0].(*big.Int)
	if !ok {
		return common.Address{}, nil, nil, false
	}

	addr := common.BytesToAddress(lg.Topics[1].Bytes())
	challengeID := new(big.Int).SetBytes(lg.Topics[2].Bytes())
	return addr, amount, challengeID, true
}
