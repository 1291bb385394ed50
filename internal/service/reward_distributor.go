package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"lingo_stake_backend/pkg/monitoring"
	"lingo_stake_backend/pkg/retry"
	"lingo_stake_backend/pkg/tracing"
	"lingo_stake_backend/pkg/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// Payout describes one settled enrollment awaiting its reward.
type Payout struct {
	UserChallengeID uint
	ChallengeID     uint
	Wallet          string
	Stake           decimal.Decimal
	YieldPercentage float64
	// Contract overrides the default staking contract.
	Contract string
	// PriorTxHash is a payout sent earlier, if any.
	PriorTxHash string
}

// Settlement is the outcome of a successful distribution.
type Settlement struct {
	TxHash         string          `json:"txHash"`
	Reward         decimal.Decimal `json:"reward"`
	Attempts       int             `json:"attempts"`
	AlreadySettled bool            `json:"alreadySettled"`
}

// RewardDistributor pays stake plus yield back through the staking contract.
type RewardDistributor struct {
	Ledger          web3.Ledger
	DefaultContract common.Address
	TokenContract   common.Address
	Retry           retry.Config
	Sleep           retry.Sleeper
	// ConfirmTimeout bounds the wait for one attempt's receipt; zero means
	// the caller's context is the only limit.
	ConfirmTimeout time.Duration
}

func NewRewardDistributor(ledger web3.Ledger, stakingContract, tokenContract string, sleep retry.Sleeper) *RewardDistributor {
	return &RewardDistributor{
		Ledger:          ledger,
		DefaultContract: common.HexToAddress(stakingContract),
		TokenContract:   common.HexToAddress(tokenContract),
		Retry:           retry.LedgerConfig(),
		Sleep:           sleep,
		ConfirmTimeout:  15 * time.Second,
	}
}

// RewardFor is stake + stake * yield / 100.
func RewardFor(stake decimal.Decimal, yieldPercentage float64) decimal.Decimal {
	yield := stake.Mul(decimal.NewFromFloat(yieldPercentage)).Div(decimal.NewFromInt(100))
	return stake.Add(yield)
}

// Distribute settles p at most once. If PriorTxHash already mined
// successfully nothing new is submitted. The caller's row is never touched
// here; persisting the settlement is the caller's job.
func (d *RewardDistributor) Distribute(ctx context.Context, p Payout) (s *Settlement, err error) {
	ctx, span := tracing.StartSpan(ctx, "reward.distribute",
		attribute.Int64("user_challenge_id", int64(p.UserChallengeID)),
		attribute.String("wallet", p.Wallet),
	)
	defer func() {
		result := "settled"
		switch {
		case err != nil:
			result = "failed"
		case s.AlreadySettled:
			result = "already_settled"
		}
		monitoring.RewardPayouts.WithLabelValues(result).Inc()
		tracing.EndSpan(span, err)
	}()

	if d.Ledger == nil {
		return nil, util.ErrLedgerDisabled
	}
	if !web3.IsAddress(p.Wallet) {
		return nil, fmt.Errorf("%w: enrollment has no valid wallet address", util.ErrValidationFailed)
	}

	contract := d.DefaultContract
	if p.Contract != "" {
		contract = common.HexToAddress(p.Contract)
	}
	reward := RewardFor(p.Stake, p.YieldPercentage)

	if p.PriorTxHash != "" {
		settled, err := d.priorSettlement(ctx, p.PriorTxHash, contract, reward)
		if err != nil {
			return nil, err
		}
		if settled != nil {
			return settled, nil
		}
	}

	required := web3.ToBaseUnits(reward)
	balance, err := d.Ledger.TokenBalance(ctx, d.TokenContract, contract)
	if err != nil {
		return nil, fmt.Errorf("%w: read contract balance: %v", util.ErrUpstreamProvider, err)
	}
	if balance.Cmp(required) < 0 {
		logger.Log.Error("Staking contract underfunded",
			zap.String("contract", contract.Hex()),
			zap.String("balance", balance.String()),
			zap.String("required", required.String()),
		)
		return nil, fmt.Errorf("%w: contract holds %s, payout needs %s", util.ErrInsufficientFunds, balance.String(), required.String())
	}

	args := []interface{}{
		common.HexToAddress(p.Wallet),
		new(big.Int).SetUint64(uint64(p.ChallengeID)),
		web3.BasisPoints(p.YieldPercentage),
	}

	receipt, attempts, err := retry.Fold(ctx, d.Retry, d.Sleep, func(ctx context.Context, n int) (*types.Receipt, error) {
		return d.attempt(ctx, contract, args, n)
	})
	if errors.Is(err, web3.ErrNoSigner) {
		return nil, fmt.Errorf("%w: %v", util.ErrLedgerDisabled, err)
	}
	if err != nil {
		logger.Log.Error("Reward payout failed",
			zap.Uint("userChallengeId", p.UserChallengeID),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%w: %v", util.ErrLedgerSubmissionFailed, err)
	}

	if ev, ok := web3.FindChallengeCompleted(receipt, contract); ok && ev.Reward.Sign() > 0 {
		reward = web3.FromBaseUnits(ev.Reward)
	}

	monitoring.PayoutAttempts.Observe(float64(attempts))
	logger.Log.Info("Reward paid",
		zap.Uint("userChallengeId", p.UserChallengeID),
		zap.String("tx", receipt.TxHash.Hex()),
		zap.String("reward", reward.String()),
		zap.Int("attempts", attempts),
	)
	return &Settlement{TxHash: receipt.TxHash.Hex(), Reward: reward, Attempts: attempts}, nil
}

// attempt submits once and waits for a receipt carrying ChallengeCompleted.
func (d *RewardDistributor) attempt(ctx context.Context, contract common.Address, args []interface{}, n int) (*types.Receipt, error) {
	hash, err := d.Ledger.Submit(ctx, web3.ContractCall{
		Contract: contract,
		Method:   web3.MethodCompleteChallenge,
		Args:     args,
		Attempt:  n,
	})
	if errors.Is(err, web3.ErrNoSigner) {
		return nil, retry.Permanent(err)
	}
	if err != nil {
		logger.Log.Warn("Payout submission failed", zap.Int("attempt", n), zap.Error(err))
		return nil, fmt.Errorf("attempt %d submit: %w", n, err)
	}

	waitCtx := ctx
	if d.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, d.ConfirmTimeout)
		defer cancel()
	}

	receipt, err := d.Ledger.WaitMined(waitCtx, hash)
	if err != nil {
		return nil, fmt.Errorf("attempt %d tx %s not confirmed: %w", n, hash.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return nil, fmt.Errorf("attempt %d tx %s reverted", n, hash.Hex())
	}
	if _, ok := web3.FindChallengeCompleted(receipt, contract); !ok {
		return nil, fmt.Errorf("attempt %d tx %s has no ChallengeCompleted event", n, hash.Hex())
	}
	return receipt, nil
}

// priorSettlement returns the earlier payout when it mined successfully, nil
// when it is known not to have settled, and an error when that cannot be told.
func (d *RewardDistributor) priorSettlement(ctx context.Context, txHash string, contract common.Address, reward decimal.Decimal) (*Settlement, error) {
	receipt, err := d.Ledger.Receipt(ctx, common.HexToHash(txHash))
	if err != nil && !errors.Is(err, web3.ErrReceiptNotFound) {
		return nil, fmt.Errorf("%w: read prior payout %s: %v", util.ErrUpstreamProvider, txHash, err)
	}
	if err != nil || receipt == nil || receipt.Status != types.ReceiptStatusSuccessful {
		logger.Log.Warn("Prior payout not confirmed, paying again",
			zap.String("tx", txHash),
			zap.String("status", receiptStatus(receipt)),
			zap.Error(err),
		)
		return nil, nil
	}
	if ev, ok := web3.FindChallengeCompleted(receipt, contract); ok && ev.Reward.Sign() > 0 {
		reward = web3.FromBaseUnits(ev.Reward)
	}
	return &Settlement{TxHash: txHash, Reward: reward, AlreadySettled: true}, nil
}

func receiptStatus(r *types.Receipt) string {
	if r == nil {
		return "missing"
	}
	return strconv.FormatUint(r.Status, 10)
}
