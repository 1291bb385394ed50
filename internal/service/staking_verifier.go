package service

import (
	"context"
	"errors"
	"fmt"

	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"lingo_stake_backend/pkg/monitoring"
	"lingo_stake_backend/pkg/tracing"
	"lingo_stake_backend/pkg/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// StakeClaim is what a user asserts about their deposit.
type StakeClaim struct {
	TxHash string
	Wallet string
	Amount decimal.Decimal
	// Contract overrides the default staking contract when the challenge has its own.
	Contract string
}

// StakingVerifier proves a transaction hash is a matching StakeReceived
// deposit. It only reads from the ledger.
type StakingVerifier struct {
	Ledger          web3.Ledger
	DefaultContract common.Address
}

func NewStakingVerifier(ledger web3.Ledger, stakingContract string) *StakingVerifier {
	return &StakingVerifier{
		Ledger:          ledger,
		DefaultContract: common.HexToAddress(stakingContract),
	}
}

func verificationFailed(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrVerificationFailed, fmt.Sprintf(format, args...))
}

// Verify returns the normalised hash when the claim holds.
func (v *StakingVerifier) Verify(ctx context.Context, claim StakeClaim) (hash string, err error) {
	ctx, span := tracing.StartSpan(ctx, "staking.verify", attribute.String("tx", claim.TxHash))
	defer func() {
		result := "ok"
		if err != nil {
			result = "rejected"
		}
		monitoring.StakeVerifications.WithLabelValues(result).Inc()
		tracing.EndSpan(span, err)
	}()

	if v.Ledger == nil {
		return "", util.ErrLedgerDisabled
	}
	if !web3.IsTxHash(claim.TxHash) {
		return "", verificationFailed("malformed transaction hash")
	}
	if !web3.IsAddress(claim.Wallet) {
		return "", verificationFailed("malformed wallet address")
	}

	contract := v.DefaultContract
	if claim.Contract != "" {
		contract = common.HexToAddress(claim.Contract)
	}
	txHash := common.HexToHash(claim.TxHash)

	receipt, err := v.Ledger.Receipt(ctx, txHash)
	switch {
	case errors.Is(err, web3.ErrReceiptNotFound):
		return "", verificationFailed("transaction %s has no receipt", claim.TxHash)
	case err != nil:
		return "", fmt.Errorf("%w: read receipt: %v", util.ErrUpstreamProvider, err)
	case receipt == nil || receipt.Status != types.ReceiptStatusSuccessful:
		return "", verificationFailed("transaction %s reverted", claim.TxHash)
	}

	to, err := v.Ledger.TransactionTo(ctx, txHash)
	switch {
	case errors.Is(err, web3.ErrTxNotFound):
		return "", verificationFailed("transaction %s not found", claim.TxHash)
	case err != nil:
		return "", fmt.Errorf("%w: read transaction: %v", util.ErrUpstreamProvider, err)
	case to == nil || !web3.SameAddress(to.Hex(), contract.Hex()):
		return "", verificationFailed("transaction was not sent to the staking contract")
	}

	event, ok := web3.FindStakeReceived(receipt, contract)
	if !ok {
		return "", verificationFailed("no StakeReceived event in transaction")
	}

	if !web3.SameAddress(event.Staker.Hex(), claim.Wallet) {
		return "", verificationFailed("stake was made by %s, not %s", event.Staker.Hex(), claim.Wallet)
	}

	expected := web3.ToBaseUnits(claim.Amount)
	if event.Amount.String() != expected.String() {
		return "", verificationFailed("staked %s base units, expected %s", event.Amount.String(), expected.String())
	}

	logger.Log.Info("Stake verified",
		zap.String("tx", txHash.Hex()),
		zap.String("wallet", claim.Wallet),
		zap.String("amount", claim.Amount.String()),
	)
	return txHash.Hex(), nil
}
