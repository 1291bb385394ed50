package web3

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/pkg/logger"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

var (
	ErrReceiptNotFound = errors.New("transaction receipt not found")
	ErrTxNotFound      = errors.New("transaction not found")
	ErrNoSigner        = errors.New("admin signing key is not configured")
)

// ContractCall is one state-changing call against the staking contract.
// Attempt starts at 1 and drives the priority fee bump.
type ContractCall struct {
	Contract common.Address
	Method   string
	Args     []interface{}
	Attempt  int
}

// Ledger is everything the staking flow needs from the chain.
type Ledger interface {
	Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)
	TransactionTo(ctx context.Context, hash common.Hash) (*common.Address, error)
	TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error)
	Submit(ctx context.Context, call ContractCall) (common.Hash, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// EVMLedger implements Ledger over a JSON-RPC endpoint.
type EVMLedger struct {
	client      *ethclient.Client
	chainID     *big.Int
	signer      *ecdsa.PrivateKey
	bumpPercent int
	pollEvery   time.Duration
}

func NewEVMLedger(ctx context.Context, cfg *config.Web3Config) (*EVMLedger, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}

	chainID := big.NewInt(cfg.ChainID)
	if cfg.ChainID == 0 {
		chainID, err = client.ChainID(ctx)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("read chain id: %w", err)
		}
	}

	l := &EVMLedger{
		client:      client,
		chainID:     chainID,
		bumpPercent: cfg.PriorityFeeBumpPercent,
		pollEvery:   cfg.ConfirmationPoll,
	}
	if l.pollEvery <= 0 {
		l.pollEvery = 2 * time.Second
	}

	if cfg.AdminPrivateKey != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.AdminPrivateKey, "0x"))
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("parse admin key: %w", err)
		}
		l.signer = key
		logger.Log.Info("Ledger signer loaded", zap.String("address", crypto.PubkeyToAddress(key.PublicKey).Hex()))
	} else {
		logger.Log.Warn("No admin key configured, reward payouts are disabled")
	}

	return l, nil
}

func (l *EVMLedger) Close() {
	l.client.Close()
}

// Ping is used by the health check.
func (l *EVMLedger) Ping(ctx context.Context) error {
	_, err := l.client.BlockNumber(ctx)
	return err
}

func (l *EVMLedger) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	receipt, err := l.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrReceiptNotFound
	}
	return receipt, err
}

func (l *EVMLedger) TransactionTo(ctx context.Context, hash common.Hash) (*common.Address, error) {
	tx, _, err := l.client.TransactionByHash(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrTxNotFound
	}
	if err != nil {
		return nil, err
	}
	return tx.To(), nil
}

func (l *EVMLedger) TokenBalance(ctx context.Context, token, holder common.Address) (*big.Int, error) {
	contract := bind.NewBoundContract(token, TokenABI, l.client, l.client, l.client)

	var out []interface{}
	if err := contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", holder); err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	if len(out) == 0 {
		return big.NewInt(0), nil
	}
	balance, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("balanceOf: unexpected result type %T", out[0])
	}
	return balance, nil
}

func (l *EVMLedger) Submit(ctx context.Context, call ContractCall) (common.Hash, error) {
	if l.signer == nil {
		return common.Hash{}, ErrNoSigner
	}

	opts, err := bind.NewKeyedTransactorWithChainID(l.signer, l.chainID)
	if err != nil {
		return common.Hash{}, err
	}
	opts.Context = ctx

	tip, err := l.client.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest tip: %w", err)
	}
	opts.GasTipCap = BumpTip(tip, l.bumpPercent, call.Attempt)

	contract := bind.NewBoundContract(call.Contract, StakingABI, l.client, l.client, l.client)
	tx, err := contract.Transact(opts, call.Method, call.Args...)
	if err != nil {
		return common.Hash{}, err
	}

	logger.Log.Info("Ledger transaction submitted",
		zap.String("method", call.Method),
		zap.String("tx", tx.Hash().Hex()),
		zap.Int("attempt", call.Attempt),
		zap.String("tip", opts.GasTipCap.String()),
	)
	return tx.Hash(), nil
}

// WaitMined polls for the receipt until it appears or ctx ends.
func (l *EVMLedger) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ticker := time.NewTicker(l.pollEvery)
	defer ticker.Stop()

	for {
		receipt, err := l.Receipt(ctx, hash)
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ErrReceiptNotFound) {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// BumpTip raises the suggested tip by percent for every attempt after the first.
func BumpTip(tip *big.Int, percent, attempt int) *big.Int {
	if tip == nil {
		tip = big.NewInt(0)
	}
	if attempt <= 1 || percent <= 0 {
		return new(big.Int).Set(tip)
	}
	factor := big.NewInt(int64(100 + percent*(attempt-1)))
	bumped := new(big.Int).Mul(tip, factor)
	return bumped.Quo(bumped, big.NewInt(100))
}
