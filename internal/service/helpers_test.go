package service

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/pkg/database"
	"lingo_stake_backend/pkg/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	stakingContract = common.HexToAddress("0x5555555555555555555555555555555555555555")
	tokenContract   = common.HexToAddress("0x6666666666666666666666666666666666666666")
	aliceWallet     = "0xA11cE00000000000000000000000000000000001"
)

// fakeLedger is an in-memory chain. Stake transactions are registered with
// addStake; payouts are mined instantly unless told otherwise.
type fakeLedger struct {
	mu       sync.Mutex
	receipts map[common.Hash]*types.Receipt
	to       map[common.Hash]common.Address
	balance  *big.Int

	submits    int
	submitErrs []error
	// omitEvent mines payouts without a ChallengeCompleted log.
	omitEvent bool
	// revert mines payouts with a failed status.
	revert bool
	// receiptErr fails every Receipt lookup.
	receiptErr error
	calls      []web3.ContractCall
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		receipts: map[common.Hash]*types.Receipt{},
		to:       map[common.Hash]common.Address{},
		balance:  web3.ToBaseUnits(decimal.NewFromInt(1_000_000)),
	}
}

func (f *fakeLedger) addStake(t *testing.T, hash string, to common.Address, staker string, amount decimal.Decimal) {
	t.Helper()
	event := web3.StakingABI.Events[web3.EventStakeReceived]
	data, err := event.Inputs.NonIndexed().Pack(web3.ToBaseUnits(amount))
	require.NoError(t, err)

	h := common.HexToHash(hash)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.to[h] = to
	f.receipts[h] = &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: h,
		Logs: []*types.Log{{
			Address: to,
			Topics: []common.Hash{
				event.ID,
				common.BytesToHash(common.HexToAddress(staker).Bytes()),
				common.BigToHash(big.NewInt(1)),
			},
			Data: data,
		}},
	}
}

func (f *fakeLedger) Receipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.receiptErr != nil {
		return nil, f.receiptErr
	}
	r, ok := f.receipts[hash]
	if !ok {
		return nil, web3.ErrReceiptNotFound
	}
	return r, nil
}

func (f *fakeLedger) TransactionTo(_ context.Context, hash common.Hash) (*common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	to, ok := f.to[hash]
	if !ok {
		return nil, web3.ErrTxNotFound
	}
	return &to, nil
}

func (f *fakeLedger) TokenBalance(_ context.Context, token, holder common.Address) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.balance), nil
}

func (f *fakeLedger) Submit(_ context.Context, call web3.ContractCall) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.calls = append(f.calls, call)
	if f.submits <= len(f.submitErrs) && f.submitErrs[f.submits-1] != nil {
		return common.Hash{}, f.submitErrs[f.submits-1]
	}

	hash := common.BigToHash(big.NewInt(int64(0xbeef00 + f.submits)))
	receipt := &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: hash}
	if f.revert {
		receipt.Status = types.ReceiptStatusFailed
	}
	if !f.omitEvent {
		event := web3.StakingABI.Events[web3.EventChallengeCompleted]
		data, _ := event.Inputs.NonIndexed().Pack(big.NewInt(0))
		user := call.Args[0].(common.Address)
		challengeID := call.Args[1].(*big.Int)
		receipt.Logs = []*types.Log{{
			Address: call.Contract,
			Topics:  []common.Hash{event.ID, common.BytesToHash(user.Bytes()), common.BigToHash(challengeID)},
			Data:    data,
		}}
	}
	f.receipts[hash] = receipt
	return hash, nil
}

func (f *fakeLedger) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	r, err := f.Receipt(ctx, hash)
	if errors.Is(err, web3.ErrReceiptNotFound) {
		return nil, context.DeadlineExceeded
	}
	return r, err
}

func (f *fakeLedger) submitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits
}

type recordingSleeper struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (r *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.waits = append(r.waits, d)
	return nil
}

type testEnv struct {
	db          *gorm.DB
	clock       *clockwork.FakeClock
	ledger      *fakeLedger
	sleeper     *recordingSleeper
	users       *repository.UserRepository
	challenges  *repository.ChallengeRepository
	enrollments *repository.UserChallengeRepository
	progress    *repository.DailyProgressRepository
	txs         *repository.TransactionRepository
	notes       *repository.NotificationRepository
	service     *ChallengeService
	sweep       *SweepService
	distributor *RewardDistributor
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.OpenTestDB(uuid.NewString())
	require.NoError(t, err)

	env := &testEnv{
		db:          db,
		clock:       clockwork.NewFakeClockAt(time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)),
		ledger:      newFakeLedger(),
		sleeper:     &recordingSleeper{},
		users:       repository.NewUserRepository(db),
		challenges:  repository.NewChallengeRepository(db),
		enrollments: repository.NewUserChallengeRepository(db),
		progress:    repository.NewDailyProgressRepository(db),
		txs:         repository.NewTransactionRepository(db),
		notes:       repository.NewNotificationRepository(db),
	}

	notifications := NewNotificationService(env.notes, env.users, logOnlySender{})
	achievements := NewAchievementService(repository.NewAchievementRepository(db), env.enrollments, notifications, env.clock)
	verifier := NewStakingVerifier(env.ledger, stakingContract.Hex())
	env.distributor = NewRewardDistributor(env.ledger, stakingContract.Hex(), tokenContract.Hex(), env.sleeper.sleep)
	env.distributor.ConfirmTimeout = 0

	env.service = NewChallengeService(
		env.challenges, env.enrollments, env.progress, env.txs, env.users,
		verifier, env.distributor, notifications, achievements,
		env.clock, "USDC", "base",
	)
	env.sweep = NewSweepService(env.enrollments, env.progress, notifications, achievements, env.clock)
	return env
}

func (e *testEnv) createUser(t *testing.T, email, wallet string) *model.User {
	t.Helper()
	u := &model.User{Name: email, Email: email, Password: "x", Role: model.Learner, WalletAddress: wallet}
	require.NoError(t, e.users.Create(u))
	return u
}

func (e *testEnv) createChallenge(t *testing.T, creatorID uint, duration, daily int, hardcore bool) *model.Challenge {
	t.Helper()
	c, err := e.service.Create(creatorID, &CreateChallengeRequest{
		Title:            "Spanish sprint",
		LanguageCode:     "es",
		ProficiencyLevel: "A2",
		DurationDays:     duration,
		DailyRequirement: daily,
		StakeAmount:      "50",
		YieldPercentage:  10,
		IsHardcore:       hardcore,
	})
	require.NoError(t, err)
	return c
}

var txCounter int

func nextTxHash() string {
	txCounter++
	return common.BigToHash(big.NewInt(int64(0x1000 + txCounter))).Hex()
}

// join stakes and joins, returning the enrollment.
func (e *testEnv) join(t *testing.T, user *model.User, challenge *model.Challenge) *model.UserChallenge {
	t.Helper()
	hash := nextTxHash()
	e.ledger.addStake(t, hash, stakingContract, user.WalletAddress, challenge.StakeAmount)
	uc, err := e.service.Join(context.Background(), user.ID, challenge.ID, &JoinRequest{TxHash: hash})
	require.NoError(t, err)
	return uc
}

// practiceDays records minutes on each of the next n days, starting today.
func (e *testEnv) practiceDays(t *testing.T, user *model.User, challenge *model.Challenge, n, minutes int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := e.service.RecordProgress(user.ID, challenge.ID, minutes)
		require.NoError(t, err)
		e.clock.Advance(24 * time.Hour)
	}
}
