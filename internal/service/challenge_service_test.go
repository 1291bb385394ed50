package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/util"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func (e *testEnv) enrollment(t *testing.T, userID, challengeID uint) *model.UserChallenge {
	t.Helper()
	uc, err := e.enrollments.FindByUserAndChallenge(userID, challengeID)
	require.NoError(t, err)
	return uc
}

func (e *testEnv) countNotifications(t *testing.T, userID uint, typ model.NotificationType) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(&model.Notification{}).Where("user_id = ? AND type = ?", userID, typ).Count(&n).Error)
	return n
}

func (e *testEnv) transactions(t *testing.T, userID uint, typ model.TransactionType) []model.Transaction {
	t.Helper()
	list, _, err := e.txs.ListByUser(userID, typ, 1, 100)
	require.NoError(t, err)
	return list
}

func TestCreateChallengeValidation(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")

	base := func() *CreateChallengeRequest {
		return &CreateChallengeRequest{
			Title: "Daily French", LanguageCode: "FR", ProficiencyLevel: "B1",
			DurationDays: 30, DailyRequirement: 20, StakeAmount: "10", YieldPercentage: 5,
		}
	}

	c, err := env.service.Create(creator.ID, base())
	require.NoError(t, err)
	assert.Equal(t, "fr", c.LanguageCode)
	assert.Len(t, c.InviteCode, 8)
	assert.True(t, c.IsActive)

	cases := map[string]func(r *CreateChallengeRequest){
		"unknown level":     func(r *CreateChallengeRequest) { r.ProficiencyLevel = "D1" },
		"zero duration":     func(r *CreateChallengeRequest) { r.DurationDays = 0 },
		"long duration":     func(r *CreateChallengeRequest) { r.DurationDays = 366 },
		"zero requirement":  func(r *CreateChallengeRequest) { r.DailyRequirement = 0 },
		"negative yield":    func(r *CreateChallengeRequest) { r.YieldPercentage = -1 },
		"zero stake":        func(r *CreateChallengeRequest) { r.StakeAmount = "0" },
		"garbage stake":     func(r *CreateChallengeRequest) { r.StakeAmount = "ten" },
		"too many decimals": func(r *CreateChallengeRequest) { r.StakeAmount = "1.0000001" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			req := base()
			mutate(req)
			_, err := env.service.Create(creator.ID, req)
			assert.ErrorIs(t, err, util.ErrValidationFailed)
		})
	}
}

func TestChallengeTermsFreezeAfterJoin(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)

	req := &CreateChallengeRequest{
		Title: "Renamed", LanguageCode: "es", ProficiencyLevel: "A2",
		DurationDays: 10, DailyRequirement: 30, StakeAmount: "50", YieldPercentage: 10,
	}
	_, err := env.service.Update(alice.ID, c.ID, req)
	assert.ErrorIs(t, err, util.ErrPermissionDenied)

	updated, err := env.service.Update(creator.ID, c.ID, req)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)

	env.join(t, alice, c)
	_, err = env.service.Update(creator.ID, c.ID, req)
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestLinkContractOnce(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	c := env.createChallenge(t, creator.ID, 10, 30, false)

	linked, err := env.service.LinkContract(creator.ID, c.ID, &LinkContractRequest{
		ContractAddress: "0x9999999999999999999999999999999999999999",
		TxHash:          nextTxHash(),
	})
	require.NoError(t, err)
	assert.Equal(t, "base", linked.ContractChain)
	assert.Len(t, env.transactions(t, creator.ID, model.TransactionContractRegistration), 1)

	_, err = env.service.LinkContract(creator.ID, c.ID, &LinkContractRequest{
		ContractAddress: "0x8888888888888888888888888888888888888888",
	})
	assert.ErrorIs(t, err, util.ErrInvalidState)

	_, err = env.service.LinkContract(creator.ID, c.ID, &LinkContractRequest{ContractAddress: "0x1234"})
	assert.ErrorIs(t, err, util.ErrValidationFailed)
}

func TestGetByInviteCode(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	c := env.createChallenge(t, creator.ID, 30, 30, false)

	detail, err := env.service.GetByInviteCode("  " + c.InviteCode + " ")
	require.NoError(t, err)
	assert.Equal(t, c.ID, detail.ID)
	assert.Zero(t, detail.Participants)
	assert.InDelta(t, 5, detail.Yield.YieldAmount, 1e-9)

	_, err = env.service.GetByInviteCode("NOPE0000")
	assert.ErrorIs(t, err, util.ErrNotFound)
}

func TestJoinCreatesActiveEnrollment(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)

	uc := env.join(t, alice, c)

	assert.Equal(t, model.UserChallengeActive, uc.Status)
	assert.Equal(t, env.clock.Now().AddDate(0, 0, 10), uc.EndDate)
	assert.True(t, decimal.NewFromInt(50).Equal(uc.StakedAmount))
	assert.Equal(t, aliceWallet, uc.WalletAddress)

	stakes := env.transactions(t, alice.ID, model.TransactionStake)
	require.Len(t, stakes, 1)
	assert.Equal(t, uc.StakeTxHash, stakes[0].TxHash)
	assert.Equal(t, "USDC", stakes[0].Currency)
	assert.Equal(t, int64(1), env.countNotifications(t, alice.ID, model.NotificationChallengeJoined))
}

func TestJoinSavesWalletOnProfile(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", "")
	c := env.createChallenge(t, creator.ID, 10, 30, false)

	hash := nextTxHash()
	env.ledger.addStake(t, hash, stakingContract, aliceWallet, c.StakeAmount)

	_, err := env.service.Join(context.Background(), alice.ID, c.ID, &JoinRequest{TxHash: hash})
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	_, err = env.service.Join(context.Background(), alice.ID, c.ID, &JoinRequest{TxHash: hash, WalletAddress: aliceWallet})
	require.NoError(t, err)

	profile, err := env.users.FindByID(alice.ID)
	require.NoError(t, err)
	assert.Equal(t, aliceWallet, profile.WalletAddress)
}

func TestJoinRejectsUnverifiedStake(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)

	hash := nextTxHash()
	env.ledger.addStake(t, hash, stakingContract, aliceWallet, decimal.NewFromInt(49))

	_, err := env.service.Join(context.Background(), alice.ID, c.ID, &JoinRequest{TxHash: hash})
	assert.ErrorIs(t, err, util.ErrVerificationFailed)

	_, err = env.enrollments.FindByUserAndChallenge(alice.ID, c.ID)
	assert.Error(t, err)
	assert.Empty(t, env.transactions(t, alice.ID, ""))
}

func TestJoinTwiceIsRejected(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)

	hash := nextTxHash()
	env.ledger.addStake(t, hash, stakingContract, aliceWallet, c.StakeAmount)
	_, err := env.service.Join(context.Background(), alice.ID, c.ID, &JoinRequest{TxHash: hash})
	assert.ErrorIs(t, err, util.ErrInvalidState)

	// Withdrawing does not free the slot.
	_, err = env.service.Exit(alice.ID, c.ID)
	require.NoError(t, err)
	_, err = env.service.Join(context.Background(), alice.ID, c.ID, &JoinRequest{TxHash: hash})
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestJoinRespectsCapacityAndActiveFlag(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	bob := env.createUser(t, "bob@example.com", "0xB0b0000000000000000000000000000000000002")

	c, err := env.service.Create(creator.ID, &CreateChallengeRequest{
		Title: "Tiny", LanguageCode: "de", ProficiencyLevel: "A1",
		DurationDays: 7, DailyRequirement: 10, StakeAmount: "5", MaxParticipants: 1,
	})
	require.NoError(t, err)
	env.join(t, alice, c)

	hash := nextTxHash()
	env.ledger.addStake(t, hash, stakingContract, bob.WalletAddress, c.StakeAmount)
	_, err = env.service.Join(context.Background(), bob.ID, c.ID, &JoinRequest{TxHash: hash})
	assert.ErrorIs(t, err, util.ErrInvalidState)

	other := env.createChallenge(t, creator.ID, 10, 30, false)
	_, err = env.service.SetActive(creator.ID, other.ID, false)
	require.NoError(t, err)
	_, err = env.service.Join(context.Background(), bob.ID, other.ID, &JoinRequest{TxHash: hash})
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestRecordProgressCompletesDayOnce(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)

	res, err := env.service.RecordProgress(alice.ID, c.ID, 20)
	require.NoError(t, err)
	assert.False(t, res.DayCompleted)
	assert.Equal(t, 20, res.Today.MinutesPracticed)

	res, err = env.service.RecordProgress(alice.ID, c.ID, 15)
	require.NoError(t, err)
	assert.True(t, res.DayCompleted)
	assert.Equal(t, 35, res.Today.MinutesPracticed)
	assert.Equal(t, 1, res.UserChallenge.CurrentStreak)
	assert.Equal(t, 10, res.UserChallenge.ProgressPercentage)

	res, err = env.service.RecordProgress(alice.ID, c.ID, 5)
	require.NoError(t, err)
	assert.False(t, res.DayCompleted)
	assert.Equal(t, 40, res.Today.MinutesPracticed)

	rows, err := env.service.ProgressHistory(alice.ID, c.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestRecordProgressValidation(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 3, 30, false)

	_, err := env.service.RecordProgress(alice.ID, c.ID, 10)
	assert.ErrorIs(t, err, util.ErrNotFound)

	env.join(t, alice, c)
	_, err = env.service.RecordProgress(alice.ID, c.ID, 0)
	assert.ErrorIs(t, err, util.ErrValidationFailed)
	_, err = env.service.RecordProgress(alice.ID, c.ID, 1441)
	assert.ErrorIs(t, err, util.ErrValidationFailed)

	env.clock.Advance(4 * 24 * time.Hour)
	_, err = env.service.RecordProgress(alice.ID, c.ID, 30)
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestStreakFollowsConsecutiveDays(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)

	env.practiceDays(t, alice, c, 3, 30)
	uc := env.enrollment(t, alice.ID, c.ID)
	assert.Equal(t, 3, uc.CurrentStreak)
	assert.Equal(t, 3, uc.LongestStreak)
	assert.Equal(t, 30, uc.ProgressPercentage)

	// Skip a day, then practice again.
	env.clock.Advance(24 * time.Hour)
	res, err := env.service.RecordProgress(alice.ID, c.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 1, res.UserChallenge.CurrentStreak)
	assert.Equal(t, 3, res.UserChallenge.LongestStreak)
	assert.Equal(t, 40, res.UserChallenge.ProgressPercentage)
}

func TestCompleteRequiresThreshold(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)

	env.practiceDays(t, alice, c, 7, 30)
	_, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)
	assert.Zero(t, env.ledger.submitCount())

	// A partial day does not count.
	_, err = env.service.RecordProgress(alice.ID, c.ID, 29)
	require.NoError(t, err)
	_, err = env.service.Complete(context.Background(), alice.ID, c.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestCompletePaysStakeAndYield(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 8, 30)

	res, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserChallengeCompleted, res.UserChallenge.Status)
	assert.True(t, decimal.NewFromInt(55).Equal(res.Settlement.Reward))

	uc := env.enrollment(t, alice.ID, c.ID)
	assert.Equal(t, model.UserChallengeCompleted, uc.Status)
	assert.Equal(t, res.Settlement.TxHash, uc.CompletionTxHash)
	assert.True(t, decimal.NewFromInt(55).Equal(uc.RewardAmount))
	assert.Equal(t, 80, uc.ProgressPercentage)
	require.NotNil(t, uc.CompletedAt)

	rewards := env.transactions(t, alice.ID, model.TransactionReward)
	require.Len(t, rewards, 1)
	assert.Equal(t, res.Settlement.TxHash, rewards[0].TxHash)
	assert.Equal(t, int64(1), env.countNotifications(t, alice.ID, model.NotificationChallengeCompleted))
	assert.Equal(t, int64(1), env.countNotifications(t, alice.ID, model.NotificationRewardPaid))

	codes, err := repositoryCodes(env, alice.ID)
	require.NoError(t, err)
	assert.True(t, codes["first_challenge"])

	_, err = env.service.Complete(context.Background(), alice.ID, c.ID)
	assert.ErrorIs(t, err, util.ErrInvalidState)
}

func TestCompleteThenClaimDoesNotPayTwice(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 10, 30)

	done, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)

	claim, err := env.service.ClaimReward(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, claim.Settlement.AlreadySettled)
	assert.Equal(t, done.Settlement.TxHash, claim.Settlement.TxHash)
	assert.Equal(t, 1, env.ledger.submitCount())
	assert.Len(t, env.transactions(t, alice.ID, model.TransactionReward), 1)
}

func TestCompleteKeepsEnrollmentActiveWhenPayoutFails(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 8, 30)

	boom := errors.New("rpc unavailable")
	env.ledger.submitErrs = []error{boom, boom, boom}
	_, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	assert.ErrorIs(t, err, util.ErrLedgerSubmissionFailed)
	assert.Equal(t, []time.Duration{5 * time.Second, 10 * time.Second}, env.sleeper.waits)

	uc := env.enrollment(t, alice.ID, c.ID)
	assert.Equal(t, model.UserChallengeActive, uc.Status)
	assert.Empty(t, uc.CompletionTxHash)
	assert.Empty(t, env.transactions(t, alice.ID, model.TransactionReward))

	// The next attempt goes through.
	res, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.UserChallengeCompleted, res.UserChallenge.Status)
}

// failStatusUpdates makes every status change on user_challenges fail until
// the returned func is called.
func failStatusUpdates(t *testing.T, db *gorm.DB) func() {
	t.Helper()
	failing := true
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:fail_status", func(tx *gorm.DB) {
		if !failing || tx.Statement.Table != "user_challenges" {
			return
		}
		if updates, ok := tx.Statement.Dest.(map[string]interface{}); ok {
			if _, ok := updates["status"]; ok {
				_ = tx.AddError(errors.New("database is locked"))
			}
		}
	}))
	return func() { failing = false }
}

func TestCompleteKeepsPayoutHashWhenStatusUpdateFails(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 8, 30)

	restore := failStatusUpdates(t, env.db)
	_, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	require.Error(t, err)
	assert.Equal(t, 1, env.ledger.submitCount())

	uc := env.enrollment(t, alice.ID, c.ID)
	assert.Equal(t, model.UserChallengeActive, uc.Status)
	assert.NotEmpty(t, uc.CompletionTxHash)

	restore()
	res, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, res.Settlement.AlreadySettled)
	assert.Equal(t, uc.CompletionTxHash, res.Settlement.TxHash)
	assert.Equal(t, model.UserChallengeCompleted, res.UserChallenge.Status)
	assert.Equal(t, 1, env.ledger.submitCount())
	assert.Len(t, env.transactions(t, alice.ID, model.TransactionReward), 1)
}

func TestCompleteWithUnderfundedContract(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 8, 30)

	env.ledger.balance.SetInt64(0)
	_, err := env.service.Complete(context.Background(), alice.ID, c.ID)
	assert.ErrorIs(t, err, util.ErrInsufficientFunds)
	assert.Equal(t, model.UserChallengeActive, env.enrollment(t, alice.ID, c.ID).Status)
}

func TestExit(t *testing.T) {
	t.Run("no-loss challenge freezes progress", func(t *testing.T) {
		env := newTestEnv(t)
		creator := env.createUser(t, "creator@example.com", "")
		alice := env.createUser(t, "alice@example.com", aliceWallet)
		c := env.createChallenge(t, creator.ID, 10, 30, false)
		env.join(t, alice, c)
		env.practiceDays(t, alice, c, 2, 30)

		uc, err := env.service.Exit(alice.ID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, model.UserChallengeWithdrawn, uc.Status)
		assert.Equal(t, 20, uc.ProgressPercentage)
		assert.Equal(t, int64(1), env.countNotifications(t, alice.ID, model.NotificationChallengeWithdrawn))

		_, err = env.service.RecordProgress(alice.ID, c.ID, 30)
		assert.ErrorIs(t, err, util.ErrInvalidState)
		assert.Equal(t, 20, env.enrollment(t, alice.ID, c.ID).ProgressPercentage)
	})

	t.Run("hardcore challenge cannot be exited", func(t *testing.T) {
		env := newTestEnv(t)
		creator := env.createUser(t, "creator@example.com", "")
		alice := env.createUser(t, "alice@example.com", aliceWallet)
		c := env.createChallenge(t, creator.ID, 10, 30, true)
		env.join(t, alice, c)

		_, err := env.service.Exit(alice.ID, c.ID)
		assert.ErrorIs(t, err, util.ErrInvalidState)
		assert.Equal(t, model.UserChallengeActive, env.enrollment(t, alice.ID, c.ID).Status)
	})
}

func repositoryCodes(env *testEnv, userID uint) (map[string]bool, error) {
	var list []model.Achievement
	if err := env.db.Where("user_id = ?", userID).Find(&list).Error; err != nil {
		return nil, err
	}
	codes := make(map[string]bool, len(list))
	for _, a := range list {
		codes[a.Code] = true
	}
	return codes, nil
}
