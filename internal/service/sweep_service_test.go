package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/pkg/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepSettlesEndedEnrollments(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	achiever := env.createUser(t, "achiever@example.com", "0xA000000000000000000000000000000000000001")
	casual := env.createUser(t, "casual@example.com", "0xA000000000000000000000000000000000000002")
	hardcore := env.createUser(t, "hardcore@example.com", "0xA000000000000000000000000000000000000003")

	noLoss := env.createChallenge(t, creator.ID, 10, 30, false)
	strict := env.createChallenge(t, creator.ID, 10, 30, true)
	env.join(t, achiever, noLoss)
	env.join(t, casual, noLoss)
	env.join(t, hardcore, strict)

	for day := 0; day < 10; day++ {
		if day < 8 {
			_, err := env.service.RecordProgress(achiever.ID, noLoss.ID, 30)
			require.NoError(t, err)
		}
		if day < 3 {
			_, err := env.service.RecordProgress(casual.ID, noLoss.ID, 30)
			require.NoError(t, err)
			_, err = env.service.RecordProgress(hardcore.ID, strict.ID, 30)
			require.NoError(t, err)
		}
		env.clock.Advance(24 * time.Hour)
	}
	env.clock.Advance(time.Hour)

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.PartialSuccess)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Errors)

	uc := env.enrollment(t, achiever.ID, noLoss.ID)
	assert.Equal(t, model.UserChallengeCompleted, uc.Status)
	assert.Equal(t, 80, uc.ProgressPercentage)
	assert.Empty(t, uc.CompletionTxHash)
	assert.Equal(t, int64(1), env.countNotifications(t, achiever.ID, model.NotificationChallengeCompleted))

	uc = env.enrollment(t, casual.ID, noLoss.ID)
	assert.Equal(t, model.UserChallengeCompleted, uc.Status)
	assert.Equal(t, 30, uc.ProgressPercentage)
	assert.Equal(t, int64(1), env.countNotifications(t, casual.ID, model.NotificationPartialSuccess))

	uc = env.enrollment(t, hardcore.ID, strict.ID)
	assert.Equal(t, model.UserChallengeFailed, uc.Status)
	assert.Equal(t, int64(1), env.countNotifications(t, hardcore.ID, model.NotificationChallengeFailed))

	// Nothing is active any more.
	report, err = env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Processed)
}

func TestSweepCompletedEnrollmentCanBeClaimedOnce(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 5, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 5, 30)
	env.clock.Advance(time.Hour)

	_, err := env.sweep.Run(context.Background())
	require.NoError(t, err)

	first, err := env.service.ClaimReward(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, first.Settlement.AlreadySettled)
	assert.Equal(t, first.Settlement.TxHash, env.enrollment(t, alice.ID, c.ID).CompletionTxHash)

	second, err := env.service.ClaimReward(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, second.Settlement.AlreadySettled)
	assert.Equal(t, first.Settlement.TxHash, second.Settlement.TxHash)
	assert.Equal(t, 1, env.ledger.submitCount())
	assert.Len(t, env.transactions(t, alice.ID, model.TransactionReward), 1)
}

func TestClaimReplacesRevertedPayout(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 5, 30, false)
	env.join(t, alice, c)
	env.practiceDays(t, alice, c, 5, 30)
	env.clock.Advance(time.Hour)

	_, err := env.sweep.Run(context.Background())
	require.NoError(t, err)

	env.ledger.revert = true
	reverted, err := env.ledger.Submit(context.Background(), web3.ContractCall{
		Contract: stakingContract,
		Method:   web3.MethodCompleteChallenge,
		Args:     []interface{}{common.HexToAddress(aliceWallet), big.NewInt(int64(c.ID)), big.NewInt(1000)},
	})
	require.NoError(t, err)
	env.ledger.revert = false
	uc := env.enrollment(t, alice.ID, c.ID)
	require.NoError(t, env.db.Model(&model.UserChallenge{}).Where("id = ?", uc.ID).Update("completion_tx_hash", reverted.Hex()).Error)

	claim, err := env.service.ClaimReward(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.False(t, claim.Settlement.AlreadySettled)
	assert.NotEqual(t, reverted.Hex(), claim.Settlement.TxHash)
	assert.Equal(t, claim.Settlement.TxHash, env.enrollment(t, alice.ID, c.ID).CompletionTxHash)

	again, err := env.service.ClaimReward(context.Background(), alice.ID, c.ID)
	require.NoError(t, err)
	assert.True(t, again.Settlement.AlreadySettled)
	assert.Equal(t, 2, env.ledger.submitCount())
}

func TestSweepNudgesRunningEnrollments(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	diligent := env.createUser(t, "diligent@example.com", "0xA000000000000000000000000000000000000001")
	idle := env.createUser(t, "idle@example.com", "0xA000000000000000000000000000000000000002")
	strict := env.createChallenge(t, creator.ID, 10, 30, true)
	env.join(t, diligent, strict)
	env.join(t, idle, strict)

	env.practiceDays(t, idle, strict, 2, 30)
	_, err := env.service.RecordProgress(diligent.ID, strict.ID, 30)
	require.NoError(t, err)

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Reminders)
	assert.Equal(t, 1, report.StreakWarnings)

	assert.Zero(t, env.countNotifications(t, diligent.ID, model.NotificationDailyReminder))
	assert.Equal(t, int64(1), env.countNotifications(t, idle.ID, model.NotificationDailyReminder))
	assert.Equal(t, int64(1), env.countNotifications(t, idle.ID, model.NotificationStreakWarning))

	// The idle user's streak is reset since today is not done and yesterday was.
	uc := env.enrollment(t, idle.ID, strict.ID)
	assert.Equal(t, 0, uc.CurrentStreak)
	assert.Equal(t, 2, uc.LongestStreak)
	assert.Equal(t, model.UserChallengeActive, uc.Status)
}

func TestSweepContinuesPastBrokenRecord(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	bob := env.createUser(t, "bob@example.com", "0xB0b0000000000000000000000000000000000002")
	orphaned := env.createChallenge(t, creator.ID, 10, 30, false)
	healthy := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, orphaned)
	env.join(t, bob, healthy)

	require.NoError(t, env.db.Delete(&model.Challenge{}, orphaned.ID).Error)

	report, err := env.sweep.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Reminders)
	assert.Equal(t, int64(1), env.countNotifications(t, bob.ID, model.NotificationDailyReminder))
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	env := newTestEnv(t)
	creator := env.createUser(t, "creator@example.com", "")
	alice := env.createUser(t, "alice@example.com", aliceWallet)
	c := env.createChallenge(t, creator.ID, 10, 30, false)
	env.join(t, alice, c)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report, err := env.sweep.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Processed)
}
