package service

import (
	"context"
	"errors"
	"fmt"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/util"
	"lingo_stake_backend/pkg/logger"
	"lingo_stake_backend/pkg/web3"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type CreateChallengeRequest struct {
	Title            string  `json:"title" binding:"required,max=120"`
	Description      string  `json:"description"`
	LanguageCode     string  `json:"languageCode" binding:"required,min=2,max=10"`
	ProficiencyLevel string  `json:"proficiencyLevel" binding:"required"`
	DurationDays     int     `json:"durationDays" binding:"required"`
	DailyRequirement int     `json:"dailyRequirement" binding:"required"`
	StakeAmount      string  `json:"stakeAmount" binding:"required"`
	YieldPercentage  float64 `json:"yieldPercentage"`
	IsHardcore       bool    `json:"isHardcore"`
	MaxParticipants  int     `json:"maxParticipants"`
}

// Validate checks the terms and returns the parsed stake.
func (r *CreateChallengeRequest) Validate() (decimal.Decimal, error) {
	invalid := func(msg string) (decimal.Decimal, error) {
		return decimal.Zero, fmt.Errorf("%w: %s", util.ErrValidationFailed, msg)
	}

	if strings.TrimSpace(r.Title) == "" {
		return invalid("title is required")
	}
	if !isProficiencyLevel(r.ProficiencyLevel) {
		return invalid("proficiencyLevel must be one of " + strings.Join(model.ProficiencyLevels, ", "))
	}
	if r.DurationDays < 1 || r.DurationDays > 365 {
		return invalid("durationDays must be between 1 and 365")
	}
	if r.DailyRequirement < 1 || r.DailyRequirement > 24*60 {
		return invalid("dailyRequirement must be between 1 and 1440 minutes")
	}
	if r.YieldPercentage < 0 || r.YieldPercentage > 100 {
		return invalid("yieldPercentage must be between 0 and 100")
	}
	if r.MaxParticipants < 0 {
		return invalid("maxParticipants cannot be negative")
	}
	stake, err := decimal.NewFromString(strings.TrimSpace(r.StakeAmount))
	if err != nil || !stake.IsPositive() {
		return invalid("stakeAmount must be a positive number")
	}
	if stake.Exponent() < -web3.TokenDecimals {
		return invalid(fmt.Sprintf("stakeAmount supports at most %d decimals", web3.TokenDecimals))
	}
	return stake, nil
}

func isProficiencyLevel(level string) bool {
	for _, l := range model.ProficiencyLevels {
		if l == level {
			return true
		}
	}
	return false
}

type JoinRequest struct {
	TxHash string `json:"txHash" binding:"required"`
	// WalletAddress defaults to the wallet on the user's profile.
	WalletAddress string `json:"walletAddress"`
}

type ProgressRequest struct {
	Minutes int `json:"minutes" binding:"required"`
}

type LinkContractRequest struct {
	ContractAddress string `json:"contractAddress" binding:"required"`
	ContractChain   string `json:"contractChain"`
	TxHash          string `json:"txHash"`
}

type ChallengeDetail struct {
	model.Challenge
	Participants int64      `json:"participants"`
	Yield        YieldQuote `json:"yield"`
}

type ProgressResult struct {
	UserChallenge *model.UserChallenge `json:"userChallenge"`
	Today         *model.DailyProgress `json:"today"`
	DayCompleted  bool                 `json:"dayCompleted"`
}

type CompletionResult struct {
	UserChallenge *model.UserChallenge `json:"userChallenge"`
	Settlement    *Settlement          `json:"settlement"`
}

type ChallengeService struct {
	ChallengeRepo     *repository.ChallengeRepository
	UserChallengeRepo *repository.UserChallengeRepository
	ProgressRepo      *repository.DailyProgressRepository
	TransactionRepo   *repository.TransactionRepository
	UserRepo          *repository.UserRepository
	Verifier          *StakingVerifier
	Distributor       *RewardDistributor
	Notifications     *NotificationService
	Achievements      *AchievementService
	Clock             clockwork.Clock
	TokenSymbol       string
	ChainName         string
}

func NewChallengeService(
	challengeRepo *repository.ChallengeRepository,
	userChallengeRepo *repository.UserChallengeRepository,
	progressRepo *repository.DailyProgressRepository,
	transactionRepo *repository.TransactionRepository,
	userRepo *repository.UserRepository,
	verifier *StakingVerifier,
	distributor *RewardDistributor,
	notifications *NotificationService,
	achievements *AchievementService,
	clock clockwork.Clock,
	tokenSymbol, chainName string,
) *ChallengeService {
	return &ChallengeService{
		ChallengeRepo:     challengeRepo,
		UserChallengeRepo: userChallengeRepo,
		ProgressRepo:      progressRepo,
		TransactionRepo:   transactionRepo,
		UserRepo:          userRepo,
		Verifier:          verifier,
		Distributor:       distributor,
		Notifications:     notifications,
		Achievements:      achievements,
		Clock:             clock,
		TokenSymbol:       tokenSymbol,
		ChainName:         chainName,
	}
}

func invalidState(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", util.ErrInvalidState, fmt.Sprintf(format, args...))
}

func notFound(what string) error {
	return fmt.Errorf("%w: %s", util.ErrNotFound, what)
}

func newInviteCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// ---- challenge templates ----

func (s *ChallengeService) Create(creatorID uint, req *CreateChallengeRequest) (*model.Challenge, error) {
	stake, err := req.Validate()
	if err != nil {
		return nil, err
	}

	challenge := &model.Challenge{
		Title:            strings.TrimSpace(req.Title),
		Description:      req.Description,
		LanguageCode:     strings.ToLower(req.LanguageCode),
		ProficiencyLevel: req.ProficiencyLevel,
		DurationDays:     req.DurationDays,
		DailyRequirement: req.DailyRequirement,
		StakeAmount:      stake,
		YieldPercentage:  req.YieldPercentage,
		IsHardcore:       req.IsHardcore,
		MaxParticipants:  req.MaxParticipants,
		CreatorID:        creatorID,
		IsActive:         true,
	}

	// Invite codes are random; retry the rare collision.
	for i := 0; i < 3; i++ {
		challenge.InviteCode = newInviteCode()
		err = s.ChallengeRepo.Create(challenge)
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return challenge, nil
}

// Update changes the terms of a challenge nobody has joined yet.
func (s *ChallengeService) Update(creatorID, id uint, req *CreateChallengeRequest) (*model.Challenge, error) {
	challenge, err := s.findChallenge(id)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != creatorID {
		return nil, util.ErrPermissionDenied
	}
	participants, err := s.ChallengeRepo.CountParticipants(id)
	if err != nil {
		return nil, err
	}
	if participants > 0 {
		return nil, invalidState("challenge terms are frozen once someone has joined")
	}
	stake, err := req.Validate()
	if err != nil {
		return nil, err
	}

	challenge.Title = strings.TrimSpace(req.Title)
	challenge.Description = req.Description
	challenge.LanguageCode = strings.ToLower(req.LanguageCode)
	challenge.ProficiencyLevel = req.ProficiencyLevel
	challenge.DurationDays = req.DurationDays
	challenge.DailyRequirement = req.DailyRequirement
	challenge.StakeAmount = stake
	challenge.YieldPercentage = req.YieldPercentage
	challenge.IsHardcore = req.IsHardcore
	challenge.MaxParticipants = req.MaxParticipants

	if err := s.ChallengeRepo.Update(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// SetActive lets the creator open or close a challenge to new joins.
func (s *ChallengeService) SetActive(creatorID, id uint, active bool) (*model.Challenge, error) {
	challenge, err := s.findChallenge(id)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != creatorID {
		return nil, util.ErrPermissionDenied
	}
	challenge.IsActive = active
	if err := s.ChallengeRepo.Update(challenge); err != nil {
		return nil, err
	}
	return challenge, nil
}

// LinkContract records the challenge's dedicated staking contract. It can be
// set only once.
func (s *ChallengeService) LinkContract(creatorID, id uint, req *LinkContractRequest) (*model.Challenge, error) {
	if !web3.IsAddress(req.ContractAddress) {
		return nil, fmt.Errorf("%w: contractAddress is not a valid address", util.ErrValidationFailed)
	}
	if req.TxHash != "" && !web3.IsTxHash(req.TxHash) {
		return nil, fmt.Errorf("%w: txHash is malformed", util.ErrValidationFailed)
	}

	challenge, err := s.findChallenge(id)
	if err != nil {
		return nil, err
	}
	if challenge.CreatorID != creatorID {
		return nil, util.ErrPermissionDenied
	}
	if challenge.HasContract() {
		return nil, invalidState("challenge is already linked to %s", challenge.ContractAddress)
	}

	chain := req.ContractChain
	if chain == "" {
		chain = s.ChainName
	}
	ok, err := s.ChallengeRepo.LinkContract(id, req.ContractAddress, chain)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidState("challenge is already linked to a contract")
	}
	challenge.ContractAddress = req.ContractAddress
	challenge.ContractChain = chain

	if req.TxHash != "" {
		s.recordTransaction(&model.Transaction{
			UserID:          creatorID,
			ChallengeID:     util.UintPtr(id),
			TransactionType: model.TransactionContractRegistration,
			Amount:          decimal.Zero,
			Currency:        s.TokenSymbol,
			TxHash:          req.TxHash,
			Status:          model.TransactionConfirmed,
		})
	}
	return challenge, nil
}

func (s *ChallengeService) Get(id uint) (*ChallengeDetail, error) {
	challenge, err := s.findChallenge(id)
	if err != nil {
		return nil, err
	}
	return s.detail(challenge)
}

func (s *ChallengeService) GetByInviteCode(code string) (*ChallengeDetail, error) {
	challenge, err := s.ChallengeRepo.FindByInviteCode(strings.ToUpper(strings.TrimSpace(code)))
	if repository.IsNotFound(err) {
		return nil, notFound("challenge")
	}
	if err != nil {
		return nil, err
	}
	return s.detail(challenge)
}

func (s *ChallengeService) detail(challenge *model.Challenge) (*ChallengeDetail, error) {
	participants, err := s.ChallengeRepo.CountParticipants(challenge.ID)
	if err != nil {
		return nil, err
	}
	stake, _ := challenge.StakeAmount.Float64()
	return &ChallengeDetail{
		Challenge:    *challenge,
		Participants: participants,
		Yield:        CalculateYield(stake, challenge.YieldPercentage, challenge.DurationDays),
	}, nil
}

func (s *ChallengeService) List(filter repository.ChallengeFilter, page, limit int) (*util.PageResponse, error) {
	list, total, err := s.ChallengeRepo.List(filter, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: list, Total: total, Page: page, Limit: limit}, nil
}

func (s *ChallengeService) findChallenge(id uint) (*model.Challenge, error) {
	challenge, err := s.ChallengeRepo.FindByID(id)
	if repository.IsNotFound(err) {
		return nil, notFound("challenge")
	}
	return challenge, err
}

func (s *ChallengeService) findEnrollment(userID, challengeID uint) (*model.UserChallenge, error) {
	uc, err := s.UserChallengeRepo.FindByUserAndChallenge(userID, challengeID)
	if repository.IsNotFound(err) {
		return nil, notFound("participation")
	}
	if err != nil {
		return nil, err
	}
	if uc.Challenge == nil {
		return nil, notFound("challenge")
	}
	return uc, nil
}

// ---- participation lifecycle ----

// Join verifies the stake transaction and creates the ACTIVE enrollment.
func (s *ChallengeService) Join(ctx context.Context, userID, challengeID uint, req *JoinRequest) (*model.UserChallenge, error) {
	challenge, err := s.findChallenge(challengeID)
	if err != nil {
		return nil, err
	}
	if !challenge.IsActive {
		return nil, invalidState("challenge is not accepting participants")
	}

	if _, err := s.UserChallengeRepo.FindByUserAndChallenge(userID, challengeID); err == nil {
		return nil, invalidState("already joined this challenge")
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	if challenge.MaxParticipants > 0 {
		count, err := s.ChallengeRepo.CountParticipants(challengeID)
		if err != nil {
			return nil, err
		}
		if count >= int64(challenge.MaxParticipants) {
			return nil, invalidState("challenge is full")
		}
	}

	user, err := s.UserRepo.FindByID(userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrUserNotFound
		}
		return nil, err
	}
	wallet := strings.TrimSpace(req.WalletAddress)
	if wallet == "" {
		wallet = user.WalletAddress
	}
	if !web3.IsAddress(wallet) {
		return nil, fmt.Errorf("%w: a valid wallet address is required to join", util.ErrValidationFailed)
	}

	if s.Verifier == nil {
		return nil, util.ErrLedgerDisabled
	}
	txHash, err := s.Verifier.Verify(ctx, StakeClaim{
		TxHash:   req.TxHash,
		Wallet:   wallet,
		Amount:   challenge.StakeAmount,
		Contract: challenge.ContractAddress,
	})
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	uc := &model.UserChallenge{
		UserID:        userID,
		ChallengeID:   challengeID,
		StartDate:     now,
		EndDate:       now.AddDate(0, 0, challenge.DurationDays),
		StakedAmount:  challenge.StakeAmount,
		StakeTxHash:   txHash,
		WalletAddress: wallet,
		Status:        model.UserChallengeActive,
	}
	if err := s.UserChallengeRepo.Create(uc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, invalidState("already joined this challenge")
		}
		return nil, err
	}
	uc.Challenge = challenge

	if user.WalletAddress == "" {
		user.WalletAddress = wallet
		if err := s.UserRepo.Update(user); err != nil {
			logger.Log.Warn("Failed to save wallet on profile", zap.Uint("userId", userID), zap.Error(err))
		}
	}

	s.recordTransaction(&model.Transaction{
		UserID:          userID,
		ChallengeID:     util.UintPtr(challengeID),
		UserChallengeID: util.UintPtr(uc.ID),
		TransactionType: model.TransactionStake,
		Amount:          challenge.StakeAmount,
		Currency:        s.TokenSymbol,
		TxHash:          txHash,
		Status:          model.TransactionConfirmed,
	})
	s.notify(userID, model.NotificationChallengeJoined, "Challenge joined",
		fmt.Sprintf("You staked %s %s on \"%s\". Practice %d minutes a day for %d days.",
			challenge.StakeAmount.String(), s.TokenSymbol, challenge.Title, challenge.DailyRequirement, challenge.DurationDays),
		map[string]interface{}{"challengeId": challengeID},
	)

	logger.Log.Info("Challenge joined",
		zap.Uint("userId", userID),
		zap.Uint("challengeId", challengeID),
		zap.String("tx", txHash),
	)
	return uc, nil
}

// RecordProgress adds practice minutes to today's row. Streak and progress
// are recomputed only when the day first becomes completed.
func (s *ChallengeService) RecordProgress(userID, challengeID uint, minutes int) (*ProgressResult, error) {
	if minutes <= 0 || minutes > 24*60 {
		return nil, fmt.Errorf("%w: minutes must be between 1 and 1440", util.ErrValidationFailed)
	}

	uc, err := s.findEnrollment(userID, challengeID)
	if err != nil {
		return nil, err
	}
	if uc.Status.IsTerminal() {
		return nil, invalidState("challenge is %s", uc.Status)
	}
	now := s.Clock.Now()
	if now.After(uc.EndDate) {
		return nil, invalidState("challenge period has ended")
	}
	requirement := uc.Challenge.DailyRequirement

	today := util.DayKey(now)
	row, err := s.ProgressRepo.FindByDay(uc.ID, today)
	switch {
	case repository.IsNotFound(err):
		row = &model.DailyProgress{
			UserChallengeID:  uc.ID,
			Day:              today,
			MinutesPracticed: minutes,
		}
		err = s.ProgressRepo.Create(row)
		if errors.Is(err, repository.ErrDuplicate) {
			// Another request created the row first; merge into it.
			row, err = s.ProgressRepo.FindByDay(uc.ID, today)
			if err == nil {
				err = s.ProgressRepo.AddMinutes(row, minutes)
			}
		}
	case err == nil:
		err = s.ProgressRepo.AddMinutes(row, minutes)
	}
	if err != nil {
		return nil, err
	}

	dayCompleted := false
	if !row.Completed && row.MinutesPracticed >= requirement {
		dayCompleted, err = s.ProgressRepo.MarkCompleted(row.ID)
		if err != nil {
			return nil, err
		}
		row.Completed = true
	}

	if dayCompleted {
		if err := s.refreshStreak(uc, now); err != nil {
			return nil, err
		}
	}

	return &ProgressResult{UserChallenge: uc, Today: row, DayCompleted: dayCompleted}, nil
}

// refreshStreak recomputes streak and progress from the stored history.
func (s *ChallengeService) refreshStreak(uc *model.UserChallenge, now time.Time) error {
	rows, err := s.ProgressRepo.ListByUserChallenge(uc.ID)
	if err != nil {
		return err
	}
	current := EvaluateStreak(rows, now)
	longest := uc.LongestStreak
	if current > longest {
		longest = current
	}
	progress := ProgressPercentage(CompletedDays(rows), uc.Challenge.DurationDays)
	if progress < uc.ProgressPercentage {
		progress = uc.ProgressPercentage
	}

	if err := s.UserChallengeRepo.UpdateStreak(uc.ID, current, longest, progress); err != nil {
		return err
	}
	uc.CurrentStreak = current
	uc.LongestStreak = longest
	uc.ProgressPercentage = progress
	return nil
}

// Complete settles an ACTIVE enrollment that reached the completion threshold.
// If the payout fails the row stays ACTIVE and the error is returned.
func (s *ChallengeService) Complete(ctx context.Context, userID, challengeID uint) (*CompletionResult, error) {
	uc, err := s.findEnrollment(userID, challengeID)
	if err != nil {
		return nil, err
	}
	if uc.Status.IsTerminal() {
		return nil, invalidState("challenge is %s", uc.Status)
	}

	completed, err := s.ProgressRepo.CountCompletedDays(uc.ID)
	if err != nil {
		return nil, err
	}
	duration := uc.Challenge.DurationDays
	if !MeetsCompletionThreshold(completed, duration) {
		return nil, invalidState("%d of %d days completed, %d%% required",
			completed, duration, util.CompletionThresholdPercent)
	}

	if s.Distributor == nil {
		return nil, util.ErrLedgerDisabled
	}
	settlement, err := s.Distributor.Distribute(ctx, s.payoutFor(uc))
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	progress := ProgressPercentage(completed, duration)
	ok, err := s.UserChallengeRepo.Transition(uc.ID, model.UserChallengeActive, model.UserChallengeCompleted, map[string]interface{}{
		"completion_tx_hash":  settlement.TxHash,
		"reward_amount":       settlement.Reward,
		"completed_at":        now,
		"progress_percentage": progress,
	})
	if err != nil {
		// The row stays ACTIVE; storing the hash lets the next call find the payout.
		if _, recErr := s.UserChallengeRepo.RecordSettlement(uc.ID, uc.CompletionTxHash, settlement.TxHash, settlement.Reward, now); recErr != nil {
			err = fmt.Errorf("%w (recording payout hash: %v)", err, recErr)
		}
		return nil, s.unpersistedPayout(uc, settlement, err)
	}
	if !ok {
		// A concurrent sweep completed the row; still keep the payout proof.
		if _, err := s.UserChallengeRepo.RecordSettlement(uc.ID, uc.CompletionTxHash, settlement.TxHash, settlement.Reward, now); err != nil {
			return nil, s.unpersistedPayout(uc, settlement, err)
		}
	}

	uc.Status = model.UserChallengeCompleted
	uc.CompletionTxHash = settlement.TxHash
	uc.RewardAmount = settlement.Reward
	uc.CompletedAt = &now
	uc.ProgressPercentage = progress

	s.afterSettlement(uc, settlement)
	s.notify(userID, model.NotificationChallengeCompleted, "Challenge completed",
		fmt.Sprintf("You finished \"%s\" and received %s %s.", uc.Challenge.Title, settlement.Reward.String(), s.TokenSymbol),
		map[string]interface{}{"challengeId": challengeID, "txHash": settlement.TxHash},
	)
	if s.Achievements != nil {
		s.Achievements.EvaluateQuietly(userID)
	}

	return &CompletionResult{UserChallenge: uc, Settlement: settlement}, nil
}

// ClaimReward pays out a COMPLETED enrollment that has no payout yet, such as
// one completed by the sweep. Claiming a settled enrollment returns the
// existing settlement.
func (s *ChallengeService) ClaimReward(ctx context.Context, userID, challengeID uint) (*CompletionResult, error) {
	uc, err := s.findEnrollment(userID, challengeID)
	if err != nil {
		return nil, err
	}
	if uc.Status != model.UserChallengeCompleted {
		return nil, invalidState("only completed challenges can be claimed, this one is %s", uc.Status)
	}
	if s.Distributor == nil {
		return nil, util.ErrLedgerDisabled
	}

	settlement, err := s.Distributor.Distribute(ctx, s.payoutFor(uc))
	if err != nil {
		return nil, err
	}
	if settlement.AlreadySettled && uc.RewardSettled() && settlement.TxHash == uc.CompletionTxHash {
		return &CompletionResult{UserChallenge: uc, Settlement: settlement}, nil
	}

	now := s.Clock.Now()
	if _, err := s.UserChallengeRepo.RecordSettlement(uc.ID, uc.CompletionTxHash, settlement.TxHash, settlement.Reward, now); err != nil {
		return nil, s.unpersistedPayout(uc, settlement, err)
	}
	uc.CompletionTxHash = settlement.TxHash
	uc.RewardAmount = settlement.Reward
	uc.CompletedAt = &now

	s.afterSettlement(uc, settlement)
	return &CompletionResult{UserChallenge: uc, Settlement: settlement}, nil
}

// unpersistedPayout reports a payout that went out on chain but whose row
// update failed. The hash is the only proof of payment at this point.
func (s *ChallengeService) unpersistedPayout(uc *model.UserChallenge, settlement *Settlement, cause error) error {
	err := fmt.Errorf("payout %s for user_challenge %d not persisted: %w", settlement.TxHash, uc.ID, cause)
	logger.Log.Error("Payout sent but not persisted",
		zap.Uint("userChallengeId", uc.ID),
		zap.String("tx", settlement.TxHash),
		zap.String("reward", settlement.Reward.String()),
		zap.Error(cause),
	)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("tx_hash", settlement.TxHash)
		scope.SetExtra("user_challenge_id", uc.ID)
		sentry.CaptureException(err)
	})
	return err
}

func (s *ChallengeService) payoutFor(uc *model.UserChallenge) Payout {
	return Payout{
		UserChallengeID: uc.ID,
		ChallengeID:     uc.ChallengeID,
		Wallet:          uc.WalletAddress,
		Stake:           uc.StakedAmount,
		YieldPercentage: uc.Challenge.YieldPercentage,
		Contract:        uc.Challenge.ContractAddress,
		PriorTxHash:     uc.CompletionTxHash,
	}
}

func (s *ChallengeService) afterSettlement(uc *model.UserChallenge, settlement *Settlement) {
	s.recordTransaction(&model.Transaction{
		UserID:          uc.UserID,
		ChallengeID:     util.UintPtr(uc.ChallengeID),
		UserChallengeID: util.UintPtr(uc.ID),
		TransactionType: model.TransactionReward,
		Amount:          settlement.Reward,
		Currency:        s.TokenSymbol,
		TxHash:          settlement.TxHash,
		Status:          model.TransactionConfirmed,
	})
	s.notify(uc.UserID, model.NotificationRewardPaid, "Reward sent",
		fmt.Sprintf("%s %s was sent to %s.", settlement.Reward.String(), s.TokenSymbol, uc.WalletAddress),
		map[string]interface{}{"challengeId": uc.ChallengeID, "txHash": settlement.TxHash},
	)
}

// Exit withdraws from a no-loss challenge. Progress is frozen at its current
// value. No stake is returned on chain here.
func (s *ChallengeService) Exit(userID, challengeID uint) (*model.UserChallenge, error) {
	uc, err := s.findEnrollment(userID, challengeID)
	if err != nil {
		return nil, err
	}
	if uc.Status.IsTerminal() {
		return nil, invalidState("challenge is %s", uc.Status)
	}
	if uc.Challenge.IsHardcore {
		return nil, invalidState("hardcore challenges cannot be exited")
	}

	completed, err := s.ProgressRepo.CountCompletedDays(uc.ID)
	if err != nil {
		return nil, err
	}
	progress := ProgressPercentage(completed, uc.Challenge.DurationDays)
	if progress < uc.ProgressPercentage {
		progress = uc.ProgressPercentage
	}

	ok, err := s.UserChallengeRepo.Transition(uc.ID, model.UserChallengeActive, model.UserChallengeWithdrawn, map[string]interface{}{
		"progress_percentage": progress,
	})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, invalidState("challenge is no longer active")
	}
	uc.Status = model.UserChallengeWithdrawn
	uc.ProgressPercentage = progress

	s.notify(userID, model.NotificationChallengeWithdrawn, "Challenge exited",
		fmt.Sprintf("You left \"%s\" at %d%% progress. Your stake return will be processed manually.", uc.Challenge.Title, progress),
		map[string]interface{}{"challengeId": challengeID},
	)
	return uc, nil
}

func (s *ChallengeService) ProgressHistory(userID, challengeID uint) ([]model.DailyProgress, error) {
	uc, err := s.findEnrollment(userID, challengeID)
	if err != nil {
		return nil, err
	}
	return s.ProgressRepo.ListByUserChallenge(uc.ID)
}

func (s *ChallengeService) Participation(userID, challengeID uint) (*model.UserChallenge, error) {
	return s.findEnrollment(userID, challengeID)
}

func (s *ChallengeService) MyChallenges(userID uint, status model.UserChallengeStatus) ([]model.UserChallenge, error) {
	return s.UserChallengeRepo.ListByUser(userID, status)
}

func (s *ChallengeService) Transactions(userID uint, txType model.TransactionType, page, limit int) (*util.PageResponse, error) {
	list, total, err := s.TransactionRepo.ListByUser(userID, txType, page, limit)
	if err != nil {
		return nil, err
	}
	return &util.PageResponse{List: list, Total: total, Page: page, Limit: limit}, nil
}

func (s *ChallengeService) recordTransaction(tx *model.Transaction) {
	if err := s.TransactionRepo.Create(tx); err != nil {
		logger.Log.Error("Failed to record ledger transaction",
			zap.String("type", string(tx.TransactionType)),
			zap.String("tx", tx.TxHash),
			zap.Error(err),
		)
	}
}

func (s *ChallengeService) notify(userID uint, typ model.NotificationType, title, message string, data map[string]interface{}) {
	if s.Notifications != nil {
		s.Notifications.Notify(userID, typ, title, message, data)
	}
}
