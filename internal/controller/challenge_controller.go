package controller

import (
	"context"
	"lingo_stake_backend/internal/model"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/internal/util"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

type ChallengeController struct {
	ChallengeService *service.ChallengeService
	// PayoutTimeout bounds complete and claim requests, which wait for the chain.
	PayoutTimeout time.Duration
}

func NewChallengeController(challengeService *service.ChallengeService, payoutTimeout time.Duration) *ChallengeController {
	return &ChallengeController{
		ChallengeService: challengeService,
		PayoutTimeout:    payoutTimeout,
	}
}

func (c *ChallengeController) payoutContext(ctx *gin.Context) (context.Context, context.CancelFunc) {
	if c.PayoutTimeout <= 0 {
		return context.WithCancel(ctx.Request.Context())
	}
	return context.WithTimeout(ctx.Request.Context(), c.PayoutTimeout)
}

// Create godoc
// @Summary Create a challenge
// @Description Creates a challenge with a fresh invite code. stakeAmount is a decimal string in token units.
// @Tags Challenges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.CreateChallengeRequest true "Challenge terms"
// @Success 201 {object} util.Response{data=model.Challenge}
// @Failure 400 {object} util.Response
// @Router /api/challenges [post]
func (c *ChallengeController) Create(ctx *gin.Context) {
	var req service.CreateChallengeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.Create(currentUserID(ctx), &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, challenge)
}

// List godoc
// @Summary List active challenges
// @Tags Challenges
// @Produce json
// @Param language query string false "Language code"
// @Param level query string false "Proficiency level"
// @Param hardcore query bool false "Only hardcore (true) or only no-loss (false)"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/challenges [get]
func (c *ChallengeController) List(ctx *gin.Context) {
	page, limit := pageParams(ctx)
	filter := repository.ChallengeFilter{
		LanguageCode:     ctx.Query("language"),
		ProficiencyLevel: ctx.Query("level"),
		ActiveOnly:       true,
	}
	if raw := ctx.Query("hardcore"); raw != "" {
		hardcore, err := strconv.ParseBool(raw)
		if err != nil {
			util.BadRequest(ctx, "hardcore must be true or false")
			return
		}
		filter.Hardcore = &hardcore
	}

	res, err := c.ChallengeService.List(filter, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Mine godoc
// @Summary Challenges created by the caller, including closed ones
// @Tags Challenges
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/challenges/mine [get]
func (c *ChallengeController) Mine(ctx *gin.Context) {
	page, limit := pageParams(ctx)
	res, err := c.ChallengeService.List(repository.ChallengeFilter{CreatorID: currentUserID(ctx)}, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Get godoc
// @Summary Challenge detail with participant count and yield preview
// @Tags Challenges
// @Produce json
// @Param id path int true "Challenge ID"
// @Success 200 {object} util.Response{data=service.ChallengeDetail}
// @Failure 404 {object} util.Response
// @Router /api/challenges/{id} [get]
func (c *ChallengeController) Get(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	detail, err := c.ChallengeService.Get(id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// GetByInviteCode godoc
// @Summary Resolve an invite code
// @Tags Challenges
// @Produce json
// @Param code path string true "Invite code"
// @Success 200 {object} util.Response{data=service.ChallengeDetail}
// @Failure 404 {object} util.Response
// @Router /api/challenges/invite/{code} [get]
func (c *ChallengeController) GetByInviteCode(ctx *gin.Context) {
	detail, err := c.ChallengeService.GetByInviteCode(ctx.Param("code"))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, detail)
}

// Update godoc
// @Summary Update challenge terms
// @Description Only the creator may edit, and only while nobody has joined.
// @Tags Challenges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Param body body service.CreateChallengeRequest true "Challenge terms"
// @Success 200 {object} util.Response{data=model.Challenge}
// @Failure 403 {object} util.Response
// @Failure 409 {object} util.Response
// @Router /api/challenges/{id} [put]
func (c *ChallengeController) Update(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.CreateChallengeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.Update(currentUserID(ctx), id, &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, challenge)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive godoc
// @Summary Open or close a challenge for new participants
// @Tags Challenges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Param body body setActiveRequest true "Active flag"
// @Success 200 {object} util.Response{data=model.Challenge}
// @Router /api/challenges/{id}/active [put]
func (c *ChallengeController) SetActive(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req setActiveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.SetActive(currentUserID(ctx), id, *req.Active)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, challenge)
}

// LinkContract godoc
// @Summary Attach the deployed staking contract to a challenge
// @Tags Challenges
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Param body body service.LinkContractRequest true "Contract address"
// @Success 200 {object} util.Response{data=model.Challenge}
// @Failure 409 {object} util.Response "Contract already linked"
// @Router /api/challenges/{id}/contract [post]
func (c *ChallengeController) LinkContract(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.LinkContractRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	challenge, err := c.ChallengeService.LinkContract(currentUserID(ctx), id, &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, challenge)
}

// YieldPreview godoc
// @Summary Preview the yield of a stake
// @Description Display only. Invalid or non-positive inputs return zeros.
// @Tags Challenges
// @Produce json
// @Param stake query number true "Stake amount"
// @Param yield query number true "Yield percentage"
// @Param days query int true "Duration in days"
// @Success 200 {object} util.Response{data=service.YieldQuote}
// @Router /api/challenges/yield-preview [get]
func (c *ChallengeController) YieldPreview(ctx *gin.Context) {
	stake, _ := strconv.ParseFloat(ctx.Query("stake"), 64)
	yield, _ := strconv.ParseFloat(ctx.Query("yield"), 64)
	days, _ := strconv.Atoi(ctx.Query("days"))
	util.Success(ctx, service.CalculateYield(stake, yield, days))
}

// Join godoc
// @Summary Join a challenge with a verified on-chain stake
// @Tags Participation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Param body body service.JoinRequest true "Stake transaction"
// @Success 201 {object} util.Response{data=model.UserChallenge}
// @Failure 409 {object} util.Response "Already joined or challenge full"
// @Failure 422 {object} util.Response "Stake could not be verified"
// @Router /api/challenges/{id}/join [post]
func (c *ChallengeController) Join(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.JoinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	uc, err := c.ChallengeService.Join(ctx.Request.Context(), currentUserID(ctx), id, &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, uc)
}

// RecordProgress godoc
// @Summary Log practice minutes for today
// @Tags Participation
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Param body body service.ProgressRequest true "Minutes practiced"
// @Success 200 {object} util.Response{data=service.ProgressResult}
// @Router /api/challenges/{id}/progress [post]
func (c *ChallengeController) RecordProgress(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req service.ProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	res, err := c.ChallengeService.RecordProgress(currentUserID(ctx), id, req.Minutes)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// ProgressHistory godoc
// @Summary Daily progress rows of the caller's enrollment
// @Tags Participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Success 200 {object} util.Response{data=[]model.DailyProgress}
// @Router /api/challenges/{id}/progress [get]
func (c *ChallengeController) ProgressHistory(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	rows, err := c.ChallengeService.ProgressHistory(currentUserID(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, rows)
}

// Participation godoc
// @Summary The caller's enrollment in a challenge
// @Tags Participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Success 200 {object} util.Response{data=model.UserChallenge}
// @Failure 404 {object} util.Response
// @Router /api/challenges/{id}/participation [get]
func (c *ChallengeController) Participation(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	uc, err := c.ChallengeService.Participation(currentUserID(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, uc)
}

// Complete godoc
// @Summary Complete a challenge and receive the payout
// @Description Requires the completion threshold. The payout is retried and the enrollment stays ACTIVE if it fails.
// @Tags Participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Failure 409 {object} util.Response
// @Failure 502 {object} util.Response "Payout failed"
// @Failure 503 {object} util.Response "Contract underfunded or ledger disabled"
// @Router /api/challenges/{id}/complete [post]
func (c *ChallengeController) Complete(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	pctx, cancel := c.payoutContext(ctx)
	defer cancel()

	res, err := c.ChallengeService.Complete(pctx, currentUserID(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Claim godoc
// @Summary Claim the reward of a completed challenge
// @Description Idempotent: an already paid enrollment returns its existing settlement.
// @Tags Participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Router /api/challenges/{id}/claim [post]
func (c *ChallengeController) Claim(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	pctx, cancel := c.payoutContext(ctx)
	defer cancel()

	res, err := c.ChallengeService.ClaimReward(pctx, currentUserID(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}

// Exit godoc
// @Summary Leave a no-loss challenge
// @Tags Participation
// @Produce json
// @Security BearerAuth
// @Param id path int true "Challenge ID"
// @Success 200 {object} util.Response{data=model.UserChallenge}
// @Failure 409 {object} util.Response "Hardcore challenges cannot be exited"
// @Router /api/challenges/{id}/exit [post]
func (c *ChallengeController) Exit(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	uc, err := c.ChallengeService.Exit(currentUserID(ctx), id)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, uc)
}

// MyChallenges godoc
// @Summary The caller's enrollments
// @Tags Participation
// @Produce json
// @Security BearerAuth
// @Param status query string false "ACTIVE, COMPLETED, FAILED or WITHDRAWN"
// @Success 200 {object} util.Response{data=[]model.UserChallenge}
// @Router /api/my/challenges [get]
func (c *ChallengeController) MyChallenges(ctx *gin.Context) {
	status := model.UserChallengeStatus(ctx.Query("status"))
	switch status {
	case "", model.UserChallengeActive, model.UserChallengeCompleted, model.UserChallengeFailed, model.UserChallengeWithdrawn:
	default:
		util.BadRequest(ctx, "unknown status")
		return
	}

	list, err := c.ChallengeService.MyChallenges(currentUserID(ctx), status)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// Transactions godoc
// @Summary The caller's ledger transactions
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param type query string false "STAKE, REWARD or CONTRACT_REGISTRATION"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} util.Response{data=util.PageResponse}
// @Router /api/transactions [get]
func (c *ChallengeController) Transactions(ctx *gin.Context) {
	page, limit := pageParams(ctx)
	txType := model.TransactionType(ctx.Query("type"))
	switch txType {
	case "", model.TransactionStake, model.TransactionReward, model.TransactionContractRegistration:
	default:
		util.BadRequest(ctx, "unknown transaction type")
		return
	}

	res, err := c.ChallengeService.Transactions(currentUserID(ctx), txType, page, limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, res)
}
