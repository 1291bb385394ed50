package controller

import (
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type VoiceController struct {
	VoiceService *service.VoiceService
}

func NewVoiceController(voiceService *service.VoiceService) *VoiceController {
	return &VoiceController{VoiceService: voiceService}
}

// StartCall godoc
// @Summary Start a conversational voice practice call
// @Tags Voice
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.VoiceCallRequest true "Call parameters"
// @Success 201 {object} util.Response{data=model.VoiceSession}
// @Failure 502 {object} util.Response "Voice provider error"
// @Router /api/voice/calls [post]
func (c *VoiceController) StartCall(ctx *gin.Context) {
	var req service.VoiceCallRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	session, err := c.VoiceService.StartCall(ctx.Request.Context(), currentUserID(ctx), &req)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Created(ctx, session)
}

// List godoc
// @Summary Recent voice practice calls
// @Tags Voice
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Max rows" default(20)
// @Success 200 {object} util.Response{data=[]model.VoiceSession}
// @Router /api/voice/calls [get]
func (c *VoiceController) List(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	list, err := c.VoiceService.List(currentUserID(ctx), limit)
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}
