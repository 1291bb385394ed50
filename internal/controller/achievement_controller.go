package controller

import (
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	AchievementService *service.AchievementService
}

func NewAchievementController(achievementService *service.AchievementService) *AchievementController {
	return &AchievementController{AchievementService: achievementService}
}

// List godoc
// @Summary Unlocked achievements
// @Tags Achievements
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response{data=[]model.Achievement}
// @Router /api/achievements [get]
func (c *AchievementController) List(ctx *gin.Context) {
	achievements, err := c.AchievementService.List(currentUserID(ctx))
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, achievements)
}
