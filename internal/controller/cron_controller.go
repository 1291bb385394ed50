package controller

import (
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type CronController struct {
	SweepService *service.SweepService
}

func NewCronController(sweepService *service.SweepService) *CronController {
	return &CronController{SweepService: sweepService}
}

// Sweep godoc
// @Summary Run the daily enrollment sweep
// @Description Settles ended enrollments and sends reminders. Requires the cron secret as a bearer token.
// @Tags Cron
// @Produce json
// @Param Authorization header string true "Bearer <cron secret>"
// @Success 200 {object} util.Response{data=service.SweepReport}
// @Failure 401 {object} util.Response
// @Router /api/cron/sweep [post]
func (c *CronController) Sweep(ctx *gin.Context) {
	report, err := c.SweepService.Run(ctx.Request.Context())
	if err != nil {
		util.RespondError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
