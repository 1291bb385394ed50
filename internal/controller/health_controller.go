package controller

import (
	"context"
	"lingo_stake_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// Pinger is satisfied by the EVM ledger.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthController struct {
	DB     *gorm.DB
	Redis  *redis.Client
	Ledger Pinger
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, ledger Pinger) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Ledger: ledger}
}

// HealthCheck godoc
// @Summary Health check
// @Description Reports the database, redis and ledger state. Only the database is required for 200.
// @Tags System
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pctx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()

	var dbErr error
	redisState, ledgerState := "disabled", "disabled"

	var g errgroup.Group
	g.Go(func() error {
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(pctx)
		}
		dbErr = err
		return nil
	})
	if c.Redis != nil {
		g.Go(func() error {
			redisState = status(c.Redis.Ping(pctx).Err())
			return nil
		})
	}
	if c.Ledger != nil {
		g.Go(func() error {
			ledgerState = status(c.Ledger.Ping(pctx))
			return nil
		})
	}
	_ = g.Wait()

	components := gin.H{"database": "up", "redis": redisState, "ledger": ledgerState}
	if dbErr != nil {
		components["database"] = "down"
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "Database unavailable",
			Data:    gin.H{"status": "degraded", "components": components},
		})
		return
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}

func status(err error) string {
	if err != nil {
		return "down"
	}
	return "up"
}
