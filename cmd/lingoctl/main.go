package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"

	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/pkg/database"
	"lingo_stake_backend/pkg/logger"
)

type Context struct {
	Config *config.Config
}

func (c *Context) openDB() (*gorm.DB, error) {
	return database.InitDB(&c.Config.Database, false)
}

type SweepCmd struct{}

func (cmd *SweepCmd) Run(c *Context) error {
	db, err := c.openDB()
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	userChallenges := repository.NewUserChallengeRepository(db)
	notifications := service.NewNotificationService(
		repository.NewNotificationRepository(db),
		repository.NewUserRepository(db),
		service.NewEmailSender(&c.Config.Email),
	)
	achievements := service.NewAchievementService(repository.NewAchievementRepository(db), userChallenges, notifications, clock)
	sweep := service.NewSweepService(userChallenges, repository.NewDailyProgressRepository(db), notifications, achievements, clock)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := sweep.Run(ctx)
	if report != nil {
		printJSON(report)
	}
	return err
}

type MigrateCmd struct{}

func (cmd *MigrateCmd) Run(c *Context) error {
	db, err := c.openDB()
	if err != nil {
		return err
	}
	return database.Migrate(db)
}

type YieldCmd struct {
	Stake float64 `arg:"" help:"Stake amount in token units."`
	Yield float64 `arg:"" help:"Yield percentage."`
	Days  int     `arg:"" help:"Challenge duration in days."`
}

func (cmd *YieldCmd) Run(_ *Context) error {
	printJSON(service.CalculateYield(cmd.Stake, cmd.Yield, cmd.Days))
	return nil
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

var CLI struct {
	Version   kong.VersionFlag
	ConfigDir string `help:"Directory holding config.yaml." type:"path" default:"configs"`

	Sweep   SweepCmd   `cmd:"" help:"Settle ended enrollments and send reminders once."`
	Migrate MigrateCmd `cmd:"" help:"Create or update database tables."`
	Yield   YieldCmd   `cmd:"" help:"Preview the yield of a stake."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("lingoctl"),
		kong.Description("Operations tool for the LingoStake backend"),
		kong.UsageOnError(),
		kong.Vars{"version": "v1.0.0"},
	)

	cfg, err := config.LoadConfig(CLI.ConfigDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	if err := ctx.Run(&Context{Config: cfg}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
