package app

import (
	"context"
	"lingo_stake_backend/internal/config"
	"lingo_stake_backend/internal/controller"
	"lingo_stake_backend/internal/repository"
	"lingo_stake_backend/internal/service"
	"lingo_stake_backend/pkg/database"
	"lingo_stake_backend/pkg/logger"
	"lingo_stake_backend/pkg/monitoring"
	"lingo_stake_backend/pkg/retry"
	"lingo_stake_backend/pkg/security"
	"lingo_stake_backend/pkg/tracing"
	"lingo_stake_backend/pkg/web3"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/jonboulle/clockwork"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
	// Ledger is nil when web3 is disabled.
	Ledger *web3.EVMLedger
	Sweep  *service.SweepService

	services        *services
	tracer          *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user          *repository.UserRepository
	challenge     *repository.ChallengeRepository
	userChallenge *repository.UserChallengeRepository
	progress      *repository.DailyProgressRepository
	transaction   *repository.TransactionRepository
	notification  *repository.NotificationRepository
	achievement   *repository.AchievementRepository
	conversation  *repository.ConversationRepository
	practice      *repository.PracticeRepository
	questionCache *repository.QuestionCacheRepository
}

type services struct {
	auth         *service.AuthService
	user         *service.UserService
	storage      *service.StorageService
	notification *service.NotificationService
	achievement  *service.AchievementService
	challenge    *service.ChallengeService
	sweep        *service.SweepService
	ai           *service.AIService
	tutor        *service.TutorService
	speech       *service.SpeechService
	voice        *service.VoiceService
}

type controllers struct {
	auth         *controller.AuthController
	user         *controller.UserController
	challenge    *controller.ChallengeController
	notification *controller.NotificationController
	achievement  *controller.AchievementController
	tutor        *controller.TutorController
	voice        *controller.VoiceController
	cron         *controller.CronController
	health       *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded config to every registered callback.
func (a *App) ApplyConfig(cfg *config.Config) {
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client) *repositories {
	return &repositories{
		user:          repository.NewUserRepository(db),
		challenge:     repository.NewChallengeRepository(db),
		userChallenge: repository.NewUserChallengeRepository(db),
		progress:      repository.NewDailyProgressRepository(db),
		transaction:   repository.NewTransactionRepository(db),
		notification:  repository.NewNotificationRepository(db),
		achievement:   repository.NewAchievementRepository(db),
		conversation:  repository.NewConversationRepository(db),
		practice:      repository.NewPracticeRepository(db),
		questionCache: repository.NewQuestionCacheRepository(rdb),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, ledger web3.Ledger) *services {
	s := &services{}
	clock := clockwork.NewRealClock()

	s.storage = service.NewStorageService(&cfg.Storage)
	s.auth = service.NewAuthService(repos.user, cfg, clock)
	s.user = service.NewUserService(repos.user, repos.userChallenge, repos.achievement, repos.practice, repos.notification)
	s.notification = service.NewNotificationService(repos.notification, repos.user, service.NewEmailSender(&cfg.Email))
	s.achievement = service.NewAchievementService(repos.achievement, repos.userChallenge, s.notification, clock)

	verifier := service.NewStakingVerifier(ledger, cfg.Web3.StakingContract)
	distributor := service.NewRewardDistributor(ledger, cfg.Web3.StakingContract, cfg.Web3.TokenContract, retry.ClockSleeper(clock))

	s.challenge = service.NewChallengeService(
		repos.challenge,
		repos.userChallenge,
		repos.progress,
		repos.transaction,
		repos.user,
		verifier,
		distributor,
		s.notification,
		s.achievement,
		clock,
		cfg.Web3.TokenSymbol,
		cfg.Web3.ChainName,
	)
	s.sweep = service.NewSweepService(repos.userChallenge, repos.progress, s.notification, s.achievement, clock)

	s.ai = service.NewAIService(cfg.AI)
	a.RegisterConfigCallback(func(newCfg *config.Config) {
		s.ai.UpdateConfig(newCfg.AI)
		logger.Log.Info("AI provider config reloaded", zap.String("model", newCfg.AI.Model))
	})
	s.tutor = service.NewTutorService(repos.conversation, repos.questionCache, s.ai, clock)
	s.speech = service.NewSpeechService(repos.practice, s.storage, service.NewOpenAITranscriber(cfg.OpenAI))
	s.voice = service.NewVoiceService(repos.practice, service.NewUltravoxClient(cfg.Ultravox))

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config) *controllers {
	var pinger controller.Pinger
	if a.Ledger != nil {
		pinger = a.Ledger
	}

	return &controllers{
		auth:         controller.NewAuthController(s.auth),
		user:         controller.NewUserController(s.user, s.storage),
		challenge:    controller.NewChallengeController(s.challenge, cfg.Web3.PayoutTimeout),
		notification: controller.NewNotificationController(s.notification),
		achievement:  controller.NewAchievementController(s.achievement),
		tutor:        controller.NewTutorController(s.tutor, s.speech),
		voice:        controller.NewVoiceController(s.voice),
		cron:         controller.NewCronController(s.sweep),
		health:       controller.NewHealthController(a.DB, a.Redis, pinger),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute, "/metrics", "/api/health", "/api/cron"))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// startBackgroundTasks runs the sweep on an interval when one is configured.
// Deployments that call the cron endpoint leave it off.
func (a *App) startBackgroundTasks(ctx context.Context) {
	interval := a.Config.Sweep.Interval
	if interval <= 0 {
		return
	}
	logger.Log.Info("Sweep ticker enabled", zap.Duration("interval", interval))

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := a.Sweep.Run(ctx); err != nil {
					logger.Log.Error("Scheduled sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// NewApp connects every backing service and builds the router. It returns an
// error instead of exiting so the CLI can reuse it.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode == "debug")
	if err != nil {
		return nil, err
	}

	if cfg.Server.Mode != "release" || cfg.ForceMigrate {
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app, nil
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}
	app.Redis = rdb

	var ledger web3.Ledger
	if cfg.Web3.Enabled {
		evm, err := web3.NewEVMLedger(context.Background(), &cfg.Web3)
		if err != nil {
			return nil, err
		}
		app.Ledger = evm
		ledger = evm
	} else {
		logger.Log.Warn("Web3 disabled, staking and payouts are unavailable")
	}

	repos := app.initRepositories(db, rdb)
	app.services = app.initServices(repos, cfg, ledger)
	app.Sweep = app.services.sweep
	controllers := app.initControllers(app.services, cfg)

	monitoring.Init()

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("lingo-stake", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return nil, err
		}
		app.tracer = tp
	}

	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app, nil
}

// Close releases connections held by the app.
func (a *App) Close() {
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Ledger != nil {
		a.Ledger.Close()
	}
	if a.Redis != nil {
		a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.startBackgroundTasks(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}
	logger.Log.Info("Shutting down server...")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Log.Info("Server exiting")
	return nil
}
