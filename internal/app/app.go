package app

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"quiz_backend/internal/config"
	"quiz_backend/internal/controller"
	"quiz_backend/internal/event"
	"quiz_backend/internal/repository"
	"quiz_backend/internal/service"
	"quiz_backend/internal/util"
	"quiz_backend/pkg/database"
	"quiz_backend/pkg/logger"
	"quiz_backend/pkg/monitoring"
	"quiz_backend/pkg/security"
	"quiz_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config    *config.Config
	Router    *gin.Engine
	DB        *gorm.DB
	Redis     *redis.Client
	Publisher *event.Publisher

	services        *services
	origins         *security.OriginPolicy
	tracer          *sdktrace.TracerProvider
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	user        *repository.UserRepository
	quiz        *repository.QuizRepository
	attempt     *repository.AttemptRepository
	progress    *repository.ProgressRepository
	accessCache *repository.AccessCacheRepository
}

type services struct {
	auth     *service.AuthService
	content  *service.ContentService
	progress *service.ProgressService
	attempt  *service.AttemptService
}

type controllers struct {
	auth     *controller.AuthController
	content  *controller.ContentController
	attempt  *controller.AttemptController
	progress *controller.ProgressController
	health   *controller.HealthController
}

// RegisterConfigCallback adds a function run on every config reload.
func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, callback)
}

// ApplyConfig hands a reloaded config to the registered callbacks.
func (a *App) ApplyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, cb := range callbacks {
		cb(cfg)
	}
	logger.Log.Info("Config reloaded")
}

func (a *App) initRepositories(db *gorm.DB, rdb *redis.Client, cfg *config.Config) *repositories {
	repos := &repositories{
		user:     repository.NewUserRepository(db),
		quiz:     repository.NewQuizRepository(db),
		attempt:  repository.NewAttemptRepository(db),
		progress: repository.NewProgressRepository(db),
	}
	if rdb != nil {
		repos.accessCache = repository.NewAccessCacheRepository(rdb, cfg.Redis.CacheTTL())
	}
	return repos
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB) *services {
	s := &services{}

	// nil interfaces, not typed nil pointers, when the backends are off
	var cache service.AccessCache
	if repos.accessCache != nil {
		cache = repos.accessCache
	}
	var events service.EventPublisher
	if a.Publisher != nil {
		events = a.Publisher
	}

	s.auth = service.NewAuthService(repos.user, cfg)
	s.progress = service.NewProgressService(db, repos.quiz, repos.attempt, repos.progress, cache)
	s.content = service.NewContentService(db, repos.quiz, s.progress)
	s.attempt = service.NewAttemptService(db, repos.quiz, repos.attempt, repos.progress, s.progress, events)
	s.attempt.SetEnforceAccess(cfg.Quiz.EnforceAccess)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth, a.Config.Server.Mode == gin.ReleaseMode),
		content:  controller.NewContentController(s.content),
		attempt:  controller.NewAttemptController(s.attempt),
		progress: controller.NewProgressController(s.progress),
		health:   controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(a.origins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerReloadHooks() {
	a.RegisterConfigCallback(func(cfg *config.Config) {
		logger.SetMode(cfg.Server.Mode)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.services.attempt.SetEnforceAccess(cfg.Quiz.EnforceAccess)
	})
	a.RegisterConfigCallback(func(cfg *config.Config) {
		a.origins.Set(cfg.CORS.AllowedOrigins)
	})
}

// New wires repositories, services and routes over already opened backends.
// rdb and publisher may be nil.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, publisher *event.Publisher) *App {
	app := &App{
		Config:    cfg,
		DB:        db,
		Redis:     rdb,
		Publisher: publisher,
		origins:   security.NewOriginPolicy(cfg.CORS.AllowedOrigins),
	}

	if err := util.RegisterBindingValidations(); err != nil {
		logger.Log.Error("Failed to register validations", zap.Error(err))
	}

	repos := app.initRepositories(db, rdb, cfg)
	app.services = app.initServices(repos, cfg, db)
	controllers := app.initControllers(app.services, db)
	app.registerReloadHooks()

	monitoring.Init()

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode != gin.ReleaseMode {
		router.Use(gin.Logger())
	}
	app.Router = router

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, cfg)

	return app
}

// NewApp opens every backend named by cfg and builds the App. Only the
// database is mandatory; redis and rabbitmq failures disable their features.
func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg.Server.Mode, cfg.Log.File)
	gin.SetMode(cfg.Server.Mode)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	if cfg.ForceMigrate || cfg.Server.Mode != gin.ReleaseMode {
		if err := database.Migrate(db); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
	}

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = database.InitRedis(&cfg.Redis)
		if err != nil {
			logger.Log.Warn("Redis unavailable, access cache disabled", zap.Error(err))
			rdb = nil
		}
	}

	var publisher *event.Publisher
	if cfg.RabbitMQ.URL != "" {
		publisher, err = event.NewPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Log.Warn("RabbitMQ unavailable, events disabled", zap.Error(err))
			publisher = nil
		}
	}

	app := New(cfg, db, rdb, publisher)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("quiz-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
		} else {
			app.tracer = tp
		}
	}

	return app
}

// PromoteAdmin grants the admin role to the account with email.
func (a *App) PromoteAdmin(ctx context.Context, email string) error {
	return a.services.auth.PromoteToAdmin(ctx, email)
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close(ctx)
	logger.Log.Info("Server exiting")
}

// Close releases the backends opened by NewApp.
func (a *App) Close(ctx context.Context) {
	if a.Publisher != nil {
		a.Publisher.Close()
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
