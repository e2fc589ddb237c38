package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SonetShaji6/quicklearn/internal/config"
	"github.com/SonetShaji6/quicklearn/internal/controller"
	"github.com/SonetShaji6/quicklearn/internal/repository"
	"github.com/SonetShaji6/quicklearn/internal/service"
	"github.com/SonetShaji6/quicklearn/pkg/configwatcher"
	"github.com/SonetShaji6/quicklearn/pkg/database"
	"github.com/SonetShaji6/quicklearn/pkg/logger"
	"github.com/SonetShaji6/quicklearn/pkg/monitoring"
	"github.com/SonetShaji6/quicklearn/pkg/security"
	"github.com/SonetShaji6/quicklearn/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
}

type repositories struct {
	user     *repository.UserRepository
	category *repository.CategoryRepository
	lesson   *repository.LessonRepository
	material *repository.MaterialRepository
	mockTest *repository.MockTestRepository
	attempt  *repository.AttemptRepository
}

type services struct {
	storage  *service.StorageService
	auth     *service.AuthService
	user     *service.UserService
	content  *service.ContentService
	mockTest *service.MockTestService
	engine   *service.SessionEngine
	outbox   *service.AttemptOutbox
}

type controllers struct {
	auth     *controller.AuthController
	admin    *controller.AdminController
	content  *controller.ContentController
	mockTest *controller.MockTestController
	health   *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:     repository.NewUserRepository(db),
		category: repository.NewCategoryRepository(db),
		lesson:   repository.NewLessonRepository(db),
		material: repository.NewMaterialRepository(db),
		mockTest: repository.NewMockTestRepository(db),
		attempt:  repository.NewAttemptRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	s := &services{}

	s.storage = service.NewStorageService(cfg)
	s.auth = service.NewAuthService(repos.user, s.storage, cfg)
	s.user = service.NewUserService(repos.user, s.storage)
	s.content = service.NewContentService(repos.category, repos.lesson, repos.material, s.storage, rdb, cfg)
	s.mockTest = service.NewMockTestService(repos.mockTest, repos.attempt)

	s.outbox = service.NewAttemptOutbox(
		rdb,
		repos.attempt,
		time.Duration(cfg.MockTest.OutboxFlushSeconds)*time.Second,
		cfg.MockTest.OutboxMaxAttempts,
	)
	committer := service.NewOutboxCommitter(repos.attempt, s.outbox)
	s.engine = service.NewSessionEngine(
		repos.mockTest,
		committer,
		service.NewRedisSnapshotStore(rdb),
		cfg.MockTest.StalePolicy,
	)

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:     controller.NewAuthController(s.auth),
		admin:    controller.NewAdminController(s.user),
		content:  controller.NewContentController(s.content),
		mockTest: controller.NewMockTestController(s.mockTest, s.engine),
		health:   controller.NewHealthController(db, rdb),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	// 落库失败的提交记录走重试队列
	go s.outbox.Run()

	// 管理员邮箱白名单支持热更新，其余配置改动需重启
	go configwatcher.WatchConfig("configs/config.yaml", func(newCfg *config.Config) {
		a.Config.Admin.Emails = newCfg.Admin.Emails
		logger.Log.Info("config reloaded", zap.Strings("adminEmails", newCfg.Admin.Emails))
	})
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db, rdb)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("quicklearn", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, repos, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	// 启动服务器
	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// 先停引擎：定时器不再触发，待提交的卷保留快照等下次启动恢复
	if a.services != nil {
		if a.services.engine != nil {
			a.services.engine.Close()
		}
		if a.services.outbox != nil {
			a.services.outbox.Stop()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	logger.Log.Sync()
	log.Println("Server exiting")
}
