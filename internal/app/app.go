package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/movecraft/choreo-backend/internal/blueprint"
	"github.com/movecraft/choreo-backend/internal/composer"
	"github.com/movecraft/choreo-backend/internal/db"
	"github.com/movecraft/choreo-backend/internal/embedding"
	"github.com/movecraft/choreo-backend/internal/handlers"
	"github.com/movecraft/choreo-backend/internal/matcher"
	"github.com/movecraft/choreo-backend/internal/observability"
	"github.com/movecraft/choreo-backend/internal/platform/logger"
	"github.com/movecraft/choreo-backend/internal/repos"
	"github.com/movecraft/choreo-backend/internal/search"
	"github.com/movecraft/choreo-backend/internal/server"
	"github.com/movecraft/choreo-backend/internal/services"
)

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    Config
	Index  *search.Index

	queue        services.RenderQueue
	otelShutdown func(context.Context) error
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg := LoadConfig(log)

	otelShutdown := observability.InitOTel(context.Background(), log, observability.OtelConfig{
		ServiceName: "choreo-backend",
		Environment: os.Getenv("ENVIRONMENT"),
	})

	database, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := database.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("database automigrate: %w", err)
	}
	theDB := database.DB()

	// Repos
	moveRepo := repos.NewMoveRepo(theDB, log)
	blueprintRepo := repos.NewBlueprintRepo(theDB, log)

	// Engine
	combiner, err := embedding.NewCombiner(log, cfg.FusionWeights)
	if err != nil {
		log.Sync()
		return nil, err
	}
	corpus, err := services.NewCorpusService(log, moveRepo, combiner)
	if err != nil {
		log.Sync()
		return nil, err
	}

	var accel search.Backend
	if accelCfg, enabled := cfg.AccelConfig(log); enabled {
		backend, err := search.NewAccelBackend(log, accelCfg)
		if err != nil {
			// The engine is fully functional on CPU; a misconfigured sidecar
			// only costs speed.
			log.Warn("accelerated search backend unavailable, continuing on cpu", "error", err)
		} else {
			accel = backend
		}
	}

	index, err := search.NewIndex(log, search.IndexConfig{
		Dim: embedding.CombinedDim,
		TTL: cfg.CorpusCacheTTL,
	}, corpus, accel)
	if err != nil {
		log.Sync()
		return nil, err
	}

	moveMatcher := matcher.New(log, index)
	seqComposer := composer.New(log)

	profile := blueprint.DefaultRenderProfile()
	if cfg.RenderProfilePath != "" {
		profile, err = blueprint.LoadRenderProfile(cfg.RenderProfilePath)
		if err != nil {
			log.Warn("render profile load failed, using defaults", "path", cfg.RenderProfilePath, "error", err)
		}
	}
	assembler := blueprint.NewAssembler(log, profile)

	var queue services.RenderQueue
	if os.Getenv("REDIS_ADDR") != "" {
		queue, err = services.NewRedisRenderQueue(log)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init render queue: %w", err)
		}
	}

	choreography, err := services.NewChoreographyService(log, combiner, moveMatcher, seqComposer, assembler, blueprintRepo, queue)
	if err != nil {
		log.Sync()
		return nil, err
	}

	// Handlers and router
	router := server.NewRouter(server.RouterConfig{
		ChoreographyHandler: handlers.NewChoreographyHandler(log, choreography),
		CorpusHandler:       handlers.NewCorpusHandler(log, index, moveRepo),
		AllowOrigins:        cfg.AllowOrigins,
	})

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Index:        index,
		queue:        queue,
		otelShutdown: otelShutdown,
	}, nil
}

func (a *App) Run() error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	a.Log.Info("Server listening", "port", a.Cfg.Port)
	return a.Router.Run(":" + a.Cfg.Port)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.queue != nil {
		_ = a.queue.Close()
	}
	if a.otelShutdown != nil {
		_ = a.otelShutdown(context.Background())
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
