package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/puzzleplan-backend/internal/data/aggregates"
	"github.com/yungbote/puzzleplan-backend/internal/data/db"
	"github.com/yungbote/puzzleplan-backend/internal/data/repos"
	domainagg "github.com/yungbote/puzzleplan-backend/internal/domain/aggregates"
	httpserver "github.com/yungbote/puzzleplan-backend/internal/http"
	httpH "github.com/yungbote/puzzleplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/puzzleplan-backend/internal/http/middleware"
	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/anthropic"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
	"github.com/yungbote/puzzleplan-backend/internal/prompts"
	"github.com/yungbote/puzzleplan-backend/internal/realtime"
	"github.com/yungbote/puzzleplan-backend/internal/realtime/bus"
	"github.com/yungbote/puzzleplan-backend/internal/services"
)

type Repos struct {
	Projects      repos.ProjectRepo
	Pieces        repos.PuzzlePieceRepo
	Conversations repos.ConversationRepo
	Messages      repos.MessageRepo
}

type Services struct {
	Auth     services.AuthService
	Projects services.ProjectService
	Pieces   services.PieceService
	Chat     services.ChatService
	Prompts  *services.PromptLibrary
}

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      *Config
	Repos    Repos
	Board    domainagg.BoardAggregate
	Services Services
	SSEHub   *realtime.SSEHub
	Bus      bus.Bus
	Metrics  *observability.Metrics
	Server   *httpserver.Server

	dbService *db.DatabaseService
	redis     goredis.UniversalClient
	otelStop  func(context.Context) error
	cancel    context.CancelFunc
}

// New wires every component from cfg. Nothing is started until Start.
func New(cfg *Config, log *logger.Logger) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	a := &App{Log: log, Cfg: cfg}

	dbs, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}
	a.dbService = dbs
	a.DB = dbs.DB()
	if cfg.DB.AutoMigrate || dbs.Driver() == db.DriverSQLite {
		if err := db.AutoMigrateAll(a.DB); err != nil {
			a.Close()
			return nil, err
		}
	}

	a.Metrics = observability.Init(cfg.Metrics.Enabled)

	a.Repos = Repos{
		Projects:      repos.NewProjectRepo(a.DB, log),
		Pieces:        repos.NewPuzzlePieceRepo(a.DB, log),
		Conversations: repos.NewConversationRepo(a.DB, log),
		Messages:      repos.NewMessageRepo(a.DB, log),
	}
	a.Board = aggregates.NewBoardAggregate(aggregates.BoardAggregateDeps{
		Base: aggregates.BaseDeps{
			DB:    a.DB,
			Log:   log,
			Hooks: aggregates.NewMetricsHooks(a.Metrics),
		},
		Projects:      a.Repos.Projects,
		Pieces:        a.Repos.Pieces,
		Conversations: a.Repos.Conversations,
		Messages:      a.Repos.Messages,
	})

	a.SSEHub = realtime.NewSSEHub(log)
	if err := a.wireBus(); err != nil {
		a.Close()
		return nil, err
	}

	if err := a.wireServices(); err != nil {
		a.Close()
		return nil, err
	}
	a.Server = httpserver.NewServer(a.routerConfig())
	return a, nil
}

func openDatabase(cfg *Config, log *logger.Logger) (*db.DatabaseService, error) {
	return db.NewDatabaseService(db.Config{
		Driver:           cfg.DB.Driver,
		PostgresHost:     cfg.DB.PostgresHost,
		PostgresPort:     cfg.DB.PostgresPort,
		PostgresUser:     cfg.DB.PostgresUser,
		PostgresPassword: cfg.DB.PostgresPassword,
		PostgresName:     cfg.DB.PostgresName,
		PostgresSSLMode:  cfg.DB.PostgresSSLMode,
		SQLitePath:       cfg.DB.SQLitePath,
		MaxOpenConns:     cfg.DB.MaxOpenConns,
		MaxIdleConns:     cfg.DB.MaxIdleConns,
		ConnMaxLifetime:  cfg.DB.ConnMaxLifetime,
	}, log)
}

// wireBus uses Redis pub/sub when REDIS_ADDR is set so every instance sees
// every board event; otherwise events stay in process.
func (a *App) wireBus() error {
	if a.Cfg.Redis.Addr == "" {
		a.Bus = bus.NewLocalBus()
		return nil
	}
	b, rdb, err := bus.NewRedisBus(a.Log, bus.RedisConfig{
		Addr:     a.Cfg.Redis.Addr,
		Password: a.Cfg.Redis.Password,
		DB:       a.Cfg.Redis.DB,
		Channel:  a.Cfg.Redis.Channel,
	})
	if err != nil {
		return fmt.Errorf("init redis bus: %w", err)
	}
	a.Bus = b
	a.redis = rdb
	return nil
}

func (a *App) wireServices() error {
	cfg := a.Cfg
	authSvc, err := services.NewAuthService(a.Log, services.AuthConfig{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		Leeway:   cfg.Auth.Leeway,
	})
	if err != nil {
		return err
	}

	llm, err := anthropic.NewClient(a.Log, anthropic.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
		MaxRetries:  cfg.LLM.MaxRetries,
		Timeout:     cfg.LLM.Timeout,
	})
	switch {
	case errors.Is(err, anthropic.ErrNotConfigured):
		a.Log.Warn("ANTHROPIC_API_KEY not set; chat is disabled")
		llm = nil
	case err != nil:
		return fmt.Errorf("init anthropic client: %w", err)
	}

	promptLib := services.NewPromptLibrary(a.Log, prompts.WithOverrides(cfg.PromptsDir, prompts.Bundled()))
	notify := services.NewBoardNotifier(&services.BusEmitter{Bus: a.Bus, Log: a.Log})

	a.Services = Services{
		Auth:     authSvc,
		Projects: services.NewProjectService(a.DB, a.Log, a.Board, a.Repos.Projects, a.Repos.Pieces, notify),
		Pieces:   services.NewPieceService(a.Log, a.Board, a.Repos.Projects, a.Repos.Pieces, notify, a.Metrics),
		Chat: services.NewChatService(a.DB, a.Log, a.Repos.Projects, a.Repos.Pieces,
			a.Repos.Conversations, a.Repos.Messages, promptLib, llm),
		Prompts: promptLib,
	}
	return nil
}

func (a *App) routerConfig() httpserver.RouterConfig {
	rc := httpserver.RouterConfig{
		Log:            a.Log,
		Metrics:        a.Metrics,
		CORSOrigins:    a.Cfg.CORSOrigins,
		ServiceName:    a.Cfg.OTel.ServiceName,
		TracingEnabled: a.Cfg.OTel.Enabled,

		AuthMiddleware:  httpMW.NewAuthMiddleware(a.Log, a.Services.Auth),
		RealtimeHandler: httpH.NewRealtimeHandler(a.Log, a.SSEHub),
		ProjectHandler:  httpH.NewProjectHandler(a.Log, a.Services.Projects),
		PieceHandler:    httpH.NewPieceHandler(a.Log, a.Services.Pieces),
		ChatHandler:     httpH.NewChatHandler(a.Log, a.Services.Chat),
		HealthHandler:   httpH.NewHealthHandler(a.DB),
	}
	if a.Cfg.DevMode {
		rc.DevHandler = httpH.NewDevHandler(a.Services.Prompts)
	}
	return rc
}

// Start launches the background pieces: tracing, the bus forwarder into
// the local hub and the metrics collectors.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.otelStop = observability.InitOTel(ctx, a.Log, observability.OtelConfig{
		Enabled:     a.Cfg.OTel.Enabled,
		ServiceName: a.Cfg.OTel.ServiceName,
		Environment: a.Cfg.OTel.Environment,
		Endpoint:    a.Cfg.OTel.Endpoint,
		Headers:     observability.ParseOTLPHeaders(a.Cfg.OTel.Headers),
		Insecure:    a.Cfg.OTel.Insecure,
		SampleRatio: a.Cfg.OTel.SampleRatio,
	})

	if err := a.Bus.StartForwarder(ctx, a.SSEHub.Broadcast); err != nil {
		return fmt.Errorf("start realtime forwarder: %w", err)
	}

	if a.Metrics != nil {
		a.Metrics.StartDBCollector(ctx, a.Log, a.DB, 15*time.Second)
		if a.redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.redis, 15*time.Second)
		}
	}
	return nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.Addr(), a.Cfg.ShutdownTimeout)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.otelStop != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := a.otelStop(ctx); err != nil && a.Log != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
		cancel()
	}
	if a.Bus != nil {
		_ = a.Bus.Close()
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil && a.Log != nil {
			a.Log.Warn("db close failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}

// Migrate opens the configured database and applies the schema.
func Migrate(cfg *Config, log *logger.Logger) error {
	dbs, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	defer dbs.Close()
	return db.AutoMigrateAll(dbs.DB())
}
