package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/puzzleplan-backend/internal/http/handlers"
	httpMW "github.com/yungbote/puzzleplan-backend/internal/http/middleware"
	"github.com/yungbote/puzzleplan-backend/internal/observability"
	"github.com/yungbote/puzzleplan-backend/internal/platform/logger"
)

const sseStreamRoute = "/api/sse/stream"

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	CORSOrigins    []string
	ServiceName    string
	TracingEnabled bool

	AuthMiddleware  *httpMW.AuthMiddleware
	RealtimeHandler *httpH.RealtimeHandler
	ProjectHandler  *httpH.ProjectHandler
	PieceHandler    *httpH.PieceHandler
	ChatHandler     *httpH.ChatHandler
	DevHandler      *httpH.DevHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "puzzleplan"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log, sseStreamRoute, "/healthcheck", "/readyz"))
	r.Use(httpMW.Metrics(cfg.Metrics, sseStreamRoute))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		// Middleware
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			protected.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
		}

		// Projects
		if cfg.ProjectHandler != nil {
			protected.GET("/projects", cfg.ProjectHandler.ListProjects)
			protected.POST("/projects", cfg.ProjectHandler.CreateProject)
			protected.GET("/projects/:id", cfg.ProjectHandler.GetProject)
			protected.PATCH("/projects/:id", cfg.ProjectHandler.UpdateProject)
			protected.DELETE("/projects/:id", cfg.ProjectHandler.DeleteProject)
		}

		// Pieces
		if cfg.PieceHandler != nil {
			protected.GET("/pieces/metadata", cfg.PieceHandler.Metadata)
			protected.POST("/pieces/complete", cfg.PieceHandler.CompletePiece)
			protected.PUT("/pieces/:id/content", cfg.PieceHandler.UpdateContent)
			protected.POST("/projects/:id/pieces/:type/open", cfg.PieceHandler.OpenPiece)
		}

		// Chat
		if cfg.ChatHandler != nil {
			protected.POST("/chat", cfg.ChatHandler.StreamChat)
			protected.POST("/conversations", cfg.ChatHandler.CreateConversation)
			protected.GET("/conversations/:id/messages", cfg.ChatHandler.ListMessages)
			protected.GET("/projects/:id/conversations", cfg.ChatHandler.ListConversations)
		}

		// Dev
		if cfg.DevHandler != nil {
			protected.DELETE("/dev/prompt-cache", cfg.DevHandler.ClearPromptCache)
		}
	}

	return r
}
