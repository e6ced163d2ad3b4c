// Package http wires the REST and WebSocket endpoints.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/misba/aimock/internal/adapters/signal"
	"github.com/misba/aimock/internal/ai"
	"github.com/misba/aimock/internal/auth"
	"github.com/misba/aimock/internal/bridge"
	"github.com/misba/aimock/internal/config"
	"github.com/misba/aimock/internal/gd"
)

// FeedbackSource evaluates a discussion transcript. Nil when the model is
// not configured; the endpoint then answers 503.
type FeedbackSource interface {
	GenerateFeedback(ctx context.Context, transcript string) (*ai.Feedback, error)
}

type Server struct {
	cfg      *config.Config
	reg      *gd.Registry
	signal   *signal.Controller
	bridge   *bridge.Bridge
	feedback FeedbackSource
	auth     *auth.Service
}

func NewServer(cfg *config.Config, reg *gd.Registry, ctl *signal.Controller, b *bridge.Bridge, feedback FeedbackSource, authSvc *auth.Service) *Server {
	return &Server{
		cfg:      cfg,
		reg:      reg,
		signal:   ctl,
		bridge:   b,
		feedback: feedback,
		auth:     authSvc,
	}
}

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, s *Server) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("AimockSessions", store))
	r.Use(ClientTokenMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	authGrp := api.Group("/auth")
	authGrp.POST("/signup", s.handleSignup)
	authGrp.POST("/login", s.handleLogin)
	authGrp.GET("/me", s.authRequired(), s.handleMe)

	gdGrp := api.Group("/gd")
	gdGrp.POST("/create-room", s.handleCreateRoom)
	gdGrp.GET("/rooms", s.handleListRooms)
	gdGrp.POST("/feedback", s.handleFeedback)
	gdGrp.GET("/ws", func(c *gin.Context) {
		// Hand the pumps the application context: the request context dies
		// with the handler, the socket must not.
		s.signal.HandleGD(ctx, c)
	})

	streaming := api.Group("/streaming")
	streaming.GET("/token", s.authRequired(), s.handleStreamingToken)
	streaming.GET("/ws", func(c *gin.Context) {
		s.handleStreamingWS(ctx, c)
	})

	return r
}
