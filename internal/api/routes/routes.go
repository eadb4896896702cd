package routes

import (
	"time"

	"spacehub/internal/api/handlers"
	"spacehub/internal/api/middleware"
	"spacehub/internal/auth"
	"spacehub/internal/websocket"

	"github.com/gin-gonic/gin"
)

// Deps is everything the HTTP surface needs. Limiter and Online may be nil
// when Redis is not configured.
type Deps struct {
	Hub            *websocket.Hub
	Gate           handlers.Admitter
	Acceptor       handlers.Acceptor
	Tokens         *auth.JWTManager
	AuthService    *auth.AuthService
	Spaces         handlers.SpaceStore
	Presences      handlers.PresenceFinder
	Chats          handlers.ChatHistory
	Online         handlers.OnlineLister
	Limiter        middleware.RateLimiter
	AllowedOrigins []string

	// ConnectRateLimit is the number of websocket upgrades allowed per client IP per minute
	ConnectRateLimit int
}

type Router struct {
	engine        *gin.Engine
	deps          Deps
	wsHandler     *handlers.WSHandler
	authHandler   *handlers.AuthHandler
	spaceHandler  *handlers.SpaceHandler
	chatHandler   *handlers.ChatHandler
	userHandler   *handlers.UserHandler
	healthHandler *handlers.HealthHandler
	rateLimitMW   *middleware.RateLimitMiddleware
	authMW        *middleware.AuthMiddleware
}

func NewRouter(deps Deps) *Router {
	engine := gin.New()

	// Add middlewares
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(deps.AllowedOrigins))
	engine.Use(middleware.LogApi("/health"))

	r := &Router{
		engine:        engine,
		deps:          deps,
		wsHandler:     handlers.NewWSHandler(deps.Gate, deps.Acceptor),
		authHandler:   handlers.NewAuthHandler(deps.AuthService),
		spaceHandler:  handlers.NewSpaceHandler(deps.Spaces, deps.Presences),
		chatHandler:   handlers.NewChatHandler(deps.Spaces, deps.Chats),
		userHandler:   handlers.NewUserHandler(deps.Online, deps.Hub),
		healthHandler: handlers.NewHealthHandler(deps.Hub),
		rateLimitMW:   middleware.NewRateLimitMiddleware(deps.Limiter),
		authMW:        middleware.NewAuthMiddleware(deps.Tokens),
	}
	r.SetupRoutes()
	return r
}

func (r *Router) SetupRoutes() {
	r.engine.GET("/health", r.healthHandler.Health)

	// WebSocket endpoint; the token travels in the query string and is checked by the gate
	r.engine.GET("/ws",
		r.rateLimitMW.WebSocketRateLimit(r.deps.ConnectRateLimit, time.Minute),
		r.wsHandler.HandleWebSocket,
	)

	api := r.engine.Group("/api/v1")

	// Public routes (no authentication required)
	authRoutes := api.Group("/auth")
	authRoutes.Use(r.rateLimitMW.RateLimitIP(50, time.Minute)) // 50 requests per minute per IP
	{
		authRoutes.POST("/register", r.authHandler.Register)
		authRoutes.POST("/login", r.authHandler.Login)
	}

	// Authenticated routes
	authed := api.Group("/")
	authed.Use(r.authMW.RequireAuth())
	authed.Use(r.rateLimitMW.RateLimit(100, time.Minute)) // 100 requests per minute
	{
		spaces := authed.Group("/spaces")
		{
			spaces.GET("/:id/presence", r.spaceHandler.GetPresence)
			spaces.GET("/:id/messages", r.chatHandler.GetSpaceMessages)
			spaces.DELETE("/:id", r.spaceHandler.DeleteSpace)
		}

		users := authed.Group("/users")
		{
			users.GET("/online", r.userHandler.GetOnlineUsers)
			users.GET("/:id/online", r.userHandler.GetUserOnline)
		}
	}
}

func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
