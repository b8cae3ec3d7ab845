package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"crewchat/handlers"
	"crewchat/middleware"
	"crewchat/websocket"
)

// Deps carries everything the router wires together.
type Deps struct {
	Chat           *handlers.ChatHandler
	Push           *handlers.PushHandler
	Hub            *websocket.Hub
	JWTSecret      string
	AllowedOrigins []string
	RateLimit      *middleware.IPRateLimiter
}

func SetupRouter(deps Deps) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowOrigins:     deps.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":     "ok",
			"time":       time.Now().Unix(),
			"wsClients":  deps.Hub.ConnectedClients(),
			"wsEndpoint": "/ws",
		})
	})

	api := router.Group("/api")
	api.Use(middleware.RateLimitMiddleware(deps.RateLimit))

	// Public: browsers need the VAPID key before they can subscribe.
	api.GET("/push/vapid-public-key", deps.Push.GetVapidPublicKey)

	protected := api.Group("")
	protected.Use(middleware.JWTAuthMiddleware(deps.JWTSecret))

	protected.GET("/chats/thread", deps.Chat.GetThread)
	protected.GET("/chats/trace", deps.Chat.TraceBetween)
	protected.POST("/push/subscribe", deps.Push.Subscribe)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
			return
		}
		c.Next()
	})

	return router
}
