package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"

	"crewchat/chat"
	"crewchat/config"
	"crewchat/database"
	"crewchat/handlers"
	"crewchat/middleware"
	"crewchat/push"
	"crewchat/routes"
	"crewchat/store"
	"crewchat/websocket"
)

func main() {
	log.Println("🚀 Starting CrewChat Server...")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("❌ ", err)
	}

	// ===== CONNECT TO MONGODB WITH RETRY =====
	log.Println("🔌 Connecting to MongoDB...")

	var client *mongo.Client
	var dbErr error
	for i := 1; i <= 3; i++ {
		c, err := database.Connect(cfg.MongoURI)
		if err != nil {
			dbErr = err
			log.Printf("❌ MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		client = c
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal("❌ Failed to connect to MongoDB:", dbErr)
	}
	defer func() {
		if err := database.Disconnect(client); err != nil {
			log.Printf("❌ MongoDB disconnect failed: %v", err)
		}
	}()

	colls := database.NewCollections(client.Database(cfg.MongoDatabase))

	chatStore := store.NewMongoChatStore(colls.Chats)
	pushStore := store.NewMongoPushStore(colls.PushSubs)

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := chatStore.EnsureIndexes(indexCtx); err != nil {
		indexCancel()
		log.Fatal("❌ Failed to ensure chat indexes:", err)
	}
	indexCancel()

	// ===== VAPID KEYS =====
	if cfg.VapidPublicKey == "" || cfg.VapidPrivateKey == "" {
		privateKey, publicKey, err := webpush.GenerateVAPIDKeys()
		if err != nil {
			log.Fatal("❌ Failed to generate VAPID keys:", err)
		}
		cfg.VapidPublicKey = publicKey
		cfg.VapidPrivateKey = privateKey
		log.Println("⚠️  Generated new VAPID keys - for production, set VAPID_PUBLIC_KEY and VAPID_PRIVATE_KEY")
	}

	// ===== GIN MODE =====
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
		log.Println("⚙️ Running in RELEASE mode")
	} else {
		gin.SetMode(gin.DebugMode)
		log.Println("⚙️ Running in DEBUG mode")
	}

	// ===== CORE WIRING =====
	hub := websocket.NewHub()
	notifier := push.NewWebPushNotifier(pushStore, cfg.VapidSubscriber, cfg.VapidPublicKey, cfg.VapidPrivateKey)
	chatService := chat.NewService(chatStore, hub, notifier)

	router := routes.SetupRouter(routes.Deps{
		Chat:           handlers.NewChatHandler(chatService),
		Push:           handlers.NewPushHandler(pushStore, cfg.VapidPublicKey),
		Hub:            hub,
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.Origins(),
		RateLimit:      middleware.NewIPRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
	})

	router.GET("/ws", func(c *gin.Context) {
		websocket.Handler(hub, chatService, cfg.JWTSecret)(c.Writer, c.Request)
	})
	log.Println("✅ WebSocket endpoint: /ws")

	// ===== SERVER CONFIG =====
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("🌐 Server running on port %d", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Server error:", err)
		}
	}()

	log.Println("✅ Server is ready and accepting connections")

	// ===== GRACEFUL SHUTDOWN =====
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("❌ Forced shutdown:", err)
	}

	log.Println("👋 Server stopped gracefully")
}
