package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/studyhub/collab-server/internal/collab/handlers"
	"github.com/studyhub/collab-server/internal/collab/repository"
	"github.com/studyhub/collab-server/internal/collab/services"
	"github.com/studyhub/collab-server/internal/collab/ws"
	"github.com/studyhub/collab-server/internal/common/database"
	"github.com/studyhub/collab-server/internal/common/middleware"
	"github.com/studyhub/collab-server/pkg/config"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize database (SQLite for development, PostgreSQL for production)
	db, err := database.Open(cfg.Database.Type, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	// Repositories
	users := repository.NewUserRepository(db)
	invitations := repository.NewInvitationRepository(db, cfg.Collab.InvitationCap)

	// Collaboration services. The relay resolves recipients through the
	// registry, while the registry and room manager notify through the
	// relay, so the relay is attached after construction.
	rooms := services.NewRoomManager()
	registry := services.NewPresenceRegistry(rooms)
	relay := services.NewSignalRelay(registry, rooms, cfg.Collab.DeliveryDelay)
	rooms.AttachRelay(relay)
	registry.AttachRelay(relay)

	coordinator := services.NewInvitationCoordinator(invitations, users, relay)
	monitor := services.NewHeartbeatMonitor()

	hub := ws.NewHub(registry, rooms, relay, coordinator, cfg.Collab.SendBuffer)

	presenceHandlers := handlers.NewPresenceHandlers(monitor, registry, rooms, users)
	invitationHandlers := handlers.NewInvitationHandlers(coordinator, users)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.ErrorHandler())

	// Realtime transport
	router.GET("/ws", func(c *gin.Context) {
		hub.HandleRequest(c.Writer, c.Request)
	})

	// Socket-side presence snapshot
	router.GET("/online-users", presenceHandlers.OnlineUsers)

	// Observability
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok", "connections": hub.ConnCount()})
	})

	// REST-side presence and invitations. The bearer token is the raw
	// email address (legacy mobile auth scheme).
	auth := router.Group("/auth")
	auth.Use(middleware.AuthRequired(users))
	{
		auth.POST("/user-online", presenceHandlers.UserOnline)
		auth.POST("/user-offline", presenceHandlers.UserOffline)
		auth.POST("/heartbeat", presenceHandlers.Heartbeat)
		auth.GET("/online-status", presenceHandlers.OnlineStatus)

		auth.POST("/send-invitation", invitationHandlers.SendInvitation)
		auth.GET("/invitations", invitationHandlers.ListInvitations)
		auth.POST("/invitations/:id/accept", invitationHandlers.AcceptInvitation)
		auth.POST("/invitations/:id/reject", invitationHandlers.RejectInvitation)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Printf("[Server] listening on %s (env: %s)", cfg.Server.Addr(), cfg.Server.Env)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Server failed: %v", err)
	}
}
