package routes

import (
	websocket "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nathan7836/sportsant-api/internal/config"
	"github.com/nathan7836/sportsant-api/internal/handlers"
	"github.com/nathan7836/sportsant-api/internal/middleware"
	"github.com/nathan7836/sportsant-api/internal/repository"
	"github.com/nathan7836/sportsant-api/internal/services"
	notifyws "github.com/nathan7836/sportsant-api/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	userRepo := repository.NewUserRepository(db)
	clientRepo := repository.NewClientRepository(db)
	serviceRepo := repository.NewServiceRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	requestRepo := repository.NewChangeRequestRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	hub := notifyws.NewHub()
	go hub.Run()

	notificationService := services.NewNotificationService(notificationRepo, hub)
	schedulingService := services.NewSchedulingService(sessionRepo)
	changeRequestService := services.NewChangeRequestService(
		requestRepo,
		sessionRepo,
		userRepo,
		clientRepo,
		serviceRepo,
		notificationService,
		services.SystemClock{},
	)

	authHandler := handlers.NewAuthHandler(userRepo, cfg.JWTSecret)
	schedulingHandler := handlers.NewSchedulingHandler(schedulingService)
	changeRequestHandler := handlers.NewChangeRequestHandler(changeRequestService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	streamHandler := handlers.NewStreamHandler(hub, cfg.JWTSecret)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", middleware.AuthRequired(cfg.JWTSecret), authHandler.Me)

	protected := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := protected.Group("/sessions")
	sessions.Post("", schedulingHandler.CreateSession)
	sessions.Post("/recurring", schedulingHandler.CreateRecurringSessions)
	sessions.Get("", schedulingHandler.ListSessions)
	sessions.Get("/:id", schedulingHandler.GetSession)
	sessions.Put("/:id", schedulingHandler.UpdateSession)
	sessions.Delete("/:id", schedulingHandler.DeleteSession)

	requests := protected.Group("/change-requests")
	requests.Post("", changeRequestHandler.CreateChangeRequest)
	requests.Get("/pending", changeRequestHandler.ListPendingRequests)
	requests.Get("/mine", changeRequestHandler.ListMyRequests)
	requests.Post("/:id/respond", changeRequestHandler.RespondToChangeRequest)

	notifications := protected.Group("/notifications")
	notifications.Get("", notificationHandler.ListNotifications)
	notifications.Get("/unread-count", notificationHandler.UnreadCount)
	notifications.Put("/read-all", notificationHandler.MarkAllRead)
	notifications.Put("/:id/read", notificationHandler.MarkRead)

	api.Use("/v1/ws", streamHandler.WebSocketAuth)
	api.Get("/v1/ws", websocket.New(streamHandler.HandleWebSocket))
}
