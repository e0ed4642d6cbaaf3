package main

import (
	"context"
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"messaging-service/internal/auth"
	"messaging-service/internal/chat"
	"messaging-service/internal/db"
	"messaging-service/internal/handlers"
	"messaging-service/internal/middleware"
	"messaging-service/internal/observability"
	"messaging-service/internal/rabbitmq"
	"messaging-service/internal/repositories"
	"messaging-service/internal/telemetry"
	"messaging-service/internal/ws"
)

func main() {
	ctx := context.Background()

	database, err := db.Connect()
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	shutdownTracing := telemetry.SetupTracing(ctx, "messaging-service", getEnv("OTLP_ENDPOINT", ""))
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	publisher := rabbitmq.NewPublisher(getEnv("AMQP_URL", ""), getEnv("AMQP_EXCHANGE", "chat_events"))
	defer publisher.Close()
	observability.SetPublisher(publisher)
	log.Printf("event publisher mode=%s", rabbitmq.PublisherMode(publisher))

	auditEmitter := telemetry.NewAuditEmitter(publisher, "audit.chat", "messaging-service", getEnv("ENVIRONMENT", "dev"))

	directory := repositories.NewDirectoryRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	authenticator := auth.NewAuthenticator(getEnv("JWT_SECRET", "myjwtsecret"), directory)

	hub := ws.NewHub(directory)
	service := chat.NewService(roomRepo, messageRepo, directory, hub, hub)

	chatHandler := handlers.NewChatHandler(service)
	wsHandler := ws.NewHandler(hub, service, authenticator)

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("messaging-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(authenticator)

	router.GET("/rooms", authMiddleware, chatHandler.ListRooms)
	router.POST("/rooms/start", authMiddleware, chatHandler.StartRoom)
	router.GET("/rooms/:room_id/messages", authMiddleware, chatHandler.GetMessages)
	router.POST("/rooms/:room_id/messages", authMiddleware, chatHandler.PostMessage)
	router.POST("/rooms/:room_id/read", authMiddleware, chatHandler.MarkRead)
	router.DELETE("/rooms/:room_id", authMiddleware, chatHandler.DeleteRoom)
	router.GET("/users/search", authMiddleware, chatHandler.SearchUsers)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, auditEmitter, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
