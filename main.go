package main

import (
	"context"
	"errors"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"messenger-service/internal/auth"
	"messenger-service/internal/config"
	"messenger-service/internal/db"
	"messenger-service/internal/fanout"
	grpchealth "messenger-service/internal/grpc"
	"messenger-service/internal/handlers"
	"messenger-service/internal/middleware"
	"messenger-service/internal/observability"
	"messenger-service/internal/rabbitmq"
	"messenger-service/internal/repositories"
	"messenger-service/internal/services"
	"messenger-service/internal/telemetry"
	"messenger-service/internal/ws"
)

const healthRefreshInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, cfg.ServiceName, cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		logger.Fatal("failed to set up tracing", zap.Error(err))
	}

	database, err := db.Connect(cfg.DatabaseDSN, cfg.RunMigrations, logger)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	logger.Info("event publisher ready",
		zap.String("mode", rabbitmq.PublisherMode(publisher)),
		zap.String("noop_reason", rabbitmq.PublisherNoopReason(publisher)),
	)
	events := observability.NewEventBus(publisher, logger)
	audit := telemetry.NewAuditEmitter(publisher, observability.RoutingAudit, cfg.ServiceName, cfg.Environment, logger)

	userRepo := repositories.NewUserRepo(database)
	chatRepo := repositories.NewChatRepo(database)
	groupRepo := repositories.NewGroupRepo(database)
	messageRepo := repositories.NewMessageRepo(database)

	chatRegistry := ws.NewRegistry(ws.KindChat)
	userRegistry := ws.NewUserRegistry()
	notifier := fanout.New(chatRegistry, userRegistry, logger)

	userService := services.NewUserService(userRepo)
	chatService := services.NewChatService(chatRepo, groupRepo, userRepo)
	groupService := services.NewGroupService(groupRepo, userRepo)
	messageService := services.NewMessageService(messageRepo, groupRepo, chatService, notifier, logger)

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpires)

	userHandler := handlers.NewUserHandler(userService, tokens, audit, logger)
	chatHandler := handlers.NewChatHandler(chatService, logger)
	messageHandler := handlers.NewMessageHandler(messageService, chatService, userService, notifier, events, logger)
	groupHandler := handlers.NewGroupHandler(groupService, userService, notifier, audit, logger)

	gateway := &ws.Gateway{
		Tokens:       tokens,
		Handlers:     ws.DefaultHandlers(messageService),
		Events:       events,
		Logger:       logger,
		QueueSize:    cfg.WSSendQueue,
		WriteTimeout: cfg.WSWriteTimeout,
	}
	chatWS := ws.NewChatWebSocketHandler(gateway, chatRegistry, chatService)
	notificationWS := ws.NewNotificationWebSocketHandler(gateway, userRegistry)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(tokens)

	router.POST("/users/register", userHandler.Register)
	router.POST("/users/login", userHandler.Login)
	router.GET("/users/me", authMiddleware, userHandler.Me)
	router.PATCH("/users/me/name", authMiddleware, userHandler.UpdateName)
	router.PATCH("/users/me/password", authMiddleware, userHandler.UpdatePassword)

	router.POST("/messages", authMiddleware, messageHandler.PostMessage)
	router.GET("/messages/by-chat/:chat_id", authMiddleware, messageHandler.ChatHistory)

	router.GET("/chats", authMiddleware, chatHandler.ListChats)

	router.POST("/groups", authMiddleware, groupHandler.CreateGroup)
	router.GET("/groups", authMiddleware, groupHandler.ListGroups)
	router.POST("/groups/:group_id/members", authMiddleware, groupHandler.AddMembers)
	router.DELETE("/groups/:group_id/members", authMiddleware, groupHandler.RemoveMembers)
	router.GET("/groups/:group_id/members", authMiddleware, groupHandler.ListMembers)

	// websocket auth happens after the upgrade so failures get a close frame
	router.GET("/ws/chat/:chat_id", chatWS.Handle)
	router.GET("/ws/notifications", notificationWS.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, audit, chatRegistry, userRegistry, cfg.DebugRoutes)

	health := grpchealth.NewHealthServer(database, logger)
	health.Refresh(ctx)
	go func() {
		if err := health.Serve(net.JoinHostPort("", cfg.GRPCHealthPort)); err != nil {
			logger.Error("grpc health server stopped", zap.Error(err))
		}
	}()
	go func() {
		ticker := time.NewTicker(healthRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				health.Refresh(ctx)
			}
		}
	}()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	health.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", zap.Error(err))
	}
}
