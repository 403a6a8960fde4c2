package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chatApi "khidma/internal/chat/api"
	chatApp "khidma/internal/chat/app"
	chatRepo "khidma/internal/chat/repo"
	notifApi "khidma/internal/notification/api"
	notifApp "khidma/internal/notification/app"
	notifRepo "khidma/internal/notification/repo"
	orderApi "khidma/internal/order/api"
	orderApp "khidma/internal/order/app"
	orderRepo "khidma/internal/order/repo"
	"khidma/internal/presence"
	"khidma/internal/realtime"
	"khidma/internal/shared/config"
	"khidma/internal/shared/db"
	"khidma/internal/shared/jwt"
	"khidma/internal/shared/middleware"
	"khidma/internal/shared/mq"
	"khidma/internal/shared/util"
	tripApi "khidma/internal/trip/api"
	tripApp "khidma/internal/trip/app"
	tripRepo "khidma/internal/trip/repo"
)

func main() {
	log := util.NewLogger()

	log.Info("Server", "Starting service initialization...")

	cfg, err := config.LoadConfig("config.yaml")
	if err != nil {
		log.Fatal("Config", "Failed to load configuration", err)
	}
	log.OK("Config", "Configuration loaded successfully")

	ctx := context.Background()

	database, err := db.ConnectToDB(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Database", "Failed to connect to database", err)
	}
	defer database.Close()
	log.OK("Database", "Connected successfully")

	rmqConn, rmqCh, err := mq.ConnectToRMQ(&cfg.RabbitMQ)
	if err != nil {
		log.Fatal("RabbitMQ", "Failed to connect to RabbitMQ", err)
	}
	defer rmqConn.Close()
	defer rmqCh.Close()
	if err := mq.DeclareExchanges(rmqCh); err != nil {
		log.Fatal("RabbitMQ", "Failed to declare exchanges", err)
	}
	log.OK("RabbitMQ", "Connected successfully")

	tokens := jwt.NewManager(cfg.JWT.Secret)
	publisher := mq.NewPublisher(rmqCh)

	registry := presence.NewRegistry()
	fanout := realtime.NewFanout(registry, log)

	notifications := notifApp.NewNotificationService(
		notifRepo.NewNotificationRepo(database), fanout, publisher, log)

	drivers := tripRepo.NewDriverRepo(database)
	trips := tripApp.NewTripService(
		tripRepo.NewTripRepo(database), drivers, fanout, notifications, log)

	orders := orderApp.NewOrderService(
		orderRepo.NewOrderRepo(database), orderRepo.NewOfferRepo(database),
		fanout, notifications, log)

	chats := chatApp.NewChatService(
		chatRepo.NewChatRepo(database), chatRepo.NewMessageRepo(database),
		chatRepo.NewRelationshipRepo(database), fanout, log)

	hub := realtime.NewHub(registry, tokens, drivers, log)

	mux := http.NewServeMux()
	tripApi.NewHandler(trips, registry).RegisterRoutes(mux, tokens)
	orderApi.NewHandler(orders).RegisterRoutes(mux, tokens)
	chatApi.NewHandler(chats).RegisterRoutes(mux, tokens)
	notifApi.NewHandler(notifications).RegisterRoutes(mux, tokens)
	mux.HandleFunc("GET /ws/users/{userId}", hub.HandleWS)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		util.ResponseInJSON(w, http.StatusOK, "ok", nil)
	})

	handler := middleware.RequestID(middleware.AccessLog(log)(mux))

	server := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	go func() {
		log.OK("HTTP", "khidma server running on :"+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP", "Server error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Warn("Server", "Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP", "Shutdown error", err)
	} else {
		log.OK("HTTP", "Server stopped gracefully")
	}
	log.Info("Server", "Shutdown complete")
}
