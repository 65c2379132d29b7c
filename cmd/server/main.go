package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yieldgate/internal/app"
	"yieldgate/internal/config"
	"yieldgate/internal/db"
	"yieldgate/internal/handlers"
	"yieldgate/internal/router"

	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339,
	})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}

	log.Println("🚀 Starting yieldgate server...")

	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db.InitDB()

	container, err := app.InitializeContainer()
	if err != nil {
		log.Fatalf("Failed to initialize services: %v", err)
	}
	defer container.Cleanup()

	h := &router.Handlers{
		Auth:      handlers.NewAuthHandler(),
		Vault:     handlers.NewVaultHandler(container.VaultService),
		Gateway:   handlers.NewGatewayHandler(container.GatewayService),
		Query:     handlers.NewQueryHandler(container.VaultService, container.GatewayService, container.AccountRepo, container.IntentRepo),
		Admin:     handlers.NewAdminHandler(container.VaultService, container.GatewayService),
		WebSocket: handlers.NewWebSocketHandler(container.PushService),
	}

	engine := router.SetupRouter(h)

	addr := fmt.Sprintf("%s:%d", config.AppConfig.Server.Host, config.AppConfig.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: engine,
	}

	go func() {
		log.Printf("🌐 Listening on %s (chain %d: %s)", addr, config.AppConfig.Chain.ChainID, config.AppConfig.Chain.Name)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️ Forced shutdown: %v", err)
	}
	log.Println("✅ Server stopped")
}
