package app

import (
	"fmt"
	"log"
	"sync"
	"time"

	"yieldgate/internal/clients"
	"yieldgate/internal/config"
	"yieldgate/internal/db"
	"yieldgate/internal/repository"
	"yieldgate/internal/services"

	"gorm.io/gorm"
)

// ServiceContainer wires the ledger store, services and relay client
type ServiceContainer struct {
	// Database
	DB          *gorm.DB
	LedgerStore *services.LedgerStore

	// Repositories
	AccountRepo repository.AccountRepository
	IntentRepo  repository.IntentRepository

	// Core Services
	VaultService   *services.VaultService
	GatewayService *services.GatewayService

	// Relay
	RelayClient *clients.RelayClient

	// Push & Background Services
	PushService    *services.PushService
	AccrualService *services.AccrualService
}

// Global service container instance
var Container *ServiceContainer
var containerOnce sync.Once

// InitializeContainer builds the container once. Safe for concurrent use.
func InitializeContainer() (*ServiceContainer, error) {
	var initErr error

	containerOnce.Do(func() {
		log.Println("🚀 Initializing Service Container...")

		container := &ServiceContainer{
			DB: db.DB,
		}

		if err := container.initCoreServices(); err != nil {
			initErr = fmt.Errorf("failed to initialize core services: %w", err)
			return
		}

		if err := container.initRelay(); err != nil {
			initErr = fmt.Errorf("failed to initialize relay: %w", err)
			return
		}

		container.initBackgroundServices()

		Container = container
		log.Println("✅ Service Container initialized successfully")
	})

	return Container, initErr
}

func (c *ServiceContainer) initCoreServices() error {
	log.Println("📦 Initializing Core Services...")

	c.LedgerStore = services.NewLedgerStore(c.DB)
	c.AccountRepo = repository.NewAccountRepository(c.DB)
	c.IntentRepo = repository.NewIntentRepository(c.DB)

	c.VaultService = services.NewVaultService(c.LedgerStore)
	c.PushService = services.NewPushService()
	c.PushService.Start()

	log.Println("✅ Core Services initialized")
	return nil
}

// initRelay connects to NATS and subscribes to inbound transfer intents.
func (c *ServiceContainer) initRelay() error {
	cfg := config.AppConfig
	log.Printf("📡 Connecting to relay at %s (chain %d)...", cfg.NATS.URL, cfg.Chain.ChainID)

	relay, err := clients.NewRelayClient(cfg.NATS.URL, cfg.Chain.ChainID)
	if err != nil {
		return fmt.Errorf("relay connection failed: %w", err)
	}
	c.RelayClient = relay

	c.GatewayService = services.NewGatewayService(c.LedgerStore, relay, c.PushService, cfg.Chain.ChainID)

	if err := relay.SubscribeInbound(c.GatewayService); err != nil {
		return fmt.Errorf("inbound subscription failed: %w", err)
	}

	log.Println("✅ Relay connected and subscribed")
	return nil
}

func (c *ServiceContainer) initBackgroundServices() {
	cfg := config.AppConfig
	if !cfg.Accrual.Enabled {
		log.Println("⏭️ Accrual scheduler disabled by config")
		return
	}

	interval := time.Duration(cfg.Accrual.CheckIntervalSeconds) * time.Second
	c.AccrualService = services.NewAccrualService(c.VaultService, interval)
	c.AccrualService.Start()
}

// Cleanup stops background services and closes the relay connection
func (c *ServiceContainer) Cleanup() {
	log.Println("🧹 Cleaning up Service Container...")

	if c.AccrualService != nil {
		c.AccrualService.Stop()
	}

	if c.RelayClient != nil {
		c.RelayClient.Close()
	}

	if c.PushService != nil {
		c.PushService.Stop()
	}

	log.Println("✅ Service Container cleanup completed")
}
