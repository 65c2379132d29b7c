package db

import (
	"errors"
	"fmt"
	"log"
	"time"

	"yieldgate/internal/config"
	"yieldgate/internal/models"
	"yieldgate/internal/rate"
	"yieldgate/internal/utils"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func InitDB() {
	var err error

	if config.AppConfig == nil || config.AppConfig.Database.DSN == "" {
		log.Fatalf("Database DSN is required")
	}

	dsn := config.AppConfig.Database.DSN
	log.Printf("Connecting to database: %s", dsn)

	gormCfg := &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		SkipDefaultTransaction:                   true,
		PrepareStmt:                              true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	}

	switch config.AppConfig.Database.Driver {
	case "sqlite":
		DB, err = gorm.Open(sqlite.Open(dsn), gormCfg)
	default:
		DB, err = gorm.Open(postgres.Open(dsn), gormCfg)
	}
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	log.Println("✅ Database connected successfully")

	log.Println("🚀 Starting database schema migration with GORM AutoMigrate...")

	if err := Migrate(DB); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	if err := SeedDefaults(DB, config.AppConfig); err != nil {
		log.Fatalf("Failed to seed default configuration: %v", err)
	}

	log.Println("✅ Database schema migrated successfully")
}

// Migrate runs AutoMigrate for every model. Exposed so service tests can
// build a schema on an in-memory database.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Account{},
		&models.LedgerState{},
		&models.VaultState{},
		&models.VaultParams{},
		&models.Tier{},
		&models.DepositLock{},
		&models.ChainConfig{},
		&models.RateLimitBucket{},
		&models.TransferIntent{},
		&models.ProcessedMessage{},
		&models.Batch{},
		&models.TransferRoute{},
	)
}

// SeedDefaults creates the singleton rows and first-boot tables when they do
// not exist yet. Existing rows are never touched; the admin API owns them
// after the first boot.
func SeedDefaults(db *gorm.DB, cfg *config.Config) error {
	now := time.Now().UTC()

	var ledger models.LedgerState
	if err := db.First(&ledger, 1).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		ledger = models.LedgerState{ID: 1, TotalShares: "0", TotalSupply: "0"}
		if err := db.Create(&ledger).Error; err != nil {
			return err
		}
		log.Println("✅ Initialized ledger state")
	} else if err != nil {
		return err
	}

	var vault models.VaultState
	if err := db.First(&vault, 1).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		vault = models.VaultState{ID: 1, TotalDeposited: "0", LastAccrualAt: now}
		if err := db.Create(&vault).Error; err != nil {
			return err
		}
		log.Println("✅ Initialized vault state")
	} else if err != nil {
		return err
	}

	var params models.VaultParams
	if err := db.First(&params, 1).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		seed := cfg.Vault
		if err := validateVaultSeed(&seed); err != nil {
			return err
		}
		params = models.VaultParams{
			ID:                   1,
			KinkBps:              seed.KinkBps,
			RateAtZeroBps:        seed.RateAtZeroBps,
			RateAtKinkBps:        seed.RateAtKinkBps,
			RateAtMaxBps:         seed.RateAtMaxBps,
			MinDeposit:           orZero(seed.MinDeposit),
			MaxDeposits:          orZero(seed.MaxDeposits),
			AccrualPeriodSeconds: seed.AccrualPeriodSeconds,
			DailyAccrualCap:      orZero(seed.DailyAccrualCap),
			TargetRateBps:        seed.TargetRateBps,
			FeeShareBps:          seed.FeeShareBps,
			FeeRecipient:         seed.FeeRecipient,
			MinLockSeconds:       seed.MinLockSeconds,
			MaxLockSeconds:       seed.MaxLockSeconds,
			MaxLockBonusBps:      seed.MaxLockBonusBps,
		}
		if err := db.Create(&params).Error; err != nil {
			return err
		}
		log.Printf("✅ Initialized vault params from config (curve %d/%d/%d @ kink %d)",
			seed.RateAtZeroBps, seed.RateAtKinkBps, seed.RateAtMaxBps, seed.KinkBps)
	} else if err != nil {
		return err
	}

	var tierCount int64
	if err := db.Model(&models.Tier{}).Count(&tierCount).Error; err != nil {
		return err
	}
	if tierCount == 0 && len(cfg.Tiers) > 0 {
		parsed := make([]rate.Tier, 0, len(cfg.Tiers))
		for _, t := range cfg.Tiers {
			threshold, err := utils.ParseAmount(t.Threshold)
			if err != nil {
				return fmt.Errorf("tier seed threshold %q: %w", t.Threshold, err)
			}
			parsed = append(parsed, rate.Tier{Threshold: threshold, BonusBps: t.BonusBps})
		}
		if err := rate.ValidateTiers(parsed); err != nil {
			return fmt.Errorf("tier seed: %w", err)
		}
		for _, t := range cfg.Tiers {
			tier := models.Tier{Threshold: t.Threshold, BonusBps: t.BonusBps}
			if err := db.Create(&tier).Error; err != nil {
				return err
			}
		}
		log.Printf("✅ Seeded %d rate tiers", len(cfg.Tiers))
	}

	for _, p := range cfg.Peers {
		var existing models.ChainConfig
		if err := db.First(&existing, "chain_id = ?", p.ChainID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			chain := models.ChainConfig{
				ChainID:            p.ChainID,
				Name:               p.Name,
				Enabled:            p.Enabled,
				Allowlisted:        p.Allowlisted,
				MinTransfer:        orZero(p.MinTransfer),
				MaxTransfer:        orZero(p.MaxTransfer),
				BucketCapacity:     orZero(p.BucketCapacity),
				BucketRefillPerSec: orZero(p.BucketRefillPerSec),
			}
			if err := db.Create(&chain).Error; err != nil {
				return err
			}
			// Buckets start full.
			bucket := models.RateLimitBucket{
				ChainID:      p.ChainID,
				Available:    orZero(p.BucketCapacity),
				LastRefillAt: now,
			}
			if err := db.Create(&bucket).Error; err != nil {
				return err
			}
			log.Printf("✅ Seeded counterparty chain %d (%s)", p.ChainID, p.Name)
		} else if err != nil {
			return err
		}
	}

	return nil
}

// validateVaultSeed rejects a first-boot configuration that would persist an
// unusable params row. The same bounds the admin API enforces apply here.
func validateVaultSeed(seed *config.VaultSeed) error {
	curve := rate.Curve{
		KinkBps:       seed.KinkBps,
		RateAtZeroBps: seed.RateAtZeroBps,
		RateAtKinkBps: seed.RateAtKinkBps,
		RateAtMaxBps:  seed.RateAtMaxBps,
	}
	if err := curve.Validate(); err != nil {
		return fmt.Errorf("vault seed curve: %w", err)
	}
	if seed.AccrualPeriodSeconds < 3600 || seed.AccrualPeriodSeconds > 7*24*3600 {
		return fmt.Errorf("vault seed accrual period %ds outside [1h, 7d]", seed.AccrualPeriodSeconds)
	}
	if seed.MinLockSeconds < 0 || seed.MaxLockSeconds < seed.MinLockSeconds {
		return fmt.Errorf("vault seed lock bounds [%d, %d] invalid", seed.MinLockSeconds, seed.MaxLockSeconds)
	}
	return nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
