package services

import (
	"errors"
	"log"
	"sync"
	"time"

	"yieldgate/internal/metrics"
)

// AccrualService periodically drives VaultService.Accrue. The vault itself
// enforces the accrual period; this loop just checks often enough that an
// elapsed period is acted on promptly.
type AccrualService struct {
	vault         *VaultService
	mu            sync.Mutex
	running       bool
	stopCh        chan struct{}
	checkInterval time.Duration
}

// NewAccrualService creates a new AccrualService.
func NewAccrualService(vault *VaultService, checkInterval time.Duration) *AccrualService {
	if checkInterval <= 0 {
		checkInterval = time.Minute
	}
	return &AccrualService{
		vault:         vault,
		stopCh:        make(chan struct{}),
		checkInterval: checkInterval,
	}
}

// Start begins the accrual check loop
func (s *AccrualService) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	log.Printf("🚀 Starting AccrualService (check interval: %v)", s.checkInterval)

	go s.accrualCheckLoop()

	log.Printf("✅ AccrualService started")
}

// Stop gracefully stops the accrual check loop
func (s *AccrualService) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stopCh)
	log.Printf("🛑 AccrualService stopped")
}

func (s *AccrualService) accrualCheckLoop() {
	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	// Run initial check on startup
	s.runAccrual()

	for {
		select {
		case <-ticker.C:
			s.runAccrual()
		case <-s.stopCh:
			return
		}
	}
}

func (s *AccrualService) runAccrual() {
	credited, fee, err := s.vault.Accrue()
	if err != nil {
		if errors.Is(err, ErrAccrualNotDue) {
			metrics.AccrualRunsTotal.WithLabelValues("not_due").Inc()
			return
		}
		if errors.Is(err, ErrPaused) {
			metrics.AccrualRunsTotal.WithLabelValues("paused").Inc()
			log.Printf("⚠️ [Accrual] Skipped: operations are paused")
			return
		}
		metrics.AccrualRunsTotal.WithLabelValues("error").Inc()
		log.Printf("❌ [Accrual] Run failed: %v", err)
		return
	}
	log.Printf("✅ [Accrual] Credited %s (fee %s)", credited.String(), fee.String())
}
