package services

import (
	"sync"
	"testing"
	"time"
)

func TestAccrualServiceStartStopIdempotent(t *testing.T) {
	store := newTestStore(t)
	seedVault(t, store, defaultTestParams())
	svc := NewAccrualService(NewVaultService(store), time.Hour)

	// Concurrent and repeated Start/Stop must not double-start the loop or
	// double-close the stop channel.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Start()
		}()
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.Stop()
		}()
	}
	wg.Wait()
}
