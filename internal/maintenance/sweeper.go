// Package maintenance runs the periodic garbage collection of credential
// rows. The sweep is delete-only and touches no live row, so it is safe to
// run concurrently with issuance and validation.
package maintenance

import (
	"context"
	"log"
	"time"

	"github.com/iliyamo/auth-token-service/internal/repository"
)

// sweepTimeout bounds one purge round-trip.
const sweepTimeout = 30 * time.Second

// Sweeper deletes revoked/expired renewal rows and used/expired recovery
// rows on a fixed cadence.
type Sweeper struct {
	store    repository.CredentialStore
	interval time.Duration
}

func NewSweeper(store repository.CredentialStore, interval time.Duration) *Sweeper {
	return &Sweeper{store: store, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Errors are logged; the next tick retries.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	sctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	renewals, recoveries, err := s.store.PurgeExpired(sctx, time.Now().UTC())
	if err != nil {
		log.Printf("sweeper: purge failed: %v", err)
		return
	}
	if renewals > 0 || recoveries > 0 {
		log.Printf("sweeper: purged %d renewal rows, %d recovery rows", renewals, recoveries)
	}
}
