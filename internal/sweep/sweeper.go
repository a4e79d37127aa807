package sweep

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"capsule-hostel-backend/internal/hostel"
)

// Sweeper periodically deletes expired self-check-in tokens. Sweeps are safe
// to run concurrently with live redemptions: a redemption whose token is
// deleted mid-flight fails its re-validation instead of crashing.
type Sweeper struct {
	cron     *cron.Cron
	tokens   *hostel.TokenIssuer
	schedule string
}

// New creates a sweeper with a cron schedule such as "@every 10m".
func New(tokens *hostel.TokenIssuer, schedule string) *Sweeper {
	return &Sweeper{
		cron:     cron.New(),
		tokens:   tokens,
		schedule: schedule,
	}
}

// Start registers the sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		deleted, err := s.tokens.SweepExpired(context.Background())
		if err != nil {
			log.Printf("Token sweep failed: %v", err)
			return
		}
		if deleted > 0 {
			log.Printf("Token sweep deleted %d expired tokens", deleted)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule token sweep %q: %w", s.schedule, err)
	}
	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
