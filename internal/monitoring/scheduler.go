package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// SessionPurger deletes expired sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// purgeTimeout bounds one purge run.
const purgeTimeout = time.Minute

// Scheduler runs housekeeping jobs on a cron schedule.
type Scheduler struct {
	sessions SessionPurger
	cron     *cron.Cron
	done     chan bool
}

// NewScheduler creates a scheduler that purges expired sessions on the
// given cron spec, such as "@hourly" or "*/15 * * * *".
func NewScheduler(sessions SessionPurger, spec string) (*Scheduler, error) {
	s := &Scheduler{
		sessions: sessions,
		cron:     cron.New(),
		done:     make(chan bool),
	}
	if _, err := s.cron.AddFunc(spec, s.purgeExpiredSessions); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", spec, err)
	}
	return s, nil
}

// Run purges once immediately, then on schedule until Stop is called.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler...")

	// Run once immediately on start
	s.purgeExpiredSessions()

	s.cron.Start()
	<-s.done

	// Wait for a running job to finish.
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopping background scheduler.")
}

// Stop halts the scheduler.
func (s *Scheduler) Stop() {
	s.done <- true
}

func (s *Scheduler) purgeExpiredSessions() {
	ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
	defer cancel()

	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Scheduler: failed to purge expired sessions")
		return
	}
	if n > 0 {
		log.Info().Int64("purged", n).Msg("Scheduler: purged expired sessions")
	}
}
