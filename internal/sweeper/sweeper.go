// Package sweeper reclaims expired pending holds in the background.
// Correctness never depends on it: every read path already treats an
// expired hold as free.  The sweeper only keeps the table tidy and evicts
// orphaned verification codes.
package sweeper

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/medibook/doctor-appointment-booking/internal/metrics"
	"github.com/medibook/doctor-appointment-booking/internal/otp"
	"github.com/medibook/doctor-appointment-booking/internal/repository"
)

// Sweeper periodically cancels pending appointments whose hold lapsed and
// prunes the verification code cache.
type Sweeper struct {
	appts    *repository.AppointmentRepo
	codes    *otp.Store
	interval time.Duration
	log      zerolog.Logger
}

// New builds a sweeper.  A non-positive interval falls back to one minute.
func New(appts *repository.AppointmentRepo, codes *otp.Store, interval time.Duration, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{appts: appts, codes: codes, interval: interval, log: log}
}

// Run blocks sweeping on every tick until ctx is cancelled.  Intended to
// be started as a goroutine from main.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("sweeper: stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.appts.CancelExpiredPending(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("sweeper: cancel expired holds failed")
		return
	}
	for _, id := range ids {
		s.codes.Evict(id)
	}
	// Codes whose appointment was resolved out of band still age out here.
	expired := s.codes.SweepExpired(time.Now().UTC())

	if len(ids) > 0 || len(expired) > 0 {
		metrics.AddSwept(len(ids))
		s.log.Info().
			Int("holds_cancelled", len(ids)).
			Int("codes_expired", len(expired)).
			Msg("sweeper: pass complete")
	}
}
