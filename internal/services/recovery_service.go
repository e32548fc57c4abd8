// Package services – RecoveryService
//
// This file implements the zombie rescue sweep: a privileged maintenance
// operation that unsticks cases whose worker died between a status flip and
// completion. It is a single bulk UPDATE, not a fetch-loop, so memory is
// bounded and there is no partially-swept state. Rescued cases go back to
// OPEN; no attempt is made to resume the in-flight work.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/casefile-ai/claims-backend/internal/repo"
)

// RecoveryService resets stuck cases.
type RecoveryService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Timeout is the age beyond which PROCESSING/GENERATING cases count as
	// stuck.
	Timeout time.Duration
	// Interval is the period of the Run loop; zero disables it.
	Interval time.Duration
}

// NewRecoveryService constructs a RecoveryService.
func NewRecoveryService(db *gorm.DB, timeout, interval time.Duration) *RecoveryService {
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}
	return &RecoveryService{DB: db, Timeout: timeout, Interval: interval}
}

// Rescue resets every case stuck in PROCESSING or GENERATING for longer than
// timeout back to OPEN in one statement, across all tenants, and returns the
// number of cases rescued. A zero timeout uses the configured default.
func (s *RecoveryService) Rescue(ctx context.Context, timeout time.Duration) (int64, error) {
	tr := otel.Tracer("services/RecoveryService")
	ctx, span := tr.Start(ctx, "Rescue")
	defer span.End()

	if timeout <= 0 {
		timeout = s.Timeout
	}
	cutoff := time.Now().UTC().Add(-timeout)
	span.SetAttributes(attribute.String("rescue.cutoff", cutoff.Format(time.RFC3339)))

	rescued, err := repo.RescueStuckCases(ctx, s.DB, cutoff)
	if err != nil {
		return 0, err
	}
	if rescued > 0 {
		rescuedCasesTotal.Add(float64(rescued))
		log.Warn().
			Int64("rescued", rescued).
			Dur("timeout", timeout).
			Msg("stuck cases reset to OPEN")
	}
	return rescued, nil
}

// Run executes Rescue on a fixed interval until ctx ends. It returns
// immediately when no interval is configured.
func (s *RecoveryService) Run(ctx context.Context) {
	if s.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()
	log.Info().Dur("interval", s.Interval).Dur("timeout", s.Timeout).Msg("rescue sweep started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("rescue sweep stopped")
			return
		case <-ticker.C:
			if _, err := s.Rescue(ctx, s.Timeout); err != nil {
				log.Error().Err(err).Msg("rescue sweep failed")
			}
		}
	}
}
