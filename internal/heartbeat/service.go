// Package heartbeat runs a callback on a fixed interval until it fails or the
// context ends. The transport uses it to ping the router.
package heartbeat

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultInterval is used when NewService is given a non-positive interval.
const DefaultInterval = 30 * time.Second

// OnBeatFunc is called once per interval.
type OnBeatFunc func(ctx context.Context) error

// Service runs OnBeatFunc periodically.
type Service struct {
	name     string
	onBeat   OnBeatFunc
	interval time.Duration
}

// NewService creates a heartbeat Service. name only labels log lines.
func NewService(name string, onBeat OnBeatFunc, interval time.Duration) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Service{
		name:     name,
		onBeat:   onBeat,
		interval: interval,
	}
}

// Interval returns the effective beat interval.
func (s *Service) Interval() time.Duration { return s.interval }

// Start beats until ctx is cancelled or a beat fails. A failed beat stops the
// service and is returned.
func (s *Service) Start(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Debug("heartbeat: started", "name", s.name, "interval", s.interval)

	for {
		select {
		case <-ticker.C:
			if err := s.onBeat(ctx); err != nil {
				return fmt.Errorf("heartbeat %s: %w", s.name, err)
			}
		case <-ctx.Done():
			slog.Debug("heartbeat: stopped", "name", s.name)
			return ctx.Err()
		}
	}
}
