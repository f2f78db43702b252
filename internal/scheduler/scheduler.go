// Package scheduler fires mode announcements every day at fixed local times.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/xaenox/brawl-guard/internal/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var firedCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "guard_announcements_fired_total",
	Help: "Scheduled announcements handed to the dispatcher, by trigger.",
}, []string{"trigger"})

// Trigger is one daily fire point of a mode.
type Trigger struct {
	Name string
	Mode models.Mode
	At   models.FirePoint
}

// Triggers expands every mode into one trigger per fire point, named like "knockout_0_10".
func Triggers(modes []models.Mode) []Trigger {
	var triggers []Trigger
	for _, mode := range modes {
		for _, at := range mode.Times {
			triggers = append(triggers, Trigger{
				Name: fmt.Sprintf("%s_%d_%d", mode.Name, at.Hour, at.Minute),
				Mode: mode,
				At:   at,
			})
		}
	}
	return triggers
}

// NextFire returns the first instant strictly after now at which the wall
// clock in loc shows at.
func NextFire(now time.Time, loc *time.Location, at models.FirePoint) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !next.After(now) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, at.Hour, at.Minute, 0, 0, loc)
	}
	return next
}

// FireFunc receives the mode of a trigger that went off. It should hand the
// work off quickly; the trigger is not rearmed until it returns.
type FireFunc func(ctx context.Context, mode models.Mode)

type Option func(*Scheduler)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

type Scheduler struct {
	triggers []Trigger
	loc      *time.Location
	fire     FireFunc
	now      func() time.Time
	logger   *zap.Logger
}

func New(modes []models.Mode, loc *time.Location, fire FireFunc, logger *zap.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		triggers: Triggers(modes),
		loc:      loc,
		fire:     fire,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Triggers() []Trigger {
	return s.triggers
}

// Run arms every trigger and blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, t := range s.triggers {
		t := t
		g.Go(func() error {
			s.loop(ctx, t)
			return nil
		})
	}
	s.logger.Info("Scheduler started",
		zap.Int("triggers", len(s.triggers)),
		zap.String("timezone", s.loc.String()))
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, t Trigger) {
	for {
		now := s.now()
		next := NextFire(now, s.loc, t.At)
		s.logger.Debug("Trigger armed",
			zap.String("trigger", t.Name),
			zap.Time("next", next))

		timer := time.NewTimer(next.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		firedCount.WithLabelValues(t.Name).Inc()
		s.logger.Info("Trigger fired", zap.String("trigger", t.Name))
		s.fire(ctx, t.Mode)
	}
}
