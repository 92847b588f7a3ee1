// Package poller drives the light to track builder status: one fetch, at most
// one light update, then sleep out the rest of the interval.
package poller

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akm/buildbot-lights/internal/buildbot"
	"github.com/akm/buildbot-lights/internal/logging"
	"github.com/akm/buildbot-lights/internal/status"
	"github.com/akm/buildbot-lights/lights"
)

var logger = logging.New("poller")

// Source is the pull side of the loop.
type Source interface {
	FetchStatus(ctx context.Context) (buildbot.Status, error)
}

type Config struct {
	Interval         time.Duration
	FailureThreshold int
	MinDwell         time.Duration
}

// State is the loop's entire memory, passed into and out of every cycle.
// Invariant after an applied cycle: Color == status.ColorFor(Status).
type State struct {
	Status    buildbot.Status
	Color     lights.Color
	ChangedAt time.Time
	Failures  int
	// OfflineShown records that the offline color has already been applied
	// for the current failure streak.
	OfflineShown bool
}

type Poller struct {
	config Config
	source Source
	lights lights.LightService

	now func() time.Time
}

func New(config Config, source Source, lightService lights.LightService) *Poller {
	return &Poller{
		config: config,
		source: source,
		lights: lightService,
		now:    time.Now,
	}
}

// Run polls until ctx is cancelled. Cycles are strictly sequential; light
// updates happen in poll order.
func (p *Poller) Run(ctx context.Context) {
	var state State
	var lastWarning time.Time

	for {
		if ctx.Err() != nil {
			return
		}

		if p.lights.LightCount() == 0 {
			logger.Debug("No lights available - skipping cycle")
			if !p.sleep(ctx, p.config.Interval) {
				return
			}
			continue
		}

		startTime := p.now()
		state = p.step(ctx, state)
		cycleDuration := time.Since(startTime)

		if cycleDuration > p.config.Interval {
			if time.Since(lastWarning) > 10*time.Second {
				logger.With(zap.Stringer("cycleDuration", cycleDuration)).
					Warn("Poll cycle exceeded POLL_INTERVAL. Consider increasing POLL_INTERVAL or HTTP_TIMEOUT headroom.")
				lastWarning = time.Now()
			}
		} else if !p.sleep(ctx, p.config.Interval-cycleDuration) {
			return
		}
	}
}

// step runs a single poll cycle against the given state and returns the next
// state. Never fatal: fetch and light errors are absorbed and retried on the
// following cycle.
func (p *Poller) step(ctx context.Context, state State) State {
	current, err := p.source.FetchStatus(ctx)
	if err != nil {
		return p.stepFailed(ctx, state, err)
	}

	state.Failures = 0
	state.OfflineShown = false

	target := status.ColorFor(current)
	if target == state.Color {
		// Same display, no IR churn. Track the status so log output stays
		// truthful (e.g. failure -> exception both show as non-green).
		state.Status = current
		return state
	}

	if !state.ChangedAt.IsZero() && p.now().Sub(state.ChangedAt) < p.config.MinDwell {
		logger.With(
			zap.Stringer("status", current),
			zap.Stringer("sinceChange", p.now().Sub(state.ChangedAt))).
			Debug("Holding color within minimum dwell")
		return state
	}

	if err := p.lights.SetColor(ctx, target); err != nil {
		logger.With(zap.Stringer("status", current), zap.Error(err)).
			Error("Failed to set light color - will retry next cycle")
		return state
	}

	logger.With(zap.Stringer("status", current), zap.Any("color", target)).
		Info("Build status changed")
	state.Status = current
	state.Color = target
	state.ChangedAt = p.now()
	return state
}

// stepFailed counts a fetch failure and, once the streak reaches the
// threshold, flips the display to the offline color exactly once. The light
// keeps its previous color below the threshold so a transient blip never
// blanks it.
func (p *Poller) stepFailed(ctx context.Context, state State, err error) State {
	state.Failures++
	logger.With(zap.Error(err), zap.Int("consecutiveFailures", state.Failures)).
		Warn("Failed to fetch build status")

	if state.Failures < p.config.FailureThreshold || state.OfflineShown {
		return state
	}

	target := status.ColorFor(buildbot.StatusOffline)
	if err := p.lights.SetColor(ctx, target); err != nil {
		logger.With(zap.Error(err)).Error("Failed to set offline color - will retry next cycle")
		return state
	}

	logger.With(zap.Int("consecutiveFailures", state.Failures)).
		Warn("Builder unreachable - showing offline color")
	state.Status = buildbot.StatusOffline
	state.Color = target
	state.ChangedAt = p.now()
	state.OfflineShown = true
	return state
}

// sleep waits for d or until ctx is cancelled, reporting whether the loop
// should continue.
func (p *Poller) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
