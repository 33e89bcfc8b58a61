package tracking

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Temutjin2k/tracking-relay/internal/domain/models"
	"github.com/Temutjin2k/tracking-relay/internal/domain/types"
	"github.com/Temutjin2k/tracking-relay/pkg/logger"
	wrap "github.com/Temutjin2k/tracking-relay/pkg/logger/wrapper"
	"github.com/Temutjin2k/tracking-relay/pkg/metrics"
)

const (
	minSimulatedSpeed   = 20
	speedSpread         = 40
	headingSpreadDegree = 360
)

type SimulatorConfig struct {
	Enabled  bool
	Interval time.Duration
	Jitter   float64 // max absolute step in degrees
}

// Simulator nudges every located driver on a fixed period so booking topics
// stay alive without a GPS feed.
type Simulator struct {
	tracker *Tracker
	cfg     SimulatorConfig
	log     logger.Logger

	rndMu sync.Mutex
	rnd   *rand.Rand

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

type SimulatorOption func(*Simulator)

// WithRand fixes the random source, for deterministic runs.
func WithRand(r *rand.Rand) SimulatorOption {
	return func(s *Simulator) { s.rnd = r }
}

func NewSimulator(tracker *Tracker, cfg SimulatorConfig, log logger.Logger, opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		tracker: tracker,
		cfg:     cfg,
		log:     log,
		rnd:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the ticking goroutine. It is a no-op when the simulator is
// disabled, has a non-positive interval or is already running.
func (s *Simulator) Start(ctx context.Context) {
	ctx = wrap.WithAction(ctx, types.ActionSimulatorTick)

	if !s.cfg.Enabled || s.cfg.Interval <= 0 {
		s.log.Info(ctx, "motion simulator disabled")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.log.Info(ctx, "motion simulator started", "interval", s.cfg.Interval.String(), "jitter", s.cfg.Jitter)
}

// Stop halts the goroutine and waits for the tick in progress, if any.
func (s *Simulator) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (s *Simulator) run(ctx context.Context, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one simulation step and returns the number of drivers moved.
func (s *Simulator) Tick(ctx context.Context) int {
	moved := s.tracker.Move(ctx, s.step)

	metrics.SimulatorTicksTotal.Inc()
	metrics.SimulatedUpdatesTotal.Add(float64(moved))
	if moved > 0 {
		s.log.Debug(ctx, "simulated driver motion", "drivers", moved)
	}
	return moved
}

func (s *Simulator) step(pos models.DriverPosition) models.LocationUpdate {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()

	return models.LocationUpdate{
		UserID:    pos.DriverID,
		BookingID: pos.BookingID,
		Location:  pos.Location.Offset(s.perturb(), s.perturb()),
		Speed:     float64(minSimulatedSpeed + s.rnd.IntN(speedSpread)),
		Heading:   float64(s.rnd.IntN(headingSpreadDegree)),
	}
}

// perturb returns a uniform value in [-Jitter, Jitter).
func (s *Simulator) perturb() float64 {
	return (s.rnd.Float64() - 0.5) * 2 * s.cfg.Jitter
}
