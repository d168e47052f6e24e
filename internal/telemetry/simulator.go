package telemetry

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/setevik/cranewatch/internal/metrics"
)

// HistoryCap bounds the retained snapshot history; the oldest entry is
// evicted once the cap is exceeded.
const HistoryCap = 50

// Stateless channels are redrawn within these bounds on every tick.
const (
	vibrationMin, vibrationMax     = 0.5, 5.0
	temperatureMin, temperatureMax = 20.0, 95.0
	currentMin, currentMax         = 10.0, 60.0
	oilMin, oilMax                 = 4.8, 5.2
	gearboxMin, gearboxMax         = 40.0, 60.0
	hydraulicMin, hydraulicMax     = 115.0, 125.0
	imbalanceMin, imbalanceMax     = 0.0, 1.5
)

// Publisher receives each tick's combined snapshot, e.g. for an MQTT feed.
// Implementations must not block; errors are logged and dropped.
type Publisher interface {
	Publish(Snapshot) error
}

// Simulator owns the current sensor readings and wear metrics and advances
// them on a fixed interval. It is the sole writer; Current and History are
// safe for concurrent readers. The simulator itself never fails.
type Simulator struct {
	interval time.Duration
	pub      Publisher

	mu      sync.RWMutex
	cur     Snapshot
	history []Snapshot
}

// NewSimulator creates a simulator with factory-state degradation seeds.
// pub may be nil to disable tick publication.
func NewSimulator(interval time.Duration, pub Publisher) *Simulator {
	return &Simulator{
		interval: interval,
		pub:      pub,
		cur: Snapshot{
			LoadCycles:        10000,
			BrakeHealth:       98.5,
			MotorHours:        1240.5,
			OilPressure:       5.0,
			GearboxOilTemp:    45.0,
			HydraulicPressure: 120.0,
			VoltageImbalance:  0.5,
			MainBearingWear:   0.05,
			HoistMotorWear:    0.12,
			CableTensionWear:  0.02,
			Timestamp:         time.Now().UTC(),
		},
	}
}

// Run drives the simulator until ctx is cancelled. The first tick fires
// immediately so Current never reports factory state once Run has started.
func (s *Simulator) Run(ctx context.Context) {
	interval := s.interval
	if interval <= 0 {
		interval = 2 * time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.Tick()

	for {
		select {
		case <-ctx.Done():
			slog.Info("telemetry simulator stopped")
			return
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances every channel by one simulated step and appends the combined
// snapshot to the history, evicting the oldest entry past HistoryCap.
func (s *Simulator) Tick() {
	s.mu.Lock()
	prev := s.cur

	next := Snapshot{
		Vibration:         round2(randRange(vibrationMin, vibrationMax)),
		Temperature:       round1(randRange(temperatureMin, temperatureMax)),
		MotorCurrent:      round1(randRange(currentMin, currentMax)),
		LoadCycles:        prev.LoadCycles,
		BrakeHealth:       round2(math.Max(0, prev.BrakeHealth-rand.Float64()*0.01)),
		MotorHours:        round2(prev.MotorHours + 0.01),
		OilPressure:       round2(randRange(oilMin, oilMax)),
		GearboxOilTemp:    round1(randRange(gearboxMin, gearboxMax)),
		HydraulicPressure: round1(randRange(hydraulicMin, hydraulicMax)),
		VoltageImbalance:  round2(randRange(imbalanceMin, imbalanceMax)),
		MainBearingWear:   math.Min(1.0, prev.MainBearingWear+0.0001*rand.Float64()),
		HoistMotorWear:    math.Min(1.0, prev.HoistMotorWear+0.00005*rand.Float64()),
		CableTensionWear:  prev.CableTensionWear,
		Timestamp:         time.Now().UTC(),
	}
	if rand.Float64() > 0.8 {
		next.LoadCycles++
	}

	s.cur = next
	s.history = append(s.history, next)
	if len(s.history) > HistoryCap {
		s.history = s.history[1:]
	}
	s.mu.Unlock()

	metrics.SimulatorTicks.Inc()

	if s.pub != nil {
		if err := s.pub.Publish(next); err != nil {
			slog.Debug("telemetry feed publish failed", "error", err)
		}
	}
}

// Current returns the latest combined snapshot (readings plus wear).
func (s *Simulator) Current() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// History returns the retained snapshots, oldest first.
func (s *Simulator) History() []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Snapshot, len(s.history))
	copy(out, s.history)
	return out
}

func randRange(lo, hi float64) float64 {
	return lo + rand.Float64()*(hi-lo)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
