package processing

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/Epistemic-Technology/paper-assistant/internal/logger"
)

// SimulatorConfig controls the simulated progress ticker.
type SimulatorConfig struct {
	Interval time.Duration
	MaxStep  float64
	// Ceiling is the highest progress the simulation may reach; must be < 100.
	Ceiling float64
}

func DefaultSimulatorConfig() SimulatorConfig {
	return SimulatorConfig{
		Interval: 200 * time.Millisecond,
		MaxStep:  3,
		Ceiling:  90,
	}
}

// Simulator advances a paper's progress on a timer while real work is in
// flight, so a long model call still shows movement.
type Simulator struct {
	machine *Machine
	cfg     SimulatorConfig
	log     logger.Logger
	step    func() float64
}

func NewSimulator(machine *Machine, cfg SimulatorConfig, log logger.Logger) *Simulator {
	defaults := DefaultSimulatorConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = defaults.Interval
	}
	if cfg.MaxStep <= 0 {
		cfg.MaxStep = defaults.MaxStep
	}
	if cfg.Ceiling <= 0 || cfg.Ceiling >= 100 {
		cfg.Ceiling = defaults.Ceiling
	}
	s := &Simulator{machine: machine, cfg: cfg, log: log}
	// Uniform in (0, MaxStep].
	s.step = func() float64 { return cfg.MaxStep * (1 - rand.Float64()) }
	return s
}

// Start ticks progress for the paper until it reaches a terminal state, is
// deleted, ctx is cancelled, or the returned stop function is called. stop
// blocks until the ticker goroutine has exited and is safe to call twice.
func (s *Simulator) Start(ctx context.Context, paperID string) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.cfg.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.machine.Nudge(paperID, s.step(), s.cfg.Ceiling); err != nil {
					if !errors.Is(err, ErrTerminal) && !errors.Is(err, ErrPaperNotFound) {
						s.log.Warn("Progress simulation for paper %s stopped: %v", paperID, err)
					}
					return
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
