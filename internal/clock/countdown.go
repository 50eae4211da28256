// Package clock provides the pausable, resumable countdowns that gate the
// buzzing and answering windows. Time comes from a clockwork.Clock so tests
// drive a fake clock.
package clock

import (
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// State is the lifecycle state of a countdown.
type State string

const (
	StateIdle     State = "IDLE"
	StateWaiting  State = "WAITING"
	StateRunning  State = "RUNNING"
	StatePaused   State = "PAUSED"
	StateFinished State = "FINISHED"
)

// totalSteps is the progress granularity: remaining time is tracked as an
// integer 0-100 so pause/resume reconstructs the remaining fraction without
// drifting more than one tick.
const totalSteps = 100

var (
	ErrNotIdle    = errors.New("countdown not idle")
	ErrNotRunning = errors.New("countdown not running")
	ErrNotPaused  = errors.New("countdown not paused")
)

// Countdown is a single resumable timer. The owner receives the fire through
// onElapsed along with the generation the run was started under; fires for a
// stale generation must be dropped by the owner.
type Countdown struct {
	mu         sync.Mutex
	clock      clockwork.Clock
	state      State
	progress   int
	tick       time.Duration
	generation uint64
	stopCh     chan struct{}
	onElapsed  func(generation uint64)
}

// NewCountdown creates an idle countdown. onElapsed is invoked on its own
// goroutine when a run reaches zero.
func NewCountdown(clk clockwork.Clock, onElapsed func(generation uint64)) *Countdown {
	return &Countdown{
		clock:     clk,
		state:     StateIdle,
		onElapsed: onElapsed,
	}
}

// Arm marks an idle countdown as waiting without starting the ticks. Used
// while a clue is being read and the window is not yet open.
func (c *Countdown) Arm() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle {
		return ErrNotIdle
	}
	c.state = StateWaiting
	return nil
}

// Start begins a run of the full duration. Valid from idle or waiting.
func (c *Countdown) Start(d time.Duration) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateIdle && c.state != StateWaiting {
		return 0, ErrNotIdle
	}
	c.generation++
	c.progress = totalSteps
	c.tick = d / totalSteps
	if c.tick <= 0 {
		c.tick = time.Millisecond
	}
	c.startTickingLocked()
	return c.generation, nil
}

// Pause freezes a running countdown, retaining the remaining fraction.
func (c *Countdown) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRunning {
		return ErrNotRunning
	}
	c.stopTickingLocked()
	c.state = StatePaused
	return nil
}

// Resume restarts a paused countdown so that the supplied remaining duration
// is spread over the frozen progress. The generation is unchanged: a resume
// continues the same run.
func (c *Countdown) Resume(remaining time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StatePaused {
		return ErrNotPaused
	}
	if c.progress <= 0 {
		c.progress = 1
	}
	c.tick = remaining / time.Duration(c.progress)
	if c.tick <= 0 {
		c.tick = time.Millisecond
	}
	c.startTickingLocked()
	return nil
}

// Reset cancels any run and returns to idle from any state. Generation is
// bumped so an in-flight fire becomes stale.
func (c *Countdown) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopTickingLocked()
	c.generation++
	c.progress = 0
	c.state = StateIdle
}

// State returns the current lifecycle state.
func (c *Countdown) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Progress returns the remaining fraction as an integer 0-100.
func (c *Countdown) Progress() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// Remaining reconstructs the remaining duration from progress and tick size.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Duration(c.progress) * c.tick
}

// Generation returns the current run generation.
func (c *Countdown) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *Countdown) startTickingLocked() {
	c.state = StateRunning
	stopCh := make(chan struct{})
	c.stopCh = stopCh
	gen := c.generation
	ticker := c.clock.NewTicker(c.tick)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.Chan():
				if fired := c.step(gen, stopCh); fired {
					return
				}
			}
		}
	}()
}

// step decrements progress for one tick and reports whether the run elapsed.
func (c *Countdown) step(gen uint64, stopCh chan struct{}) bool {
	c.mu.Lock()
	if c.generation != gen || c.state != StateRunning || c.stopCh != stopCh {
		c.mu.Unlock()
		return true
	}
	c.progress--
	if c.progress > 0 {
		c.mu.Unlock()
		return false
	}
	c.progress = 0
	c.state = StateFinished
	c.stopCh = nil
	c.mu.Unlock()

	log.Debug().Uint64("generation", gen).Msg("countdown elapsed")
	if c.onElapsed != nil {
		go c.onElapsed(gen)
	}
	return true
}

func (c *Countdown) stopTickingLocked() {
	if c.stopCh != nil {
		close(c.stopCh)
		c.stopCh = nil
	}
}
