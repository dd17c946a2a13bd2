package ops

import (
	"context"
	"sync"
)

// Controller is the shared pause/cancel/progress handle for one running
// operation. Exactly one executor writes a controller's progress; the
// issuer reads progress and state and writes the pause and cancel flags.
// A single mutex guards the whole struct.
type Controller struct {
	mu   sync.Mutex
	cond *sync.Cond

	ctx      context.Context
	cancelFn context.CancelFunc

	paused    bool
	cancelled bool
	progress  float64
	phase     string
}

// NewController creates a controller in the queued state
func NewController() *Controller {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{ctx: ctx, cancelFn: cancel, phase: "Queued"}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// Pause asks the executor to suspend at its next checkpoint. Idempotent;
// pausing is cooperative and has no guaranteed immediate effect.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.paused = true
	c.mu.Unlock()
}

// Unpause resumes a paused operation. Idempotent.
func (c *Controller) Unpause() {
	c.mu.Lock()
	c.paused = false
	c.mu.Unlock()
	c.cond.Broadcast()
}

// Cancel stops the operation at its next checkpoint. Idempotent and
// monotonic: once cancelled, a controller never becomes uncancelled.
// Cancellation overrides pause and short-circuits any conflict wait.
func (c *Controller) Cancel() {
	c.mu.Lock()
	if c.cancelled {
		c.mu.Unlock()
		return
	}
	c.cancelled = true
	c.mu.Unlock()

	c.cancelFn()
	c.cond.Broadcast()
}

// IsPaused reports whether a pause has been requested
func (c *Controller) IsPaused() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused
}

// IsCancelled reports whether the operation has been cancelled
func (c *Controller) IsCancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelled
}

// Progress returns the completion fraction in [0,1]. Safe to call while
// the executor is writing it.
func (c *Controller) Progress() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.progress
}

// State returns a descriptive state summary: the execution phase, or
// "Paused"/"Cancelled" when the corresponding flag dominates
func (c *Controller) State() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.cancelled:
		return "Cancelled"
	case c.paused:
		return "Paused"
	}
	return c.phase
}

// Done returns a channel closed when the operation is cancelled
func (c *Controller) Done() <-chan struct{} {
	return c.ctx.Done()
}

// setProgress records progress. Monotonic: decreases are ignored, and
// nothing is recorded after cancellation.
func (c *Controller) setProgress(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	c.mu.Lock()
	if !c.cancelled && p > c.progress {
		c.progress = p
	}
	c.mu.Unlock()
}

// setPhase records the executor's current phase text
func (c *Controller) setPhase(phase string) {
	c.mu.Lock()
	c.phase = phase
	c.mu.Unlock()
}

func (c *Controller) currentPhase() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// await is the executor's checkpoint. It blocks (without burning CPU)
// while the operation is paused and returns ErrCancelled once the
// operation is cancelled; cancellation takes priority over pause.
func (c *Controller) await() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for {
		if c.cancelled {
			return ErrCancelled
		}
		if !c.paused {
			return nil
		}
		c.cond.Wait()
	}
}
