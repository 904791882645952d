package lifecycle

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/spigell/jd-comparator/internal/comparator"
)

const msgUnexpected = "An unexpected error occurred"

// Comparer performs a single comparison request.
type Comparer interface {
	Compare(ctx context.Context, p *comparator.Payload) (*comparator.Result, error)
}

// Controller owns the request lifecycle. At most one request is in flight:
// Submit aborts the previous one, and only the flow holding the current
// generation may write the final state.
type Controller struct {
	comparer Comparer
	logger   *zap.Logger

	// OnChange is called on every transition while the controller lock is
	// held; it must not call back into the controller.
	OnChange func(State)

	mu         sync.Mutex
	state      State
	cancel     context.CancelFunc
	generation uint64
	flows      sync.WaitGroup
}

func New(comparer Comparer, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controller{
		comparer: comparer,
		logger:   logger,
		state:    Idle{},
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Submit cancels any in-flight request, enters Loading and runs the request
// in the background. Observe the outcome with State or Wait.
func (c *Controller) Submit(ctx context.Context, p *comparator.Payload) {
	c.mu.Lock()
	c.abortLocked()

	flowCtx, cancel := context.WithCancel(ctx)
	c.generation++
	generation := c.generation
	c.cancel = cancel
	c.setLocked(Loading{Generation: generation})
	c.flows.Add(1)
	c.mu.Unlock()

	go c.run(flowCtx, cancel, generation, p)
}

// Cancel aborts the in-flight request, if any, and returns to Idle without an error.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.abortLocked() {
		c.setLocked(Idle{})
	}
}

// Reset aborts any in-flight request and clears the result and error.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.abortLocked()
	c.setLocked(Idle{})
}

// Wait blocks until every started request has settled.
func (c *Controller) Wait() {
	c.flows.Wait()
}

func (c *Controller) run(ctx context.Context, cancel context.CancelFunc, generation uint64, p *comparator.Payload) {
	defer c.flows.Done()
	defer cancel()

	result, err := c.comparer.Compare(ctx, p)

	c.mu.Lock()
	defer c.mu.Unlock()

	if generation != c.generation {
		c.logger.Debug("discarding stale response", zap.Uint64("generation", generation))
		return
	}
	c.cancel = nil

	switch {
	case err == nil:
		c.setLocked(Success{Result: result})
	case errors.Is(err, context.Canceled):
		c.setLocked(Idle{})
	default:
		c.setLocked(Failed{Message: failureMessage(err), Err: err})
	}
}

// abortLocked cancels the current flow and invalidates its generation.
func (c *Controller) abortLocked() bool {
	if c.cancel == nil {
		return false
	}

	c.cancel()
	c.cancel = nil
	c.generation++

	return true
}

func (c *Controller) setLocked(s State) {
	c.state = s

	fields := []zap.Field{zap.String("state", s.Name()), zap.Uint64("generation", c.generation)}
	if failed, ok := s.(Failed); ok {
		fields = append(fields, zap.Error(failed.Err))
	}
	c.logger.Debug("comparison state changed", fields...)

	if c.OnChange != nil {
		c.OnChange(s)
	}
}

func failureMessage(err error) string {
	if msg := err.Error(); msg != "" {
		return msg
	}
	return msgUnexpected
}
