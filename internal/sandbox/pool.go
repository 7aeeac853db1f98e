package sandbox

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Pool keeps bootstrapped window contexts ready. Each context comes with its
// own fresh Object delegate. A released context cannot be reset because its
// delegate belongs to whoever used it, so Release closes it and bootstraps
// a replacement.
//
// Like the host it draws from, a pool must be driven from one goroutine at
// a time.
type Pool struct {
	host     *Host
	contexts chan *Context
	size     int
	wait     time.Duration
	mu       sync.RWMutex
	closed   bool
}

// NewPool creates a pool of size contexts
func NewPool(host *Host, size int) (*Pool, error) {
	if size <= 0 {
		size = 4
	}

	pool := &Pool{
		host:     host,
		contexts: make(chan *Context, size),
		size:     size,
		wait:     5 * time.Second,
	}

	for i := 0; i < size; i++ {
		c, err := host.NewContext(NewObject())
		if err != nil {
			pool.Close()
			return nil, err
		}
		pool.contexts <- c
	}

	return pool, nil
}

// Acquire takes a context from the pool
func (p *Pool) Acquire(ctx context.Context) (*Context, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	timer := time.NewTimer(p.wait)
	defer timer.Stop()

	select {
	case c := <-p.contexts:
		return c, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, ErrTimeout
	}
}

// TryAcquire takes a context if one is ready, without waiting
func (p *Pool) TryAcquire() (*Context, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, false
	}

	select {
	case c := <-p.contexts:
		return c, true
	default:
		return nil, false
	}
}

// Release closes a used context and refills the pool
func (p *Pool) Release(c *Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := c.Close(); err != nil {
		return err
	}
	if p.closed {
		return nil
	}

	fresh, err := p.host.NewContext(NewObject())
	if err != nil {
		p.host.logger.Warn("Failed to refill window pool", zap.Error(err))
		return err
	}

	select {
	case p.contexts <- fresh:
		return nil
	default:
		// Pool full
		return fresh.Close()
	}
}

// Execute runs payload in a pooled context and returns the exported result.
// The context is discarded afterwards.
func (p *Pool) Execute(ctx context.Context, payload any, filename string) (any, error) {
	c, err := p.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer p.Release(c)

	v, err := c.EvaluateContext(ctx, payload, filename)
	if err != nil {
		return nil, err
	}
	return Export(v), nil
}

// Close closes the pool and all idle contexts
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}

	p.closed = true
	close(p.contexts)

	for c := range p.contexts {
		c.Close()
	}

	return nil
}

// Stats returns pool statistics
func (p *Pool) Stats() map[string]interface{} {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return map[string]interface{}{
		"size":      p.size,
		"available": len(p.contexts),
		"in_use":    p.size - len(p.contexts),
		"closed":    p.closed,
	}
}
