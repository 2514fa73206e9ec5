package executor

import (
	"context"
	"errors"
	"sync"
)

var errPoolClosed = errors.New("container pool closed")

// containerPool hands out judger containers. A slot is taken for every run;
// a run on a slot without an idle container starts a new one, so containers
// lost to timeouts are replaced lazily.
type containerPool struct {
	slots chan struct{}
	done  chan struct{}

	mu       sync.Mutex
	idle     []string
	closed   bool
	inflight sync.WaitGroup

	start  func(ctx context.Context) (string, error)
	remove func(ctx context.Context, id string)
}

func newContainerPool(size int, start func(ctx context.Context) (string, error), remove func(ctx context.Context, id string)) *containerPool {
	if size <= 0 {
		size = 1
	}
	p := &containerPool{
		slots:  make(chan struct{}, size),
		done:   make(chan struct{}),
		start:  start,
		remove: remove,
	}
	for i := 0; i < size; i++ {
		p.slots <- struct{}{}
	}
	return p
}

// warm starts one container per slot. When any start fails the containers
// started so far are removed.
func (p *containerPool) warm(ctx context.Context) error {
	started := make([]string, 0, cap(p.slots))
	for i := 0; i < cap(p.slots); i++ {
		id, err := p.start(ctx)
		if err != nil {
			for _, s := range started {
				p.remove(ctx, s)
			}
			return err
		}
		started = append(started, id)
	}
	p.mu.Lock()
	p.idle = append(p.idle, started...)
	p.mu.Unlock()
	return nil
}

func (p *containerPool) acquire(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return "", errPoolClosed
	}
	p.inflight.Add(1)
	p.mu.Unlock()

	select {
	case <-p.slots:
	case <-ctx.Done():
		p.inflight.Done()
		return "", ctx.Err()
	case <-p.done:
		p.inflight.Done()
		return "", errPoolClosed
	}

	p.mu.Lock()
	if n := len(p.idle); n > 0 {
		id := p.idle[n-1]
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		return id, nil
	}
	p.mu.Unlock()

	id, err := p.start(ctx)
	if err != nil {
		p.slots <- struct{}{}
		p.inflight.Done()
		return "", err
	}
	return id, nil
}

// release gives the container back. An unhealthy container is removed and
// its slot starts a fresh one on the next acquire.
func (p *containerPool) release(ctx context.Context, id string, healthy bool) {
	defer p.inflight.Done()
	if healthy {
		p.mu.Lock()
		p.idle = append(p.idle, id)
		p.mu.Unlock()
	} else {
		p.remove(ctx, id)
	}
	p.slots <- struct{}{}
}

// close waits for in-flight runs and removes every idle container.
func (p *containerPool) close(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	p.mu.Unlock()

	p.inflight.Wait()

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()
	for _, id := range idle {
		p.remove(ctx, id)
	}
}
