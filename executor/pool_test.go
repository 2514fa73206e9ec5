package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeContainers struct {
	mu      sync.Mutex
	next    int
	failAt  map[int]bool // 第 n 次启动失败
	calls   int
	running map[string]bool
	removed []string
}

func newFakeContainers() *fakeContainers {
	return &fakeContainers{failAt: map[int]bool{}, running: map[string]bool{}}
}

func (f *fakeContainers) start(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt[f.calls] {
		return "", errors.New("docker daemon busy")
	}
	f.next++
	id := fmt.Sprintf("c%d", f.next)
	f.running[id] = true
	return id, nil
}

func (f *fakeContainers) remove(_ context.Context, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.running, id)
	f.removed = append(f.removed, id)
}

func (f *fakeContainers) runningIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.running))
	for id := range f.running {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func TestContainerPoolWarmFailureRemovesStarted(t *testing.T) {
	t.Parallel()
	fc := newFakeContainers()
	fc.failAt[3] = true
	p := newContainerPool(3, fc.start, fc.remove)

	if err := p.warm(context.Background()); err == nil {
		t.Fatalf("expected warm to fail")
	}
	if ids := fc.runningIDs(); len(ids) != 0 {
		t.Fatalf("containers leaked after failed warm: %v", ids)
	}
}

func TestContainerPoolStartsOnDemandAfterFailure(t *testing.T) {
	t.Parallel()
	fc := newFakeContainers()
	p := newContainerPool(1, fc.start, fc.remove)
	ctx := context.Background()

	// 一次启动失败不会让池子永久不可用
	fc.failAt[1] = true
	if _, err := p.acquire(ctx); err == nil {
		t.Fatalf("expected first acquire to fail")
	}
	id, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire after transient failure failed: %v", err)
	}
	p.release(ctx, id, true)

	again, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if again != id {
		t.Fatalf("expected idle container %s to be reused, got %s", id, again)
	}
	p.release(ctx, again, true)
}

func TestContainerPoolReplacesUnhealthyContainer(t *testing.T) {
	t.Parallel()
	fc := newFakeContainers()
	p := newContainerPool(1, fc.start, fc.remove)
	ctx := context.Background()
	if err := p.warm(ctx); err != nil {
		t.Fatalf("warm failed: %v", err)
	}

	id, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	p.release(ctx, id, false)

	next, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	if next == id {
		t.Fatalf("unhealthy container %s handed out again", id)
	}
	if ids := fc.runningIDs(); len(ids) != 1 || ids[0] != next {
		t.Fatalf("unexpected running containers: %v", ids)
	}
	p.release(ctx, next, true)
}

func TestContainerPoolCloseWaitsForInFlight(t *testing.T) {
	t.Parallel()
	fc := newFakeContainers()
	p := newContainerPool(2, fc.start, fc.remove)
	ctx := context.Background()
	if err := p.warm(ctx); err != nil {
		t.Fatalf("warm failed: %v", err)
	}

	id, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}

	closed := make(chan struct{})
	go func() {
		p.close(ctx)
		close(closed)
	}()

	select {
	case <-closed:
		t.Fatalf("close returned while a run was in flight")
	case <-time.After(50 * time.Millisecond):
	}
	if _, err = p.acquire(ctx); !errors.Is(err, errPoolClosed) {
		t.Fatalf("expected errPoolClosed, got %v", err)
	}

	p.release(ctx, id, true)
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatalf("close did not return after release")
	}
	if ids := fc.runningIDs(); len(ids) != 0 {
		t.Fatalf("containers left after close: %v", ids)
	}
}

func TestContainerPoolAcquireHonorsContext(t *testing.T) {
	t.Parallel()
	fc := newFakeContainers()
	p := newContainerPool(1, fc.start, fc.remove)
	ctx := context.Background()

	id, err := p.acquire(ctx)
	if err != nil {
		t.Fatalf("acquire failed: %v", err)
	}
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if _, err = p.acquire(waitCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	p.release(ctx, id, true)
	p.close(ctx)
}
