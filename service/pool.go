package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/to404hanga/pkg404/logger"
	loggerv2 "github.com/to404hanga/pkg404/logger/v2"
)

type Task func(ctx context.Context)

// Pool runs tasks on a fixed number of goroutines fed by a bounded queue.
type Pool struct {
	log     loggerv2.Logger
	tasks   chan Task
	workers int
}

func NewPool(log loggerv2.Logger, workers, queueSize int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	return &Pool{
		log:     log,
		tasks:   make(chan Task, queueSize),
		workers: workers,
	}
}

// Submit blocks until the task is queued or ctx is done.
func (p *Pool) Submit(ctx context.Context, task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the workers and blocks until ctx is done and every running task
// has returned. Tasks still queued at that point are dropped. Running tasks
// are not cancelled by ctx.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	taskCtx := context.WithoutCancel(ctx)
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case task := <-p.tasks:
					p.run(taskCtx, id, task)
				}
			}
		}(i)
	}
	wg.Wait()
}

func (p *Pool) run(ctx context.Context, id int, task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.log.ErrorContext(ctx, "pool task panicked",
				logger.Any("worker", id),
				logger.String("panic", fmt.Sprintf("%v", r)))
		}
	}()
	task(ctx)
}
