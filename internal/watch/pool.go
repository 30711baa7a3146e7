package watch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Pool drains the event queue with a fixed number of pipeline workers,
// decoupling notification delivery from scan latency.
type Pool struct {
	pipeline *Pipeline
	workers  int
	log      *zap.Logger
}

func NewPool(pipeline *Pipeline, workers int, log *zap.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{pipeline: pipeline, workers: workers, log: log}
}

// Run blocks until the queue closes or the context ends.
func (p *Pool) Run(ctx context.Context, events <-chan Event) {
	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-events:
					if !ok {
						return
					}
					if _, err := p.pipeline.Process(ctx, ev.Path); err != nil && ctx.Err() == nil {
						p.log.Error("pipeline failure",
							zap.String("path", ev.Path),
							zap.Error(err))
					}
				}
			}
		}()
	}
	wg.Wait()
}
