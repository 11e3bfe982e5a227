package jobs

import (
	"context"
	"log"
	"sync"
	"time"
)

// JobProcessor defines the interface for processing jobs
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor until stopped. The first sweep runs immediately so jobs
// left over from a previous process are picked up at startup.
type Worker struct {
	name         string
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
	stopOnce     sync.Once
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		name:         name,
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop and blocks until Stop is called or ctx is done.
// Stop cancels an in-flight sweep.
func (w *Worker) Start(ctx context.Context) {
	defer close(w.doneChan)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-w.stopChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	log.Printf("%s worker started with poll interval: %v", w.name, w.pollInterval)

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped", w.name)
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.processor.ProcessJobs(ctx); err != nil && ctx.Err() == nil {
		log.Printf("%s worker: error processing jobs: %v", w.name, err)
	}
}

// Stop gracefully stops the worker. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
	<-w.doneChan
	log.Printf("%s worker shutdown complete", w.name)
}
