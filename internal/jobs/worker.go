package jobs

import (
	"context"
	"log"
	"time"
)

// JobProcessor drains whatever work is currently claimable.
type JobProcessor interface {
	ProcessJobs(ctx context.Context) error
}

// Worker polls a JobProcessor on a fixed interval until stopped.
type Worker struct {
	processor    JobProcessor
	pollInterval time.Duration
	stopChan     chan struct{}
	doneChan     chan struct{}
}

func NewWorker(processor JobProcessor, pollInterval time.Duration) *Worker {
	return &Worker{
		processor:    processor,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// Start runs the polling loop. It drains once immediately so jobs enqueued
// before startup are not delayed by a full poll interval, then ticks until
// the context is cancelled or Stop is called.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("embedding worker started, polling every %v", w.pollInterval)

	w.drain(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("embedding worker stopped: context cancelled")
			return
		case <-w.stopChan:
			log.Println("embedding worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	if err := w.processor.ProcessJobs(ctx); err != nil {
		log.Printf("embedding worker: process jobs: %v", err)
	}
}

// Stop signals the loop to exit and blocks until it has.
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
}
