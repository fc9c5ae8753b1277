package orchestrator

import (
	"context"
	"sync"
)

// Handle controls a batch started with Start.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu     sync.Mutex
	result *BatchResult
	err    error
}

// Start runs OrchestrateAll in the background. Stop on the returned handle
// interrupts the in-flight agent and ends the batch after it.
func (o *Orchestrator) Start(ctx context.Context, opts Options) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		defer cancel()
		res, err := o.OrchestrateAll(ctx, opts)
		h.mu.Lock()
		h.result, h.err = res, err
		h.mu.Unlock()
	}()
	return h
}

// Stop requests cancellation. It does not wait; call Wait for the result.
func (h *Handle) Stop() {
	h.cancel()
}

// Done is closed when the batch has finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the batch finishes and returns its outcome.
func (h *Handle) Wait() (*BatchResult, error) {
	<-h.done
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}
