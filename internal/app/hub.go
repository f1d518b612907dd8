package app

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/dkeye/pulse/internal/metrics"
	"github.com/rs/zerolog/log"
)

var ErrHubStopped = errors.New("hub stopped")

// Hub is the single dispatch queue of a process. Every state mutation runs as a task on the
// Hub goroutine, so Registry, RoomManager and CallManager need no locks.
// Tasks must not block on I/O and must never call Do.
type Hub struct {
	tasks   chan func()
	done    chan struct{}
	metrics *metrics.Metrics
}

func NewHub(queue int, m *metrics.Metrics) *Hub {
	if queue <= 0 {
		queue = 1024
	}
	return &Hub{
		tasks:   make(chan func(), queue),
		done:    make(chan struct{}),
		metrics: m,
	}
}

// Post enqueues task, blocking while the queue is full. It reports false once the Hub stopped.
func (h *Hub) Post(task func()) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.tasks <- task:
		return true
	case <-h.done:
		return false
	}
}

// Do runs task on the Hub and waits for it to finish.
func (h *Hub) Do(ctx context.Context, task func()) error {
	finished := make(chan struct{})
	if !h.Post(func() {
		defer close(finished)
		task()
	}) {
		return ErrHubStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-h.done:
		return ErrHubStopped
	}
}

// Run executes tasks one at a time until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	log.Info().Str("module", "app.hub").Int("queue", cap(h.tasks)).Msg("dispatch loop started")
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.hub").Msg("dispatch loop stopped")
			return nil
		case task := <-h.tasks:
			h.exec(task)
		}
	}
}

func (h *Hub) exec(task func()) {
	defer func() {
		if r := recover(); r != nil {
			h.metrics.Panic()
			log.Error().Str("module", "app.hub").Interface("panic", r).Bytes("stack", debug.Stack()).Msg("task panicked")
		}
	}()
	task()
}
