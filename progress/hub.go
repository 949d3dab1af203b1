package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"revenue-svc/models"
)

// maxWatch bounds how long a tracker stays alive for a payment that never
// reaches a terminal status.
const maxWatch = 30 * time.Minute

// Hub routes pushed payment observations from the change feed to a tracker
// per reference, creating trackers on first sight and dropping them once
// they finish.
type Hub struct {
	factory func(reference string) *Tracker
	logger  *zap.Logger

	mu       sync.Mutex
	trackers map[string]*Tracker
	cancels  map[string]context.CancelFunc
	closed   bool
}

func NewHub(factory func(reference string) *Tracker, logger *zap.Logger) *Hub {
	return &Hub{
		factory:  factory,
		logger:   logger,
		trackers: make(map[string]*Tracker),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Dispatch hands one observation to the payment's tracker, starting one if
// none is watching yet.
func (h *Hub) Dispatch(p models.Payment) {
	if p.Reference == "" {
		return
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	t, ok := h.trackers[p.Reference]
	if !ok {
		t = h.factory(p.Reference)
		if t == nil {
			h.mu.Unlock()
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), maxWatch)
		h.trackers[p.Reference] = t
		h.cancels[p.Reference] = cancel
		go func(reference string) {
			t.Run(ctx)
			cancel()
			h.remove(reference)
		}(p.Reference)
		h.logger.Info("Tracking payment", zap.String("reference", p.Reference))
	}
	h.mu.Unlock()

	t.Observe(p)
}

func (h *Hub) remove(reference string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.trackers, reference)
	delete(h.cancels, reference)
}

// Stop cancels every live tracker.
func (h *Hub) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for _, cancel := range h.cancels {
		cancel()
	}
}
