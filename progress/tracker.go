package progress

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"revenue-svc/models"
)

type State int

const (
	StateIdle State = iota
	StateWatching
	StateTerminal
)

// PollFunc reads the payment's current row from the store.
type PollFunc func(ctx context.Context) (models.Payment, error)

const defaultPollInterval = 5 * time.Second

type Config struct {
	Reference  string
	Interval   time.Duration
	Poll       PollFunc
	OnComplete func(models.Payment)
	OnFailure  func(reason string)
	Logger     *zap.Logger
}

// Tracker watches one payment until it reaches a terminal status. It owns
// the fired-once guarantee for the terminal callbacks: poll ticks and push
// observations funnel through a single channel, and an observation whose
// updated_at is older than the newest one seen is dropped, so a stale push
// cannot regress a newer poll result.
type Tracker struct {
	cfg Config
	obs chan models.Payment

	mu          sync.Mutex
	state       State
	seen        bool
	lastUpdated time.Time
	steps       [NumStages]models.ProgressStep
	percent     int
}

func NewTracker(cfg Config) *Tracker {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultPollInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	t := &Tracker{
		cfg: cfg,
		obs: make(chan models.Payment, 16),
	}
	for i := range t.steps {
		t.steps[i] = models.ProgressStep{Stage: Stages[i], Status: models.StagePending}
	}
	return t
}

// Observe feeds a pushed payment observation into the tracker. It never
// blocks; if the buffer is full the observation is dropped and the next
// poll tick covers it.
func (t *Tracker) Observe(p models.Payment) {
	select {
	case t.obs <- p:
	default:
		t.cfg.Logger.Debug("observation buffer full, dropping",
			zap.String("reference", t.cfg.Reference))
	}
}

// Run consumes observations until the payment reaches a terminal status or
// the context is cancelled. The poll ticker is torn down on return.
func (t *Tracker) Run(ctx context.Context) {
	t.mu.Lock()
	if t.state == StateIdle {
		t.state = StateWatching
	}
	t.mu.Unlock()

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-t.obs:
			if t.apply(p) {
				return
			}
		case <-ticker.C:
			if t.cfg.Poll == nil {
				continue
			}
			p, err := t.cfg.Poll(ctx)
			if err != nil {
				t.cfg.Logger.Warn("poll failed",
					zap.String("reference", t.cfg.Reference), zap.Error(err))
				continue
			}
			if t.apply(p) {
				return
			}
		}
	}
}

// Snapshot returns the current projection and tracker state.
func (t *Tracker) Snapshot() ([NumStages]models.ProgressStep, int, State) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.steps, t.percent, t.state
}

// apply folds one observation into the tracker and reports whether the
// payment is now terminal.
func (t *Tracker) apply(p models.Payment) bool {
	t.mu.Lock()

	if t.state == StateTerminal {
		t.mu.Unlock()
		return true
	}
	if t.seen && p.UpdatedAt.Before(t.lastUpdated) {
		t.cfg.Logger.Debug("dropping stale observation",
			zap.String("reference", t.cfg.Reference),
			zap.Time("observed", p.UpdatedAt),
			zap.Time("latest", t.lastUpdated))
		t.mu.Unlock()
		return false
	}

	if p.Status == models.PaymentStatusFailed {
		t.steps = failFrom(t.steps, p.CreatedAt)
	} else {
		t.steps, _ = Project(p)
	}
	t.percent = percentOf(t.steps)
	t.seen = true
	t.lastUpdated = p.UpdatedAt

	var fire func()
	switch p.Status {
	case models.PaymentStatusConfirmed:
		t.state = StateTerminal
		if cb := t.cfg.OnComplete; cb != nil {
			fire = func() { cb(p) }
		}
	case models.PaymentStatusFailed:
		t.state = StateTerminal
		if cb := t.cfg.OnFailure; cb != nil {
			fire = func() { cb(FailureMessage) }
		}
	}
	terminal := t.state == StateTerminal
	t.mu.Unlock()

	if fire != nil {
		fire()
	}
	return terminal
}

// failFrom marks the first non-completed stage among the first three as
// failed, keeping completions already on display. A payment last seen at
// processing therefore fails at bank_processing, not sent_to_gateway.
func failFrom(prev [NumStages]models.ProgressStep, created time.Time) [NumStages]models.ProgressStep {
	steps := prev
	for i := range steps {
		if steps[i].Status == models.StageProcessing {
			steps[i].Status = models.StagePending
		}
	}
	if steps[0].Status != models.StageCompleted {
		steps[0].Status = models.StageCompleted
		steps[0].CompletedAt = &created
	}
	for i := 0; i < 3; i++ {
		if steps[i].Status != models.StageCompleted {
			steps[i].Status = models.StageFailed
			break
		}
	}
	return steps
}
