// Package pipeline connects interaction events to the dashboard: it reduces
// each event into the session's filter state, recomputes the aggregates and
// hands a record of the transition to the interaction publisher.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/parking-ticket-explorer/internal/domain"
	"github.com/couchcryptid/parking-ticket-explorer/internal/observability"
	"github.com/couchcryptid/parking-ticket-explorer/internal/session"
	sharedretry "github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
)

// ErrNotReady is returned while the ticket table has not been loaded.
var ErrNotReady = errors.New("ticket table not loaded")

// Publisher writes interaction records to the destination.
type Publisher interface {
	PublishBatch(ctx context.Context, records []domain.Interaction) error
}

// Options tunes the pipeline. Zero values fall back to defaults.
type Options struct {
	CacheSize     int
	BatchSize     int
	FlushInterval time.Duration
	QueueSize     int
	RetryBackoff  time.Duration
	MaxBackoff    time.Duration
	MaxAttempts   int
	Clock         clockwork.Clock
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.FlushInterval <= 0 {
		o.FlushInterval = 500 * time.Millisecond
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 200 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 5 * time.Second
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Clock == nil {
		o.Clock = clockwork.NewRealClock()
	}
	return o
}

// Pipeline owns the loaded table, the session store and the dashboard memo.
type Pipeline struct {
	table     atomic.Pointer[domain.Table]
	sessions  *session.Store
	memo      *lruCache[domain.Dashboard]
	publisher Publisher
	queue     chan domain.Interaction
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics

	// stopped is set once Run begins its final drain. Guarded by queueMu so a
	// record is either drained or counted as dropped.
	queueMu sync.RWMutex
	stopped bool
}

// New creates a Pipeline. publisher may be nil, in which case interactions
// are not recorded.
func New(sessions *session.Store, publisher Publisher, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	opts = opts.withDefaults()
	p := &Pipeline{
		sessions:  sessions,
		memo:      newLRUCache[domain.Dashboard](opts.CacheSize),
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
	if publisher != nil {
		p.queue = make(chan domain.Interaction, opts.QueueSize)
	}
	return p
}

// Load installs the ticket table. Earlier dashboards stay in the memo but are
// keyed by the previous table's fingerprint, so they are never served again.
func (p *Pipeline) Load(t *domain.Table) {
	p.table.Store(t)
	p.metrics.TicketsLoaded.Set(float64(t.Len()))
	p.logger.Info("ticket table loaded", "tickets", t.Len(), "zips", len(t.ZipCounts()), "fingerprint", t.Fingerprint())
}

// CheckReadiness returns nil once a ticket table has been loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.table.Load() == nil {
		return ErrNotReady
	}
	return nil
}

// Table returns the loaded ticket table.
func (p *Pipeline) Table() (*domain.Table, error) {
	t := p.table.Load()
	if t == nil {
		return nil, ErrNotReady
	}
	return t, nil
}

// NewSession opens a session with no filters applied.
func (p *Pipeline) NewSession(_ context.Context) (session.Session, error) {
	if _, err := p.Table(); err != nil {
		return session.Session{}, err
	}
	s := p.sessions.Create()
	p.metrics.SessionsActive.Set(float64(p.sessions.Len()))
	p.logger.Debug("session created", "session_id", s.ID)
	return s, nil
}

// Session returns the current state of a session.
func (p *Pipeline) Session(_ context.Context, id string) (session.Session, error) {
	return p.sessions.Get(id)
}

// RunJanitor expires idle sessions every interval until ctx is cancelled.
func (p *Pipeline) RunJanitor(ctx context.Context, interval time.Duration) {
	p.sessions.RunJanitor(ctx, interval, func(live int) {
		p.metrics.SessionsActive.Set(float64(live))
	})
}

// Apply reduces ev into the session's state and returns the dashboard for the
// new state. A rejected event leaves the state untouched.
func (p *Pipeline) Apply(ctx context.Context, id string, ev domain.Event) (domain.Dashboard, error) {
	return p.transition(ctx, id, ev.Kind(), ev, func(prev domain.FilterState) (domain.FilterState, error) {
		return domain.Reduce(prev, ev)
	})
}

// ApplySignals rebuilds the session's state from a full signal snapshot.
func (p *Pipeline) ApplySignals(ctx context.Context, id string, s domain.Signals) (domain.Dashboard, error) {
	return p.transition(ctx, id, "signals", nil, func(prev domain.FilterState) (domain.FilterState, error) {
		return domain.ReduceSignals(prev, s)
	})
}

// Dashboard returns the dashboard for the session's current state.
func (p *Pipeline) Dashboard(ctx context.Context, id string) (domain.Dashboard, error) {
	t, err := p.Table()
	if err != nil {
		return domain.Dashboard{}, err
	}
	s, err := p.sessions.Get(id)
	if err != nil {
		return domain.Dashboard{}, err
	}
	return p.compute(ctx, t, s.State)
}

// Compute returns the dashboard for an arbitrary state without a session.
func (p *Pipeline) Compute(ctx context.Context, state domain.FilterState) (domain.Dashboard, error) {
	t, err := p.Table()
	if err != nil {
		return domain.Dashboard{}, err
	}
	return p.compute(ctx, t, state)
}

func (p *Pipeline) transition(ctx context.Context, id, kind string, ev domain.Event, reduce func(domain.FilterState) (domain.FilterState, error)) (domain.Dashboard, error) {
	t, err := p.Table()
	if err != nil {
		return domain.Dashboard{}, err
	}

	s, err := p.sessions.Update(id, reduce)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			p.metrics.EventsInvalid.WithLabelValues(kind).Inc()
			p.logger.Warn("event rejected", "session_id", id, "event_type", kind, "error", err)
		}
		return domain.Dashboard{}, err
	}
	p.metrics.EventsApplied.WithLabelValues(kind).Inc()

	dash, err := p.compute(ctx, t, s.State)
	if err != nil {
		return domain.Dashboard{}, err
	}
	p.record(s.ID, kind, ev, dash)
	return dash, nil
}

// compute returns a memoized dashboard. Dashboards are shared between
// callers and must be treated as read-only.
func (p *Pipeline) compute(ctx context.Context, t *domain.Table, state domain.FilterState) (domain.Dashboard, error) {
	if err := ctx.Err(); err != nil {
		return domain.Dashboard{}, err
	}
	key := t.Fingerprint() + ":" + state.Fingerprint()
	if d, ok := p.memo.get(key); ok {
		p.metrics.DashboardCache.WithLabelValues("hit").Inc()
		return d, nil
	}
	p.metrics.DashboardCache.WithLabelValues("miss").Inc()

	start := time.Now()
	d, err := domain.Compute(t, state)
	if err != nil {
		return domain.Dashboard{}, err
	}
	p.metrics.DashboardDuration.Observe(time.Since(start).Seconds())
	p.memo.put(key, d)
	return d, nil
}

// record queues an interaction for publishing without blocking the request.
func (p *Pipeline) record(sessionID, kind string, ev domain.Event, dash domain.Dashboard) {
	if p.queue == nil {
		return
	}
	rec := domain.Interaction{
		SessionID:  sessionID,
		EventType:  kind,
		State:      dash.State,
		Summary:    dash.Summary,
		OccurredAt: p.opts.Clock.Now().UTC(),
	}
	if ev != nil {
		if data, err := domain.EncodeEvent(ev); err == nil {
			rec.Event = data
		}
	}
	p.queueMu.RLock()
	defer p.queueMu.RUnlock()
	if p.stopped {
		p.metrics.InteractionsDropped.Inc()
		p.logger.Warn("interaction publisher stopped, dropping record", "session_id", sessionID, "event_type", kind)
		return
	}
	select {
	case p.queue <- rec:
	default:
		p.metrics.InteractionsDropped.Inc()
		p.logger.Warn("interaction queue full, dropping record", "session_id", sessionID, "event_type", kind)
	}
}

// Run publishes queued interactions in batches until ctx is cancelled. A
// batch is flushed when it reaches the batch size or when the flush interval
// elapses. On shutdown whatever is still queued gets one final attempt.
func (p *Pipeline) Run(ctx context.Context) error {
	if p.publisher == nil {
		return nil
	}
	p.logger.Info("interaction publisher started", "batch_size", p.opts.BatchSize, "flush_interval", p.opts.FlushInterval)
	p.metrics.PublisherRunning.Set(1)
	defer p.metrics.PublisherRunning.Set(0)

	ticker := p.opts.Clock.NewTicker(p.opts.FlushInterval)
	defer ticker.Stop()

	batch := make([]domain.Interaction, 0, p.opts.BatchSize)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("interaction publisher stopping", "reason", ctx.Err())
			p.drain(ctx, batch)
			return nil
		case rec := <-p.queue:
			batch = append(batch, rec)
			if len(batch) >= p.opts.BatchSize {
				p.publish(ctx, batch)
				batch = batch[:0]
			}
		case <-ticker.Chan():
			if len(batch) > 0 {
				p.publish(ctx, batch)
				batch = batch[:0]
			}
		}
	}
}

// publish writes one batch, retrying with exponential backoff. The batch is
// dropped after MaxAttempts failures or when ctx is cancelled.
func (p *Pipeline) publish(ctx context.Context, batch []domain.Interaction) {
	backoff := p.opts.RetryBackoff
	for attempt := 1; ; attempt++ {
		err := p.publisher.PublishBatch(ctx, batch)
		if err == nil {
			p.metrics.InteractionsPublished.Add(float64(len(batch)))
			p.metrics.PublishBatchSize.Observe(float64(len(batch)))
			return
		}
		p.metrics.PublishErrors.Inc()
		p.logger.Error("publish batch failed", "error", err, "batch_size", len(batch), "attempt", attempt)

		if attempt >= p.opts.MaxAttempts || ctx.Err() != nil || !sharedretry.SleepWithContext(ctx, backoff) {
			p.metrics.InteractionsDropped.Add(float64(len(batch)))
			return
		}
		backoff = sharedretry.NextBackoff(backoff, p.opts.MaxBackoff)
	}
}

// drain makes a single bounded attempt to publish the pending batch plus
// anything left in the queue. Records arriving afterwards are dropped.
func (p *Pipeline) drain(ctx context.Context, batch []domain.Interaction) {
	p.queueMu.Lock()
	p.stopped = true
	p.queueMu.Unlock()

	for len(p.queue) > 0 {
		batch = append(batch, <-p.queue)
	}
	if len(batch) == 0 {
		return
	}
	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := p.publisher.PublishBatch(flushCtx, batch); err != nil {
		p.metrics.PublishErrors.Inc()
		p.metrics.InteractionsDropped.Add(float64(len(batch)))
		p.logger.Error("final publish failed", "error", err, "batch_size", len(batch))
		return
	}
	p.metrics.InteractionsPublished.Add(float64(len(batch)))
	p.metrics.PublishBatchSize.Observe(float64(len(batch)))
}
