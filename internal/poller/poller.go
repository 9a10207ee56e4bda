package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/artblocks-activity/internal/dedup"
	"github.com/rickgao/artblocks-activity/internal/metrics"
)

// Fetcher retrieves one raw batch of events that occurred after the watermark.
type Fetcher[R any] interface {
	Fetch(ctx context.Context, after dedup.Watermark) (R, error)
}

// FetcherFunc is a function adapter for Fetcher.
type FetcherFunc[R any] func(ctx context.Context, after dedup.Watermark) (R, error)

func (f FetcherFunc[R]) Fetch(ctx context.Context, after dedup.Watermark) (R, error) {
	return f(ctx, after)
}

// ParseFunc converts a raw batch to events. It may return a partial batch
// together with an error describing the records it dropped.
type ParseFunc[R, E any] func(raw R) ([]E, error)

// Handler receives every new event.
type Handler[E any] interface {
	Handle(ctx context.Context, event E) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc[E any] func(ctx context.Context, event E) error

func (f HandlerFunc[E]) Handle(ctx context.Context, event E) error {
	return f(ctx, event)
}

// Feed bundles the pluggable parts of a polled feed.
type Feed[R, E any] struct {
	Fetcher   Fetcher[R]
	Parse     ParseFunc[R, E]
	Timestamp dedup.TimestampFunc[E]
}

// Config holds poller configuration.
type Config struct {
	Interval      time.Duration // Poll interval (default: 30s)
	Concurrency   int           // Max events handled concurrently (default: 4)
	Timeout       time.Duration // Per-fetch timeout (default: 30s)
	HandleTimeout time.Duration // Per-event handling timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:      30 * time.Second,
		Concurrency:   4,
		Timeout:       30 * time.Second,
		HandleTimeout: 30 * time.Second,
	}
}

// Status is a point-in-time view of the poller.
type Status struct {
	Watermark  time.Time `json:"watermark"`
	Cycles     int64     `json:"cycles"`
	LastPollAt time.Time `json:"last_poll_at"`
	LastError  string    `json:"last_error,omitempty"`
}

// CycleStats summarizes one poll cycle.
type CycleStats struct {
	Fetched   int
	New       int
	Seen      int
	Malformed int
	Failed    int
	Advanced  bool
}

// Poller periodically fetches a feed and dispatches new events.
type Poller[R, E any] struct {
	cfg     Config
	feed    Feed[R, E]
	handler Handler[E]
	tracker *dedup.Tracker
	metrics *metrics.Metrics
	logger  *slog.Logger

	cycles   atomic.Int64
	statusMu sync.RWMutex
	lastPoll time.Time
	lastErr  string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Poller whose watermark starts at start.
func New[R, E any](cfg Config, feed Feed[R, E], handler Handler[E], start dedup.Watermark, m *metrics.Metrics, logger *slog.Logger) *Poller[R, E] {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = def.HandleTimeout
	}
	m.Watermark.Set(float64(start))

	return &Poller[R, E]{
		cfg:     cfg,
		feed:    feed,
		handler: handler,
		tracker: dedup.NewTracker(start),
		metrics: m,
		logger:  logger,
	}
}

// Start begins the polling loop.
func (p *Poller[R, E]) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("feed poller started",
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
		"watermark", p.tracker.Current().Time(),
	)

	return nil
}

// Stop gracefully shuts down the poller. An in-flight batch is abandoned and
// its watermark update discarded.
func (p *Poller[R, E]) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("feed poller stopped", "watermark", p.tracker.Current().Time())
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Watermark returns the current watermark.
func (p *Poller[R, E]) Watermark() dedup.Watermark {
	return p.tracker.Current()
}

// Status returns the current poller status.
func (p *Poller[R, E]) Status() Status {
	p.statusMu.RLock()
	defer p.statusMu.RUnlock()
	return Status{
		Watermark:  p.tracker.Current().Time(),
		Cycles:     p.cycles.Load(),
		LastPollAt: p.lastPoll,
		LastError:  p.lastErr,
	}
}

// run is the main polling loop.
func (p *Poller[R, E]) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.pollOnce()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.pollOnce()
		}
	}
}

// pollOnce runs a single fetch, filter, dispatch and advance cycle.
func (p *Poller[R, E]) pollOnce() CycleStats {
	start := time.Now()
	var stats CycleStats
	defer func() {
		p.cycles.Add(1)
		p.metrics.PollDuration.Observe(time.Since(start).Seconds())
	}()

	wm := p.tracker.Current()

	fetchCtx, cancel := context.WithTimeout(p.ctx, p.cfg.Timeout)
	raw, err := p.feed.Fetcher.Fetch(fetchCtx, wm)
	cancel()
	if err != nil {
		p.logger.Warn("failed to fetch feed", "error", err, "watermark", wm.Time())
		p.metrics.PollCycles.WithLabelValues("fetch_error").Inc()
		p.recordPoll(start, err)
		return stats
	}

	events, err := p.feed.Parse(raw)
	if err != nil {
		dropped := countErrors(err)
		stats.Malformed += dropped
		p.metrics.EventsSkipped.WithLabelValues(metrics.ReasonMalformed).Add(float64(dropped))
		p.logger.Warn("dropped malformed events", "count", dropped, "error", err)
	}

	res := dedup.Filter(events, wm, p.feed.Timestamp)
	stats.Fetched = len(events) + stats.Malformed
	stats.New = len(res.New)
	stats.Seen = res.Seen
	stats.Malformed += res.Malformed

	p.metrics.EventsFetched.Add(float64(stats.Fetched))
	p.metrics.EventsNew.Add(float64(stats.New))
	p.metrics.EventsSkipped.WithLabelValues(metrics.ReasonSeen).Add(float64(res.Seen))
	if res.Malformed > 0 {
		p.metrics.EventsSkipped.WithLabelValues(metrics.ReasonMalformed).Add(float64(res.Malformed))
		p.logger.Warn("skipped events without timestamp", "count", res.Malformed)
	}

	stats.Failed = p.dispatch(res.New)

	if p.ctx.Err() != nil {
		p.logger.Warn("poll cycle abandoned, watermark not advanced",
			"new", stats.New,
			"watermark", wm.Time(),
		)
		p.metrics.PollCycles.WithLabelValues("cancelled").Inc()
		p.recordPoll(start, p.ctx.Err())
		return stats
	}

	if p.tracker.Advance(res.Watermark) {
		stats.Advanced = true
		p.metrics.Watermark.Set(float64(res.Watermark))
	}

	p.metrics.PollCycles.WithLabelValues("ok").Inc()
	p.recordPoll(start, nil)

	p.logger.Info("poll cycle complete",
		"fetched", stats.Fetched,
		"new", stats.New,
		"seen", stats.Seen,
		"malformed", stats.Malformed,
		"failed", stats.Failed,
		"watermark", p.tracker.Current().Time(),
		"duration", time.Since(start),
	)

	return stats
}

// dispatch hands events to the handler with bounded concurrency and returns
// the number of events whose handling failed. One failure never blocks the rest.
func (p *Poller[R, E]) dispatch(events []E) int {
	if len(events) == 0 {
		return 0
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	var failed atomic.Int64

	for _, event := range events {
		if p.ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(p.ctx, p.cfg.HandleTimeout)
			defer cancel()

			if err := p.handler.Handle(ctx, event); err != nil {
				failed.Add(1)
				p.logger.Warn("failed to handle event", "error", err)
			}
			return nil
		})
	}

	g.Wait()
	return int(failed.Load())
}

func (p *Poller[R, E]) recordPoll(at time.Time, err error) {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	p.lastPoll = at
	p.lastErr = ""
	if err != nil {
		p.lastErr = err.Error()
	}
}

// countErrors counts the errors joined into err.
func countErrors(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}
