package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rickgao/artblocks-activity/internal/metrics"
	"github.com/rickgao/artblocks-activity/internal/model"
)

// ErrNoRoute is returned by sinks that have no destination for a route.
var ErrNoRoute = errors.New("no destination for route")

// Sink delivers notifications to one destination.
type Sink interface {
	// Name identifies the sink in logs and metrics.
	Name() string

	// Send delivers n. It must be safe for concurrent use.
	Send(ctx context.Context, n model.Notification) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc struct {
	SinkName string
	Fn       func(ctx context.Context, n model.Notification) error
}

func (s SinkFunc) Name() string { return s.SinkName }

func (s SinkFunc) Send(ctx context.Context, n model.Notification) error { return s.Fn(ctx, n) }

// Dispatcher fans notifications out to all sinks.
type Dispatcher struct {
	sinks   []Sink
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(m *metrics.Metrics, logger *slog.Logger, sinks ...Sink) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Dispatcher{sinks: sinks, metrics: m, logger: logger}
}

// Add registers another sink. Not safe to call once dispatching has started.
func (d *Dispatcher) Add(s Sink) {
	d.sinks = append(d.sinks, s)
}

// Sinks returns the names of the registered sinks.
func (d *Dispatcher) Sinks() []string {
	names := make([]string, len(d.sinks))
	for i, s := range d.sinks {
		names[i] = s.Name()
	}
	return names
}

// Send delivers n to every sink. A failing sink does not stop the others;
// all failures are returned joined.
func (d *Dispatcher) Send(ctx context.Context, n model.Notification) error {
	var errs []error
	route := n.Route.Lower()

	for _, s := range d.sinks {
		err := s.Send(ctx, n)
		switch {
		case errors.Is(err, ErrNoRoute):
			d.metrics.Notifications.WithLabelValues(s.Name(), route, "unrouted").Inc()
		case err != nil:
			d.metrics.Notifications.WithLabelValues(s.Name(), route, "error").Inc()
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		default:
			d.metrics.Notifications.WithLabelValues(s.Name(), route, "ok").Inc()
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	d.logger.Debug("notification delivered",
		"id", n.ID,
		"route", n.Route,
		"token_id", n.Event.TokenID,
		"sinks", len(d.sinks),
	)
	return nil
}

// BanList is an exact-match set of addresses whose events are never notified.
// Addresses are compared case-insensitively.
type BanList struct {
	addrs map[string]struct{}
}

// NewBanList builds a BanList. Blank entries are ignored.
func NewBanList(addrs []string) *BanList {
	b := &BanList{addrs: make(map[string]struct{}, len(addrs))}
	for _, a := range addrs {
		a = normalizeAddress(a)
		if a == "" {
			continue
		}
		b.addrs[a] = struct{}{}
	}
	return b
}

// Blocks reports whether addr is banned.
func (b *BanList) Blocks(addr string) bool {
	if b == nil {
		return false
	}
	_, ok := b.addrs[normalizeAddress(addr)]
	return ok
}

// Len returns the number of banned addresses.
func (b *BanList) Len() int {
	if b == nil {
		return 0
	}
	return len(b.addrs)
}

func normalizeAddress(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}
