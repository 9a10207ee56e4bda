package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/artblocks-activity/internal/metadata"
	"github.com/rickgao/artblocks-activity/internal/metrics"
	"github.com/rickgao/artblocks-activity/internal/model"
	"github.com/rickgao/artblocks-activity/internal/notify"
)

// ErrSkipped marks an event that is deliberately not notified.
var ErrSkipped = errors.New("event skipped")

// SkipError records why an event was skipped. It matches ErrSkipped.
type SkipError struct {
	Reason string // One of the metrics.Reason* values
}

func (e *SkipError) Error() string { return "event skipped: " + e.Reason }

func (e *SkipError) Is(target error) bool { return target == ErrSkipped }

// notificationNamespace scopes notification IDs derived from events.
var notificationNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rickgao/artblocks-activity/notifications"))

// NotificationID returns the stable ID of the notification for ev. The same
// marketplace event always maps to the same ID so downstream sinks can drop
// repeats.
func NotificationID(ev model.Event) uuid.UUID {
	key := strings.Join([]string{
		ev.RawType,
		ev.TokenID,
		strconv.FormatInt(ev.Timestamp, 10),
		strings.ToLower(strings.TrimSpace(ev.Seller.Address)),
	}, "|")
	return uuid.NewSHA1(notificationNamespace, []byte(key))
}

// MetadataLookup fetches token metadata.
type MetadataLookup interface {
	GetToken(ctx context.Context, tokenID string) (*model.TokenMetadata, error)
}

// Notifier delivers a formatted notification.
type Notifier interface {
	Send(ctx context.Context, n model.Notification) error
}

// Processor enriches and forwards events. It is safe for concurrent use.
type Processor struct {
	lookup   MetadataLookup
	notifier Notifier
	bans     *notify.BanList
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

// NewProcessor creates a Processor. bans may be nil.
func NewProcessor(lookup MetadataLookup, notifier Notifier, bans *notify.BanList, m *metrics.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.NewNop()
	}
	return &Processor{
		lookup:   lookup,
		notifier: notifier,
		bans:     bans,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// Build turns ev into a notification without delivering it. Events that
// should not be notified return an error matching ErrSkipped.
func (p *Processor) Build(ctx context.Context, ev model.Event) (model.Notification, error) {
	route, ok := model.RouteFor(ev.Kind)
	if !ok {
		return model.Notification{}, &SkipError{Reason: metrics.ReasonUnrouted}
	}

	if p.bans.Blocks(ev.Seller.Address) {
		return model.Notification{}, &SkipError{Reason: metrics.ReasonBanned}
	}

	start := time.Now()
	md, err := p.lookup.GetToken(ctx, ev.TokenID)
	result := "ok"
	switch {
	case errors.Is(err, metadata.ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	p.metrics.LookupDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	if err != nil {
		return model.Notification{}, fmt.Errorf("lookup token %s: %w", ev.TokenID, err)
	}

	if md.CollectionName == "" {
		return model.Notification{}, &SkipError{Reason: metrics.ReasonNoCollection}
	}

	return model.Notification{
		ID:        NotificationID(ev),
		Route:     route,
		Event:     ev,
		Metadata:  *md,
		Embed:     FormatEmbed(ev, *md),
		CreatedAt: p.now().UTC(),
	}, nil
}

// Handle builds and delivers the notification for ev. It implements
// poller.Handler.
func (p *Processor) Handle(ctx context.Context, ev model.Event) error {
	n, err := p.Build(ctx, ev)
	if err != nil {
		var skip *SkipError
		if errors.As(err, &skip) {
			p.metrics.EventsSkipped.WithLabelValues(skip.Reason).Inc()
			p.logger.Debug("event skipped",
				"reason", skip.Reason,
				"kind", ev.Kind,
				"token_id", ev.TokenID,
				"seller", ev.Seller.Address,
			)
			return nil
		}
		p.metrics.EventsSkipped.WithLabelValues(metrics.ReasonEnrichFailed).Inc()
		return err
	}

	if err := p.notifier.Send(ctx, n); err != nil {
		return fmt.Errorf("deliver %s for token %s: %w", n.Route, ev.TokenID, err)
	}

	p.logger.Info("notification sent",
		"route", n.Route,
		"token_id", ev.TokenID,
		"title", n.Embed.Title,
		"occurred_at", ev.Time(),
	)
	return nil
}
