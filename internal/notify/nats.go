package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// DefaultSubjectPrefix is the subject root for published notifications.
// Subjects follow the pattern: {prefix}.{route}, e.g. nft.activity.sale
const DefaultSubjectPrefix = "nft.activity"

// NATSMessage is the published JSON body.
type NATSMessage struct {
	ID         string      `json:"id"`
	Route      model.Route `json:"route"`
	TokenID    string      `json:"token_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Price      string      `json:"price_eth"`
	Seller     string      `json:"seller"`
	Buyer      string      `json:"buyer,omitempty"`
	Collection string      `json:"collection"`
	Embed      model.Embed `json:"embed"`
}

// Publisher is the subset of jetstream.JetStream used by NATSSink.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSSink publishes notifications to JetStream.
type NATSSink struct {
	js     Publisher
	prefix string
	logger *slog.Logger
}

// NewNATSSink creates a NATSSink. An empty prefix uses DefaultSubjectPrefix.
func NewNATSSink(js Publisher, prefix string, logger *slog.Logger) *NATSSink {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSSink{js: js, prefix: prefix, logger: logger}
}

// Name implements Sink.
func (s *NATSSink) Name() string { return "nats" }

// Subject returns the subject a route is published to.
func (s *NATSSink) Subject(r model.Route) string {
	return fmt.Sprintf("%s.%s", s.prefix, r.Lower())
}

// Send publishes n. The notification ID, stable per marketplace event, is used
// as the JetStream message ID so the stream discards repeats within its
// duplicate window.
func (s *NATSSink) Send(ctx context.Context, n model.Notification) error {
	data, err := json.Marshal(toNATSMessage(n))
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	_, err = s.js.Publish(ctx, s.Subject(n.Route), data, jetstream.WithMsgID(n.ID.String()))
	if err != nil {
		return fmt.Errorf("publish %s: %w", s.Subject(n.Route), err)
	}
	return nil
}

func toNATSMessage(n model.Notification) NATSMessage {
	msg := NATSMessage{
		ID:         n.ID.String(),
		Route:      n.Route,
		TokenID:    n.Event.TokenID,
		OccurredAt: n.Event.Time(),
		Price:      n.Event.Price.String(),
		Seller:     n.Event.Seller.Address,
		Collection: n.Metadata.CollectionName,
		Embed:      n.Embed,
	}
	if n.Event.Buyer != nil {
		msg.Buyer = n.Event.Buyer.Address
	}
	return msg
}

// EnsureStream creates or updates the stream that captures all notification subjects.
func EnsureStream(ctx context.Context, js jetstream.StreamManager, name, prefix string, maxAge time.Duration) error {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	_, err := js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{prefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     maxAge,
		Duplicates: 2 * time.Minute,
		Replicas:   1,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", name, err)
	}
	return nil
}
