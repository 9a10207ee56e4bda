package stream

import (
	"errors"
	"time"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// Errors
var (
	ErrHubClosed = errors.New("hub closed")
)

// Config configures the Hub.
type Config struct {
	PingInterval time.Duration // Interval between server pings
	PongTimeout  time.Duration // Max time without pong before dropping a subscriber
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Per-subscriber message buffer
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval: 30 * time.Second,
		PongTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   256,
	}
}

// Message is the JSON frame sent to subscribers.
type Message struct {
	Type       string      `json:"type"` // always "notification"
	ID         string      `json:"id"`
	Route      model.Route `json:"route"`
	TokenID    string      `json:"token_id"`
	OccurredAt time.Time   `json:"occurred_at"`
	Embed      model.Embed `json:"embed"`
}

func newMessage(n model.Notification) Message {
	return Message{
		Type:       "notification",
		ID:         n.ID.String(),
		Route:      n.Route,
		TokenID:    n.Event.TokenID,
		OccurredAt: n.Event.Time(),
		Embed:      n.Embed,
	}
}
