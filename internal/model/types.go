package model

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrParse marks an event or field that could not be decoded.
var ErrParse = errors.New("parse error")

// -----------------------------------------------------------------------------
// Marketplace Types
// -----------------------------------------------------------------------------

// EventKind classifies a marketplace event.
type EventKind int

const (
	KindOther EventKind = iota
	KindSale
	KindListing
)

// String returns the upper-case kind name used in logs and routing.
func (k EventKind) String() string {
	switch k {
	case KindSale:
		return "SALE"
	case KindListing:
		return "LISTING"
	default:
		return "OTHER"
	}
}

// Account is a marketplace participant.
type Account struct {
	Address  string // Wallet address
	Username string // Marketplace username, may be empty
}

// Label formats the account as "address (username)", or just the address
// when the account has no username.
func (a Account) Label() string {
	if a.Username == "" {
		return a.Address
	}
	return a.Address + " (" + a.Username + ")"
}

// Event represents a single sale or listing from the marketplace feed.
type Event struct {
	Kind      EventKind       // Sale, listing or other
	RawType   string          // Marketplace event_type ("successful", "created", ...)
	Timestamp int64           // Occurrence time (ms since epoch)
	TokenID   string          // Token identifier used for the metadata lookup
	Permalink string          // Marketplace URL of the asset
	Price     decimal.Decimal // Sale or list price in ETH
	Seller    Account         // Seller for sales, lister for listings
	Buyer     *Account        // Winner account, sales only
}

// Time returns the event timestamp as a time.Time.
func (e Event) Time() time.Time {
	return time.UnixMilli(e.Timestamp).UTC()
}

// -----------------------------------------------------------------------------
// Enrichment Types
// -----------------------------------------------------------------------------

// TokenMetadata is the secondary metadata for a token.
type TokenMetadata struct {
	DisplayName    string // Piece name (e.g., "Chromie Squiggle #1234")
	CreatorName    string // Artist
	ImageURL       string // Full size image
	ExternalURL    string // Live script URL
	CollectionName string // Empty when the token is not part of a known collection
}

// -----------------------------------------------------------------------------
// Notification Types
// -----------------------------------------------------------------------------

// Route is the channel class a notification is delivered to.
type Route string

const (
	RouteSale    Route = "SALE"
	RouteListing Route = "LISTING"
)

// RouteFor maps an event kind to its route. ok is false for kinds that are never routed.
func RouteFor(kind EventKind) (route Route, ok bool) {
	switch kind {
	case KindSale:
		return RouteSale, true
	case KindListing:
		return RouteListing, true
	default:
		return "", false
	}
}

// Lower returns the route in lower case, for subjects and table values.
func (r Route) Lower() string {
	return strings.ToLower(string(r))
}

// EmbedField is a single name/value row of an embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

// Embed is the rendered message body.
type Embed struct {
	Title     string       `json:"title"`
	URL       string       `json:"url,omitempty"`
	Thumbnail string       `json:"thumbnail,omitempty"`
	Fields    []EmbedField `json:"fields"`
}

// Notification is a fully formatted message ready for delivery.
type Notification struct {
	ID        uuid.UUID // Derived from the event, identical for repeats
	Route     Route
	Event     Event
	Metadata  TokenMetadata
	Embed     Embed
	CreatedAt time.Time
}
