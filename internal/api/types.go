package api

// EventsResponse from GET /events
type EventsResponse struct {
	AssetEvents []APIAssetEvent `json:"asset_events"`
	Next        string          `json:"next"`
	Previous    string          `json:"previous"`
}

// APIAssetEvent represents an asset event from the marketplace API.
// Unknown fields are ignored.
type APIAssetEvent struct {
	EventType      string `json:"event_type"` // successful, created, transfer, ...
	EventTimestamp string `json:"event_timestamp"`
	CollectionSlug string `json:"collection_slug"`

	Asset *APIAsset `json:"asset"`

	// Prices in wei, as decimal strings
	TotalPrice  string `json:"total_price"`  // Sale price
	EndingPrice string `json:"ending_price"` // List price

	// Parties
	Seller        *APIAccount `json:"seller"`
	WinnerAccount *APIAccount `json:"winner_account"`
	FromAccount   *APIAccount `json:"from_account"`
}

// APIAsset is the token an event refers to.
type APIAsset struct {
	TokenID   string `json:"token_id"`
	Name      string `json:"name"`
	Permalink string `json:"permalink"`
}

// APIAccount is a wallet with an optional marketplace profile.
type APIAccount struct {
	Address string   `json:"address"`
	User    *APIUser `json:"user"`
}

// APIUser is the marketplace profile of an account.
type APIUser struct {
	Username string `json:"username"`
}

// Marketplace event types.
const (
	EventTypeSuccessful = "successful"
	EventTypeCreated    = "created"
)

// GetEventsOptions configures a GetEvents request.
type GetEventsOptions struct {
	Limit          int
	Cursor         string
	EventType      string
	CollectionSlug string
	ContractAddr   string
	OccurredAfter  int64 // unix seconds, 0 = unset
}
