package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/artblocks-activity/internal/model"
)

// weiExponent is the number of decimal places between wei and ETH.
const weiExponent = 18

// ParseTimestamp parses an event timestamp to milliseconds since epoch.
// The marketplace omits the zone designator; such timestamps are UTC.
func ParseTimestamp(iso string) (int64, error) {
	iso = strings.TrimSpace(iso)
	if iso == "" {
		return 0, fmt.Errorf("empty timestamp: %w", model.ErrParse)
	}

	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		// Try without timezone
		t, err = time.ParseInLocation("2006-01-02T15:04:05.999999999", iso, time.UTC)
		if err != nil {
			return 0, fmt.Errorf("timestamp %q: %w", iso, model.ErrParse)
		}
	}

	return t.UnixMilli(), nil
}

// WeiToETH converts a wei amount to ETH. Empty input is zero.
// "1500000000000000000" -> 1.5
func WeiToETH(wei string) (decimal.Decimal, error) {
	wei = strings.TrimSpace(wei)
	if wei == "" {
		return decimal.Zero, nil
	}

	d, err := decimal.NewFromString(wei)
	if err != nil {
		return decimal.Zero, fmt.Errorf("price %q: %w", wei, model.ErrParse)
	}

	return d.Shift(-weiExponent), nil
}

// KindOf maps a marketplace event type to an event kind.
func KindOf(eventType string) model.EventKind {
	switch eventType {
	case EventTypeSuccessful:
		return model.KindSale
	case EventTypeCreated:
		return model.KindListing
	default:
		return model.KindOther
	}
}

// ToModel converts an APIAssetEvent to model.Event.
func (e *APIAssetEvent) ToModel() (model.Event, error) {
	if e.Asset == nil || e.Asset.TokenID == "" {
		return model.Event{}, fmt.Errorf("missing asset: %w", model.ErrParse)
	}

	ts, err := ParseTimestamp(e.EventTimestamp)
	if err != nil {
		return model.Event{}, err
	}

	ev := model.Event{
		Kind:      KindOf(e.EventType),
		RawType:   e.EventType,
		Timestamp: ts,
		TokenID:   e.Asset.TokenID,
		Permalink: e.Asset.Permalink,
	}

	var price string
	switch ev.Kind {
	case model.KindSale:
		price = e.TotalPrice
		ev.Seller = e.Seller.toModel()
		buyer := e.WinnerAccount.toModel()
		ev.Buyer = &buyer
	default:
		price = e.EndingPrice
		ev.Seller = e.FromAccount.toModel()
	}

	ev.Price, err = WeiToETH(price)
	if err != nil {
		return model.Event{}, err
	}

	return ev, nil
}

func (a *APIAccount) toModel() model.Account {
	if a == nil {
		return model.Account{}
	}
	acc := model.Account{Address: a.Address}
	if a.User != nil {
		acc.Username = a.User.Username
	}
	return acc
}

// ParseEvents converts a raw batch to model events, preserving order.
// Records that fail to convert are dropped; their errors are joined into the
// returned error alongside the successfully converted events.
func ParseEvents(raw []APIAssetEvent) ([]model.Event, error) {
	events := make([]model.Event, 0, len(raw))
	var errs []error

	for i := range raw {
		ev, err := raw[i].ToModel()
		if err != nil {
			errs = append(errs, fmt.Errorf("event %d: %w", i, err))
			continue
		}
		events = append(events, ev)
	}

	return events, errors.Join(errs...)
}

// EventTimestamp returns the timestamp of a converted event.
func EventTimestamp(e model.Event) (int64, error) {
	if e.Timestamp <= 0 {
		return 0, fmt.Errorf("token %s: missing timestamp: %w", e.TokenID, model.ErrParse)
	}
	return e.Timestamp, nil
}
