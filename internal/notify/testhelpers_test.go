package notify

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rickgao/artblocks-activity/internal/model"
)

func testNotification(route model.Route) model.Notification {
	return model.Notification{
		ID:    uuid.MustParse("6f1c1c1e-2a7b-4f5e-9d7a-3c2b1a0f9e8d"),
		Route: route,
		Event: model.Event{
			Kind:      model.KindSale,
			Timestamp: 1651681274000,
			TokenID:   "1234",
			Permalink: "https://opensea.io/assets/0xabc/1234",
			Price:     decimal.RequireFromString("1.5"),
			Seller:    model.Account{Address: "0xseller", Username: "alice"},
			Buyer:     &model.Account{Address: "0xbuyer", Username: "bob"},
		},
		Metadata: model.TokenMetadata{
			DisplayName:    "Chromie Squiggle #1234",
			CreatorName:    "Snowfro",
			CollectionName: "Chromie Squiggle by Snowfro",
		},
		Embed: model.Embed{
			Title:     "Chromie Squiggle #1234 - Snowfro",
			URL:       "https://opensea.io/assets/0xabc/1234",
			Thumbnail: "https://media.artblocks.io/1234.png",
			Fields:    []model.EmbedField{{Name: "Sale Price", Value: "1.5ETH", Inline: true}},
		},
		CreatedAt: time.Date(2022, 5, 4, 16, 21, 20, 0, time.UTC),
	}
}
