package activity

import (
	"github.com/rickgao/artblocks-activity/internal/model"
)

// Embed field names.
const (
	FieldBuyer      = "Buyer"
	FieldSeller     = "Seller (Opensea)"
	FieldSalePrice  = "Sale Price"
	FieldListPrice  = "List Price"
	FieldLiveScript = "Live Script"
)

// FormatEmbed renders the message body for ev enriched with md.
func FormatEmbed(ev model.Event, md model.TokenMetadata) model.Embed {
	embed := model.Embed{
		Title:     md.DisplayName + " - " + md.CreatorName,
		URL:       ev.Permalink,
		Thumbnail: md.ImageURL,
	}

	priceLabel := FieldListPrice
	if ev.Kind == model.KindSale {
		priceLabel = FieldSalePrice
		if ev.Buyer != nil {
			embed.Fields = append(embed.Fields, model.EmbedField{Name: FieldBuyer, Value: ev.Buyer.Label()})
		}
	}

	embed.Fields = append(embed.Fields,
		model.EmbedField{Name: FieldSeller, Value: ev.Seller.Label()},
		model.EmbedField{Name: priceLabel, Value: ev.Price.String() + "ETH", Inline: true},
	)

	if md.ExternalURL != "" {
		embed.Fields = append(embed.Fields, model.EmbedField{
			Name:   FieldLiveScript,
			Value:  "[view on artblocks.io](" + md.ExternalURL + ")",
			Inline: true,
		})
	}

	return embed
}
