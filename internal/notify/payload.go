// Package notify dispatches restock/update notifications and free-form
// log/error messages to a Discord-compatible incoming webhook.
//
// Grounded on network/messenger.py::Discord: the same three payload kinds
// (product, log, error), the same field-inclusion rules, and the same
// emoji markers for plain-text messages.
package notify

import (
	"strings"

	"github.com/valpere/shopwatch/pkg/types"
)

const (
	logMarker   = "\U0001F539" // 🔹
	errorMarker = "❗️" // ❗️
	footerText  = "shopwatch"
)

// Payload is the Discord incoming-webhook execute-webhook body shape.
// See https://discordapp.com/developers/docs/resources/webhook#execute-webhook.
type Payload struct {
	Username string  `json:"username"`
	Content  string  `json:"content"`
	Embeds   []Embed `json:"embeds,omitempty"`
}

// Embed is a single Discord embed object; every field is optional and
// omitted from the payload when empty, matching setPayload's behavior.
type Embed struct {
	Title       string     `json:"title,omitempty"`
	Description string     `json:"description,omitempty"`
	URL         string     `json:"url,omitempty"`
	Thumbnail   *Thumbnail `json:"thumbnail,omitempty"`
	Fields      []Field    `json:"fields,omitempty"`
	Footer      *Footer    `json:"footer,omitempty"`
}

type Thumbnail struct {
	URL string `json:"url"`
}

type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Footer struct {
	Text string `json:"text"`
}

// productPayload builds the payload for a product restock/update
// notification, grounded on Discord._setProductPayload.
//
// The Price field is included only when the product has a base price, and
// the Sizes field only lists the currently in-stock sizeEU values, joined
// by newline - both exactly as in the original.
func productPayload(username string, shop *types.Shop, product *types.Product) Payload {
	var fields []Field

	if product.BasePrice != nil {
		fields = append(fields, Field{Name: "Price", Value: product.GetPriceWithCurrency()})
	}

	var inStock []string
	for _, size := range product.Sizes {
		if size.IsInStock != nil && *size.IsInStock {
			inStock = append(inStock, size.SizeEU)
		}
	}
	if len(inStock) > 0 {
		fields = append(fields, Field{Name: "Sizes", Value: strings.Join(inStock, "\n")})
	}

	embed := Embed{
		Title:       product.Name,
		Description: shop.Name,
		URL:         product.URL,
		Fields:      fields,
		Footer:      &Footer{Text: footerText},
	}
	if product.URLThumb != "" {
		embed.Thumbnail = &Thumbnail{URL: product.URLThumb}
	}

	return Payload{Username: username, Embeds: []Embed{embed}}
}

func logPayload(username, msg string) Payload {
	return Payload{Username: username, Content: logMarker + msg}
}

func errorPayload(username, msg string) Payload {
	return Payload{Username: username, Content: errorMarker + msg}
}
