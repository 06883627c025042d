package extractor

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/shopwatch/internal/shop"
	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// soleboxURL is the shop this extractor is bound to. Grounded on
// scraperSolebox.py::SoleboxShopScraper.URL.
const soleboxURL = "https://www.solebox.com"

var soleboxPriceRe = regexp.MustCompile(`([0-9.,]+)\s+([^0-9]+)`)

// SoleboxExtractor extracts shop/product attributes from solebox.com pages,
// a direct translation of scraperSolebox.py's selector logic.
type SoleboxExtractor struct {
	logger utils.Logger
}

// NewSoleboxExtractor returns a ready SoleboxExtractor.
func NewSoleboxExtractor(logger utils.Logger) *SoleboxExtractor {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &SoleboxExtractor{logger: utils.NewComponentLogger(logger, "extractor-solebox")}
}

func (e *SoleboxExtractor) URL() string { return soleboxURL }

func (e *SoleboxExtractor) SetShopName(doc *goquery.Document, shop *types.Shop) (changed, fieldErr bool) {
	return DefaultSetShopName(doc, shop)
}

func (e *SoleboxExtractor) SetProductName(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	// The original reads the product's name out of a data-gtm JSON blob
	// on the details element; goquery exposes that same attribute.
	elem := doc.Find("div.js-product-details").First()
	raw, ok := elem.Attr("data-gtm")
	if !ok {
		e.logger.Warnf("solebox: failed finding product name for %s", product.URL)
		return false, true
	}
	var details struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(raw), &details); err != nil {
		e.logger.Warnf("solebox: failed parsing product details JSON for %s", product.URL)
		return false, true
	}
	name := details.Name
	if name == "" {
		e.logger.Warnf("solebox: failed finding product name for %s", product.URL)
		return false, true
	}
	if product.Name == "" || product.Name != name {
		product.Name = name
		return true, false
	}
	return false, false
}

func (e *SoleboxExtractor) SetProductSizes(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	all := doc.Find("span.js-size-value")
	if all.Length() == 0 {
		e.logger.Warnf("solebox: failed finding HTML for sizes for %s", product.URL)
		return false, true
	}
	soldOut := doc.Find("span.js-size-value.b-swatch-value--in-store-only, span.js-size-value.b-swatch-value--sold-out")
	soldOutText := map[string]bool{}
	soldOut.Each(func(_ int, s *goquery.Selection) {
		soldOutText[strings.TrimSpace(s.Text())] = true
	})

	all.Each(func(_ int, s *goquery.Selection) {
		sizeStr := strings.TrimSpace(s.Text())
		if sizeStr == "" {
			return
		}
		isInStock := !soldOutText[sizeStr]
		if shop.ApplySizeUpdate(product, sizeStr, isInStock) {
			changed = true
		}
	})
	return changed, false
}

func (e *SoleboxExtractor) SetProductPrice(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	priceAndCurrency := strings.TrimSpace(
		doc.Find("div.b-pdp-product-info-section span.b-product-tile-price-item").First().Text())
	match := soleboxPriceRe.FindStringSubmatch(priceAndCurrency)
	if match == nil {
		e.logger.Warnf("solebox: failed finding price or currency for %s", product.URL)
		return false, true
	}

	priceStr, currencyStr := match[1], strings.TrimSpace(match[2])
	price, err := strconv.ParseFloat(strings.ReplaceAll(priceStr, ",", "."), 64)
	if err != nil {
		e.logger.Warnf("solebox: failed parsing price %q for %s", priceStr, product.URL)
		return false, true
	}

	if product.BasePrice == nil || *product.BasePrice != price {
		product.BasePrice = &price
		product.Currency = currencyStr
		return true, false
	}
	return false, false
}

func (e *SoleboxExtractor) SetProductThumbURL(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	urlThumb, ok := doc.Find("div.b-pdp-product-preview-wrapper div.b-pdp-carousel-item div").
		First().Attr("data-default-src")
	if !ok || urlThumb == "" {
		e.logger.Warnf("solebox: failed finding product image url for %s", product.URL)
		return false, true
	}
	if product.URLThumb == "" || product.URLThumb != urlThumb {
		product.URLThumb = urlThumb
		return true, false
	}
	return false, false
}

// SetProductReleaseTime is a genuine no-op: solebox.com exposes no
// parseable release date today, so it never reports a field error either.
func (e *SoleboxExtractor) SetProductReleaseTime(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	return false, false
}
