package extractor

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/shopwatch/internal/shop"
	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// bstnURL is the shop this extractor is bound to. Grounded on
// scraperBstn.py::BstnShopScraper.URL.
const bstnURL = "https://www.bstn.com"

// BstnExtractor extracts shop/product attributes from bstn.com pages.
// Selector logic is a direct translation of scraperBstn.py; the Python
// try/except/_failCount pattern becomes a logged warning plus an
// unconditional false return on failure.
type BstnExtractor struct {
	logger utils.Logger
}

// NewBstnExtractor returns a ready BstnExtractor.
func NewBstnExtractor(logger utils.Logger) *BstnExtractor {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &BstnExtractor{logger: utils.NewComponentLogger(logger, "extractor-bstn")}
}

func (e *BstnExtractor) URL() string { return bstnURL }

func (e *BstnExtractor) SetShopName(doc *goquery.Document, shop *types.Shop) (changed, fieldErr bool) {
	return DefaultSetShopName(doc, shop)
}

func (e *BstnExtractor) SetProductName(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	name := strings.TrimSpace(doc.Find("#detailRight span.productname").First().Text())
	if name == "" {
		e.logger.Warnf("bstn: failed finding product name for %s", product.URL)
		return false, true
	}
	if product.Name == "" || product.Name != name {
		product.Name = name
		return true, false
	}
	return false, false
}

func (e *BstnExtractor) SetProductSizes(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	sel := doc.Find("div.edd-dropdown.clear option")
	if sel.Length() == 0 {
		e.logger.Warnf("bstn: failed finding HTML for sizes for %s", product.URL)
		return false, true
	}

	sel.Each(func(_ int, option *goquery.Selection) {
		// An option with no class attribute at all is an ignorable element
		// (neither a size nor a stock indicator); only class="" (in stock)
		// and class="soldout"-like (out of stock) options count.
		class, hasClass := option.Attr("class")
		if !hasClass {
			return
		}

		sizeStr := strings.Trim(strings.TrimSpace(option.Text()), "()")
		if sizeStr == "" {
			return
		}
		isInStock := strings.TrimSpace(class) == ""
		if shop.ApplySizeUpdate(product, sizeStr, isInStock) {
			changed = true
		}
	})
	return changed, false
}

func (e *BstnExtractor) SetProductPrice(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	buybox := doc.Find("div.buybox div.price").First()
	priceStr, hasPrice := buybox.Find(`meta[itemprop="price"]`).Attr("content")
	currencyStr, hasCurrency := buybox.Find(`meta[itemprop="pricecurrency"]`).Attr("content")
	if !hasPrice || !hasCurrency {
		e.logger.Warnf("bstn: failed finding price or currency for %s", product.URL)
		return false, true
	}

	price, err := strconv.ParseFloat(strings.ReplaceAll(priceStr, ",", "."), 64)
	if err != nil {
		e.logger.Warnf("bstn: failed parsing price %q for %s", priceStr, product.URL)
		return false, true
	}

	if product.BasePrice == nil || *product.BasePrice != price {
		product.BasePrice = &price
		product.Currency = currencyStr
		return true, false
	}
	return false, false
}

func (e *BstnExtractor) SetProductThumbURL(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	urlThumb, ok := doc.Find("li.thumbnail-1 div.wrap img").First().Attr("src")
	if !ok || urlThumb == "" {
		e.logger.Warnf("bstn: failed finding product image url for %s", product.URL)
		return false, true
	}
	if product.URLThumb == "" || product.URLThumb != urlThumb {
		product.URLThumb = urlThumb
		return true, false
	}
	return false, false
}

// SetProductReleaseTime is a genuine no-op: bstn.com exposes no parseable
// release date today, so it never reports a field error either.
func (e *BstnExtractor) SetProductReleaseTime(doc *goquery.Document, product *types.Product) (changed, fieldErr bool) {
	return false, false
}
