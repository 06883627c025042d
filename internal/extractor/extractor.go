// Package extractor holds the per-site HTML extraction hooks and the
// registry that binds a Shop's URL to the one Extractor able to scrape it.
//
// An Extractor owns no network or persistence concerns - it is handed an
// already-fetched document and the (possibly already-populated) domain
// object to update in place, and reports back whether it changed anything
// worth persisting and notifying about. The five product hooks and the one
// shop hook mirror ShopScraper's abstract methods in the original: each is
// independent and is expected to be run concurrently with its siblings by
// the driver.
package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/shopwatch/pkg/types"
)

// Extractor extracts shop and product attributes from HTML documents for
// exactly one site, identified by URL.
//
// Every hook reports (changed, fieldErr) rather than swallowing its own
// parse failure: changed is true only when it wrote a new value, fieldErr
// is true when it could not locate or parse the element it was looking
// for. The two are independent - a hook that runs cleanly but finds
// nothing new to set returns (false, false), while one that fails to find
// its element at all returns (false, true). The driver aggregates
// fieldErr into failCount; an unchanged-but-healthy field never counts as
// a failure.
type Extractor interface {
	// URL is the shop landing page this extractor is bound to. It is a
	// static constant per implementation, never derived from the scrapee.
	URL() string

	SetShopName(doc *goquery.Document, shop *types.Shop) (changed, fieldErr bool)
	SetProductName(doc *goquery.Document, product *types.Product) (changed, fieldErr bool)
	SetProductSizes(doc *goquery.Document, product *types.Product) (changed, fieldErr bool)
	SetProductPrice(doc *goquery.Document, product *types.Product) (changed, fieldErr bool)
	SetProductThumbURL(doc *goquery.Document, product *types.Product) (changed, fieldErr bool)
	// SetProductReleaseTime is a real hook kept for forward compatibility;
	// none of the reference sites expose a parseable release date today,
	// so both reference extractors implement it as a no-op and never
	// report a field error for it.
	SetProductReleaseTime(doc *goquery.Document, product *types.Product) (changed, fieldErr bool)
}

// DefaultSetShopName is the shared shop-name hook every reference
// extractor delegates to: it only ever sets the name once and never
// overwrites a name that scraping has already discovered.
func DefaultSetShopName(doc *goquery.Document, shop *types.Shop) (changed, fieldErr bool) {
	if shop.Name != "" {
		return false, false
	}
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return false, true
	}
	shop.Name = title
	return true, false
}
