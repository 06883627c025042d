// internal/shop/reconcile.go
package shop

import (
	"fmt"
	"net/url"

	"github.com/valpere/shopwatch/pkg/types"
)

// ReconcileFromProductURLs builds one Shop per distinct netloc found among
// productURLs, assigning every matching product to it.
//
// Grounded on productsUrlsRepo.py::createShops: iterate in reverse so that
// later-listed duplicate URLs do not shadow earlier ones, skip a URL once
// its product has already been assigned to a shop, and leave a new shop's
// Name empty so scraping can fill it in.
func ReconcileFromProductURLs(productURLs []string) ([]*types.Shop, error) {
	var products []*types.Product
	for _, u := range productURLs {
		if u == "" {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || parsed.Host == "" {
			return nil, fmt.Errorf("URL not splittable into a valid netloc part: %s", u)
		}
		products = append(products, types.NewProduct(u))
	}

	var shops []*types.Shop
	seenNetlocs := map[string]bool{}
	assigned := map[string]bool{}

	for i := len(products) - 1; i >= 0; i-- {
		product := products[i]
		if assigned[product.URL] {
			continue
		}

		parsed, err := url.Parse(product.URL)
		if err != nil {
			return nil, fmt.Errorf("URL could not be parsed into parts: %w", err)
		}
		if parsed.Scheme == "" || parsed.Host == "" {
			continue
		}
		if seenNetlocs[parsed.Host] {
			continue
		}
		seenNetlocs[parsed.Host] = true

		shopURL := fmt.Sprintf("%s://%s", parsed.Scheme, parsed.Host)
		newShop := types.NewShop(shopURL)
		matched, err := newShop.AssignProducts(products)
		if err != nil {
			return nil, err
		}
		for _, m := range matched {
			assigned[m.URL] = true
		}
		shops = append(shops, newShop)
	}

	return shops, nil
}
