// internal/shop/diff.go
//
// Package shop holds the shop/product reconciliation and size-diff rules,
// and the document-store repository that persists them.
package shop

import "github.com/valpere/shopwatch/pkg/types"

// ApplySizeUpdate applies one freshly-scraped size observation to product,
// returning whether the product should be considered changed as a result.
//
// The rule, unchanged from the original implementation:
//  1. If the size didn't exist yet, it is added and counts as a change.
//  2. If the size existed but was out of stock (or unknown) and is now
//     in stock, that counts as a change - a restock.
//  3. The size's stock flag is unconditionally overwritten with the new
//     observation, whether or not it counted as a change, so that a
//     product going back out of stock is still reflected.
func ApplySizeUpdate(product *types.Product, sizeEU string, isInStock bool) bool {
	changed := false

	size := product.FindSize(sizeEU)
	if size == nil {
		size = types.NewSize(sizeEU)
		product.AddSize(size)
		changed = true
	}

	wasInStock := size.IsInStock != nil && *size.IsInStock
	if !wasInStock && isInStock {
		changed = true
	}

	stock := isInStock
	size.IsInStock = &stock

	return changed
}
