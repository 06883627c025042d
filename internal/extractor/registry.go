package extractor

import (
	"fmt"

	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// Registry holds every known Extractor and binds a Shop to the one
// Extractor whose URL matches it, grounded on ScraperFactory's
// register/makeFromScrapee(s) pair.
type Registry struct {
	extractors []Extractor
	logger     utils.Logger
}

// NewRegistry returns an empty registry. Register extractors with Register.
func NewRegistry(logger utils.Logger) *Registry {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Registry{logger: utils.NewComponentLogger(logger, "extractor-registry")}
}

// Register adds e to the registry, ignoring a duplicate URL registration.
func (r *Registry) Register(e Extractor) {
	for _, existing := range r.extractors {
		if existing.URL() == e.URL() {
			return
		}
	}
	r.extractors = append(r.extractors, e)
}

// MakeFromShop returns the single Extractor bound to shop's URL, or an
// error if zero or more than one extractor claims that URL.
func (r *Registry) MakeFromShop(shop *types.Shop) (Extractor, error) {
	var matches []Extractor
	for _, e := range r.extractors {
		if e.URL() == shop.URL {
			matches = append(matches, e)
		}
	}

	switch len(matches) {
	case 0:
		return nil, utils.NewError(utils.ErrCodeLookupFailed,
			fmt.Sprintf("expected to find an extractor but found none for shop URL %s", shop.URL)).Build()
	case 1:
		return matches[0], nil
	default:
		return nil, utils.NewError(utils.ErrCodeLookupFailed,
			fmt.Sprintf("expected exactly one extractor but found %d for shop URL %s", len(matches), shop.URL)).Build()
	}
}

// MakeFromShops returns one Extractor per shop that has exactly one match,
// logging and skipping (not failing) any shop whose lookup errors - mirrors
// makeFromScrapees's "return gracefully" behavior.
func (r *Registry) MakeFromShops(shops []*types.Shop) map[string]Extractor {
	result := make(map[string]Extractor, len(shops))
	if len(shops) == 0 {
		r.logger.Warn("extractor registry: no shops were passed in")
		return result
	}

	for _, shop := range shops {
		e, err := r.MakeFromShop(shop)
		if err != nil {
			r.logger.Warnf("extractor registry: %v", err)
			continue
		}
		result[shop.UID] = e
	}
	return result
}
