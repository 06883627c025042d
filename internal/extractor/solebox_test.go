package extractor

import (
	"testing"

	"github.com/valpere/shopwatch/pkg/types"
)

const soleboxProductHTML = `
<html><body>
<div class="js-product-details" data-gtm='{"name": "Ultraboost 22", "id": "123"}'></div>
<div class="b-pdp-product-info-section">
  <span class="b-product-tile-price-item">98,55 &#8364;</span>
</div>
<div class="b-pdp-product-preview-wrapper">
  <div class="b-pdp-carousel-item"><div data-default-src="https://www.solebox.com/thumb.jpg"></div></div>
</div>
<span class="js-size-value">40</span>
<span class="js-size-value b-swatch-value--sold-out">41</span>
</body></html>`

func TestSoleboxSetProductName(t *testing.T) {
	e := NewSoleboxExtractor(nil)
	p := types.NewProduct("https://www.solebox.com/p/1")
	doc := mustParseHTML(t, soleboxProductHTML)

	changed, fieldErr := e.SetProductName(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected name to be set the first time with no field error")
	}
	if p.Name != "Ultraboost 22" {
		t.Errorf("got name %q", p.Name)
	}
}

func TestSoleboxSetProductSizes(t *testing.T) {
	e := NewSoleboxExtractor(nil)
	p := types.NewProduct("https://www.solebox.com/p/1")
	doc := mustParseHTML(t, soleboxProductHTML)

	changed, fieldErr := e.SetProductSizes(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected adding new sizes to count as a change with no field error")
	}
	s40 := p.FindSize("40")
	if s40 == nil || s40.IsInStock == nil || !*s40.IsInStock {
		t.Fatalf("expected size 40 in stock, got %+v", s40)
	}
	s41 := p.FindSize("41")
	if s41 == nil || s41.IsInStock == nil || *s41.IsInStock {
		t.Fatalf("expected size 41 out of stock, got %+v", s41)
	}
}

func TestSoleboxSetProductPrice(t *testing.T) {
	e := NewSoleboxExtractor(nil)
	p := types.NewProduct("https://www.solebox.com/p/1")
	doc := mustParseHTML(t, soleboxProductHTML)

	changed, fieldErr := e.SetProductPrice(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected price to be set the first time with no field error")
	}
	if p.BasePrice == nil || *p.BasePrice != 98.55 {
		t.Errorf("got price %v", p.BasePrice)
	}
}

func TestSoleboxSetProductThumbURL(t *testing.T) {
	e := NewSoleboxExtractor(nil)
	p := types.NewProduct("https://www.solebox.com/p/1")
	doc := mustParseHTML(t, soleboxProductHTML)

	changed, fieldErr := e.SetProductThumbURL(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected thumb url to be set the first time with no field error")
	}
	if p.URLThumb != "https://www.solebox.com/thumb.jpg" {
		t.Errorf("got url %q", p.URLThumb)
	}
}

func TestSoleboxMissingElementsReportFieldError(t *testing.T) {
	e := NewSoleboxExtractor(nil)
	p := types.NewProduct("https://www.solebox.com/p/1")
	doc := mustParseHTML(t, `<html><body></body></html>`)

	if changed, fieldErr := e.SetProductName(doc, p); changed || !fieldErr {
		t.Error("expected a field error when product details are missing")
	}
	if changed, fieldErr := e.SetProductSizes(doc, p); changed || !fieldErr {
		t.Error("expected a field error when size elements are missing")
	}
	if changed, fieldErr := e.SetProductPrice(doc, p); changed || !fieldErr {
		t.Error("expected a field error when price text is missing")
	}
	if changed, fieldErr := e.SetProductThumbURL(doc, p); changed || !fieldErr {
		t.Error("expected a field error when thumb element is missing")
	}
}
