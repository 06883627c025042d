package extractor

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/shopwatch/pkg/types"
)

func mustParseHTML(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("failed parsing test HTML: %v", err)
	}
	return doc
}

const bstnProductHTML = `
<html><body>
<div id="detailRight"><span class="productname">Air Max 90</span></div>
<div class="edd-dropdown clear">
  <option class="">38</option>
  <option class="soldout">39</option>
  <option></option>
</div>
<div class="buybox">
  <div class="price">
    <meta itemprop="price" content="129,95">
    <meta itemprop="pricecurrency" content="EUR">
  </div>
</div>
<li class="thumbnail-1"><div class="wrap"><img src="https://www.bstn.com/thumb.jpg"></div></li>
</body></html>`

func TestBstnSetProductName(t *testing.T) {
	e := NewBstnExtractor(nil)
	p := types.NewProduct("https://www.bstn.com/p/1")
	doc := mustParseHTML(t, bstnProductHTML)

	changed, fieldErr := e.SetProductName(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected name to be set the first time with no field error")
	}
	if p.Name != "Air Max 90" {
		t.Errorf("got name %q", p.Name)
	}
	changed, fieldErr = e.SetProductName(doc, p)
	if changed || fieldErr {
		t.Error("expected no change and no field error when re-scraping the same name")
	}
}

func TestBstnSetProductSizes(t *testing.T) {
	e := NewBstnExtractor(nil)
	p := types.NewProduct("https://www.bstn.com/p/1")
	doc := mustParseHTML(t, bstnProductHTML)

	changed, fieldErr := e.SetProductSizes(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected adding new sizes to count as a change with no field error")
	}
	s38 := p.FindSize("38")
	if s38 == nil || s38.IsInStock == nil || !*s38.IsInStock {
		t.Fatalf("expected size 38 in stock, got %+v", s38)
	}
	s39 := p.FindSize("39")
	if s39 == nil || s39.IsInStock == nil || *s39.IsInStock {
		t.Fatalf("expected size 39 out of stock, got %+v", s39)
	}
}

func TestBstnSetProductPrice(t *testing.T) {
	e := NewBstnExtractor(nil)
	p := types.NewProduct("https://www.bstn.com/p/1")
	doc := mustParseHTML(t, bstnProductHTML)

	changed, fieldErr := e.SetProductPrice(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected price to be set the first time with no field error")
	}
	if p.BasePrice == nil || *p.BasePrice != 129.95 {
		t.Errorf("got price %v", p.BasePrice)
	}
	if p.Currency != "EUR" {
		t.Errorf("got currency %q", p.Currency)
	}
}

func TestBstnSetProductThumbURL(t *testing.T) {
	e := NewBstnExtractor(nil)
	p := types.NewProduct("https://www.bstn.com/p/1")
	doc := mustParseHTML(t, bstnProductHTML)

	changed, fieldErr := e.SetProductThumbURL(doc, p)
	if !changed || fieldErr {
		t.Fatal("expected thumb url to be set the first time with no field error")
	}
	if p.URLThumb != "https://www.bstn.com/thumb.jpg" {
		t.Errorf("got url %q", p.URLThumb)
	}
}

func TestBstnSetProductReleaseTimeIsNoOp(t *testing.T) {
	e := NewBstnExtractor(nil)
	p := types.NewProduct("https://www.bstn.com/p/1")
	doc := mustParseHTML(t, bstnProductHTML)

	changed, fieldErr := e.SetProductReleaseTime(doc, p)
	if changed || fieldErr {
		t.Error("expected release time hook to always report no change and no field error")
	}
}

func TestBstnMissingElementsReportFieldError(t *testing.T) {
	e := NewBstnExtractor(nil)
	p := types.NewProduct("https://www.bstn.com/p/1")
	doc := mustParseHTML(t, `<html><body></body></html>`)

	if changed, fieldErr := e.SetProductName(doc, p); changed || !fieldErr {
		t.Error("expected a field error when name element is missing")
	}
	if changed, fieldErr := e.SetProductPrice(doc, p); changed || !fieldErr {
		t.Error("expected a field error when price elements are missing")
	}
	if changed, fieldErr := e.SetProductThumbURL(doc, p); changed || !fieldErr {
		t.Error("expected a field error when thumb element is missing")
	}
}
