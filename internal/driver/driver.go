// Package driver runs one shop's scrape loop: fetch the shop landing page
// and every configured product page, hand each document to the bound
// Extractor, persist whatever changed, and fire a notification for it.
//
// Grounded on scraper/base.py::Scraper.loopRun (the iteration loop,
// randomized inter-iteration sleep, cooperative cancellation) and
// shop/scraper.py::ShopScraper (run's two-phase gather, _requestProduct's
// five-hook gather-then-commit-then-notify).
package driver

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/shopwatch/internal/extractor"
	"github.com/valpere/shopwatch/internal/scraper"
	"github.com/valpere/shopwatch/internal/shop"
	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// ScraperConfig holds the per-scraper knobs resolved by internal/config's
// scraperByUrl -> scraperCommon -> hard-coded fallback chain.
type ScraperConfig struct {
	IterSleepFromSecs float64
	IterSleepToSecs   float64
	IterSleepStep     float64
	FetchTimeout      time.Duration
	FetchMaxRetries   int
	FetchUseRandomProxy bool
}

// DefaultScraperConfig is the hard-coded fallback at the end of the
// resolution chain, matching __configureAfterInit's own defaults.
func DefaultScraperConfig() ScraperConfig {
	return ScraperConfig{
		IterSleepFromSecs:   30,
		IterSleepToSecs:     40,
		IterSleepStep:       0.5,
		FetchTimeout:        10 * time.Second,
		FetchMaxRetries:     3,
		FetchUseRandomProxy: true,
	}
}

// Notifier dispatches a restock/update notification for one product.
// Implemented by internal/notify's webhook dispatcher.
type Notifier interface {
	NotifyProductChanged(ctx context.Context, s *types.Shop, p *types.Product) error
}

// Driver scrapes a single Shop on behalf of the Extractor bound to it.
type Driver struct {
	shop      *types.Shop
	repo      shop.Repository
	extractor extractor.Extractor
	request   *scraper.Request
	notifier  Notifier
	logger    utils.Logger

	cfg ScraperConfig

	failCount    int64
	isCancelled  int32
}

// New returns a Driver for scrapee, configured per cfg.
func New(scrapee *types.Shop, repo shop.Repository, ext extractor.Extractor, session *scraper.Session, notifier Notifier, cfg ScraperConfig, logger utils.Logger) *Driver {
	if logger == nil {
		logger = utils.NewLogger()
	}
	req := scraper.NewRequest(session)
	req.Configure(cfg.FetchTimeout, cfg.FetchMaxRetries, cfg.FetchUseRandomProxy)

	return &Driver{
		shop:      scrapee,
		repo:      repo,
		extractor: ext,
		request:   req,
		notifier:  notifier,
		cfg:       cfg,
		logger:    utils.NewComponentLogger(logger, "driver"),
	}
}

// Stop requests the loop to exit after its current iteration completes.
// In-flight requests are not cancelled - they run to their configured
// timeout, matching the system's "stop does not cancel in flight" choice.
func (d *Driver) Stop() {
	atomic.StoreInt32(&d.isCancelled, 1)
}

func (d *Driver) cancelled() bool {
	return atomic.LoadInt32(&d.isCancelled) == 1
}

// LoopRun repeatedly calls Run until Stop is called or ctx is done,
// sleeping a randomized interval between iterations.
func (d *Driver) LoopRun(ctx context.Context) error {
	d.logger.Debugf("looper for %s called, will enter loop", d.shop.URL)

	iteration := 0
	for {
		iteration++
		start := time.Now()
		d.logger.Infof("scraper %s: starting iteration", d.shop.Name)

		if err := d.Run(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Warnf("scraper %s: iteration %d returned an error: %v", d.shop.Name, iteration, err)
		}

		marker := "\U0001F539" // low-fail marker, matches 🔹
		if atomic.LoadInt64(&d.failCount) > 0 {
			marker = "\U0001F538" // elevated-fail marker, matches 🔸
		}
		d.logger.Infof("%s%s: iteration %d done (took %s)", marker, d.shop.Name, iteration, time.Since(start).Round(time.Millisecond))

		if d.cancelled() {
			d.logger.Infof("\U0001F6AB scraper %s: cancelled, exiting loop", d.shop.Name)
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		sleepFor := scraper.RandomBetween(d.cfg.IterSleepFromSecs, d.cfg.IterSleepToSecs, d.cfg.IterSleepStep)
		d.logger.Infof("waiting %.2fs before running scraper again", sleepFor)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(sleepFor * float64(time.Second))):
		}
	}
}

// Run scrapes the shop and all of its products exactly once.
func (d *Driver) Run(ctx context.Context) error {
	d.logger.Debugf("run() called for %s", d.shop.URL)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.requestShop(gctx) })
	g.Go(func() error { return d.requestAllProducts(gctx) })
	err := g.Wait()

	marker := "\U0001F539"
	if atomic.LoadInt64(&d.failCount) > 0 {
		marker = "\U0001F538"
	}
	d.logger.Infof("%sdriver completed. total fails: %d. %s", marker, atomic.LoadInt64(&d.failCount), d.shop.URL)
	return err
}

func (d *Driver) requestShop(ctx context.Context) error {
	d.logger.Debugf("request shop %s", d.shop.URL)

	resp := d.request.Fetch(ctx, scraper.Params{URL: d.shop.URL})
	if resp.Err != nil {
		atomic.AddInt64(&d.failCount, 1)
	}
	if resp.Text == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text))
	if err != nil {
		atomic.AddInt64(&d.failCount, 1)
		return nil
	}

	shopChanged, fieldErr := d.extractor.SetShopName(doc, d.shop)
	if fieldErr {
		atomic.AddInt64(&d.failCount, 1)
	}
	d.shop.SetLastScanNow()
	if shopChanged {
		if err := d.repo.Update(ctx, d.shop); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) requestAllProducts(ctx context.Context) error {
	d.logger.Debugf("start requesting all products for %s", d.shop.URL)

	g, gctx := errgroup.WithContext(ctx)
	for _, p := range d.shop.Products {
		product := p
		g.Go(func() error { return d.requestProduct(gctx, product) })
	}
	return g.Wait()
}

// requestProduct fetches one product page and runs the five extraction
// hooks against it concurrently. Each hook writes its own field family of
// the Product (name, sizes, price, thumbnail, release date), so the hooks
// do not write the same fields; the product counts as changed if any hook
// reports a change.
func (d *Driver) requestProduct(ctx context.Context, product *types.Product) error {
	d.logger.Debugf("request product %s", product.URL)

	resp := d.request.Fetch(ctx, scraper.Params{URL: product.URL})
	if resp.Err != nil {
		atomic.AddInt64(&d.failCount, 1)
	}
	if resp.Text == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.Text))
	if err != nil {
		atomic.AddInt64(&d.failCount, 1)
		return nil
	}

	var anyChanged int32
	var hooks errgroup.Group
	for _, hook := range []func(*goquery.Document, *types.Product) (bool, bool){
		d.extractor.SetProductName,
		d.extractor.SetProductSizes,
		d.extractor.SetProductPrice,
		d.extractor.SetProductThumbURL,
		d.extractor.SetProductReleaseTime,
	} {
		hook := hook
		hooks.Go(func() error {
			changed, fieldErr := hook(doc, product)
			if changed {
				atomic.StoreInt32(&anyChanged, 1)
			}
			if fieldErr {
				atomic.AddInt64(&d.failCount, 1)
			}
			return nil
		})
	}
	hooks.Wait()

	product.SetLastScanNow()
	d.logger.Debugf("completed product %s", product.URL)

	if atomic.LoadInt32(&anyChanged) == 0 {
		return nil
	}
	if err := d.repo.Update(ctx, d.shop); err != nil {
		return err
	}
	if d.notifier != nil {
		if err := d.notifier.NotifyProductChanged(ctx, d.shop, product); err != nil {
			d.logger.Warnf("notify failed for %s: %v", product.URL, err)
		}
	}
	return nil
}
