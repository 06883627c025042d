package driver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/valpere/shopwatch/internal/scraper"
	"github.com/valpere/shopwatch/pkg/types"
)

// fakeRepo is an in-memory Repository double, the same role the teacher's
// fake HTTPClient plays for internal/scraper/client_test.go.
type fakeRepo struct {
	mu     sync.Mutex
	byUID  map[string]*types.Shop
	updates int
}

func newFakeRepo() *fakeRepo { return &fakeRepo{byUID: map[string]*types.Shop{}} }

func (f *fakeRepo) GetAll(ctx context.Context) ([]*types.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*types.Shop
	for _, s := range f.byUID {
		out = append(out, s)
	}
	return out, nil
}
func (f *fakeRepo) SetAll(ctx context.Context, shops []*types.Shop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUID = map[string]*types.Shop{}
	for _, s := range shops {
		f.byUID[s.UID] = s
	}
	return nil
}
func (f *fakeRepo) Update(ctx context.Context, s *types.Shop) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.byUID[s.UID] = s
	f.updates++
	return nil
}
func (f *fakeRepo) FindByUID(ctx context.Context, uid string) (*types.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byUID[uid], nil
}
func (f *fakeRepo) FindByName(ctx context.Context, name string) (*types.Shop, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.byUID {
		if s.Name == name {
			return s, nil
		}
	}
	return nil, nil
}
func (f *fakeRepo) UpdateFromProductURLs(ctx context.Context, urls []string) ([]*types.Shop, error) {
	return nil, nil
}

// fakeExtractor always reports the shop and every product as changed on
// first sight, matching a "name differs from empty" extractor in spirit.
type fakeExtractor struct{ url string }

func (e *fakeExtractor) URL() string { return e.url }
func (e *fakeExtractor) SetShopName(doc *goquery.Document, s *types.Shop) (bool, bool) {
	if s.Name != "" {
		return false, false
	}
	s.Name = "Fake Shop"
	return true, false
}
func (e *fakeExtractor) SetProductName(doc *goquery.Document, p *types.Product) (bool, bool) {
	if p.Name != "" {
		return false, false
	}
	p.Name = "Fake Product"
	return true, false
}
func (e *fakeExtractor) SetProductSizes(doc *goquery.Document, p *types.Product) (bool, bool) {
	return false, false
}
func (e *fakeExtractor) SetProductPrice(doc *goquery.Document, p *types.Product) (bool, bool) {
	return false, false
}
func (e *fakeExtractor) SetProductThumbURL(doc *goquery.Document, p *types.Product) (bool, bool) {
	return false, false
}
func (e *fakeExtractor) SetProductReleaseTime(doc *goquery.Document, p *types.Product) (bool, bool) {
	return false, false
}

type fakeNotifier struct {
	mu    sync.Mutex
	count int
}

func (n *fakeNotifier) NotifyProductChanged(ctx context.Context, s *types.Shop, p *types.Product) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.count++
	return nil
}

func TestDriverRunFetchesShopAndProducts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	s := types.NewShop(server.URL)
	s.AddProduct(types.NewProduct(server.URL + "/p/1"))

	session, err := scraper.NewSession(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	repo := newFakeRepo()
	notifier := &fakeNotifier{}
	d := New(s, repo, &fakeExtractor{url: server.URL}, session, notifier, testConfig(), nil)

	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if s.Name != "Fake Shop" {
		t.Errorf("expected shop name to be set, got %q", s.Name)
	}
	if repo.updates == 0 {
		t.Error("expected at least one repository update")
	}
	if notifier.count == 0 {
		t.Error("expected a notification for the changed product")
	}
}

func TestDriverStopEndsLoopAfterIteration(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	s := types.NewShop(server.URL)
	session, err := scraper.NewSession(nil, nil, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	cfg := testConfig()
	cfg.IterSleepFromSecs = 0
	cfg.IterSleepToSecs = 0
	cfg.IterSleepStep = 0.1

	d := New(s, newFakeRepo(), &fakeExtractor{url: server.URL}, session, nil, cfg, nil)
	d.Stop()

	done := make(chan error, 1)
	go func() { done <- d.LoopRun(context.Background()) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("LoopRun returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("LoopRun did not exit after Stop")
	}
}

func testConfig() ScraperConfig {
	cfg := DefaultScraperConfig()
	cfg.FetchTimeout = 2 * time.Second
	cfg.FetchMaxRetries = 1
	cfg.FetchUseRandomProxy = false
	return cfg
}
