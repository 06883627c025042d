// cmd/shopwatch/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"github.com/valpere/shopwatch/internal/config"
	"github.com/valpere/shopwatch/internal/driver"
	"github.com/valpere/shopwatch/internal/extractor"
	"github.com/valpere/shopwatch/internal/monitoring"
	"github.com/valpere/shopwatch/internal/notify"
	"github.com/valpere/shopwatch/internal/proxy"
	"github.com/valpere/shopwatch/internal/scraper"
	"github.com/valpere/shopwatch/internal/shop"
	"github.com/valpere/shopwatch/internal/useragent"
	"github.com/valpere/shopwatch/internal/utils"
)

// Build-time variables (set by ldflags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

var (
	bootstrapPath   string
	productURLsPath string
)

func main() {
	args := os.Args[1:]
	args = parseGlobalFlags(args)

	command := "run"
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "run":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "shopwatch: %v\n", err)
			os.Exit(1)
		}
	case "version":
		printVersion()
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Error: unknown command '%s'\n", command)
		printUsage()
		os.Exit(1)
	}
}

func parseGlobalFlags(args []string) []string {
	bootstrapPath = "shopwatch.yaml"
	productURLsPath = "ProductURLs.txt"

	var remaining []string
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "-bootstrap", "--bootstrap":
			if i+1 < len(args) {
				bootstrapPath = args[i+1]
				i++
			}
		case "-product-urls", "--product-urls":
			if i+1 < len(args) {
				productURLsPath = args[i+1]
				i++
			}
		default:
			remaining = append(remaining, args[i])
		}
	}
	return remaining
}

func printUsage() {
	fmt.Printf("shopwatch %s - multi-tenant shop stock watcher\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  shopwatch [global-options] <command>")
	fmt.Println()
	fmt.Println("Global Options:")
	fmt.Println("  -bootstrap FILE     YAML bootstrap config (default shopwatch.yaml)")
	fmt.Println("  -product-urls FILE  Product URL list (default ProductURLs.txt)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run       Start the scheduler (default)")
	fmt.Println("  version   Show version information")
	fmt.Println("  help      Show this help message")
}

func printVersion() {
	fmt.Printf("shopwatch %s\n", version)
	fmt.Printf("Build time: %s\n", buildTime)
	fmt.Printf("Git commit: %s\n", gitCommit)
}

// run implements the scheduler entry point's six startup steps and its
// interrupt-driven shutdown sequence.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Configure logger.
	boot, err := config.LoadBootstrap(bootstrapPath)
	if err != nil {
		return fmt.Errorf("loading bootstrap config: %w", err)
	}
	logger := utils.NewComponentLogger(
		utils.NewLoggerWithLevel(utils.ParseLogLevel(boot.Log.ConsoleLevel)), "shopwatch")

	shopRepo, err := shop.NewMongoRepository(ctx, shop.MongoOptions{
		ConnectionString: boot.Mongo.ConnectionString,
		Database:         boot.Mongo.Database,
		Collection:       boot.Mongo.ShopCollection,
	}, logger)
	if err != nil {
		return fmt.Errorf("opening shop repository: %w", err)
	}
	defer shopRepo.Close(context.Background())

	configStore, err := config.NewStore(ctx, boot, logger)
	if err != nil {
		return fmt.Errorf("opening config store: %w", err)
	}
	defer configStore.Close(context.Background())

	// 2. Reconcile shops from product-URL list.
	productURLs, err := shop.LoadProductURLsFile(productURLsPath, logger)
	if err != nil {
		return fmt.Errorf("loading product URL list: %w", err)
	}
	shops, err := shopRepo.UpdateFromProductURLs(ctx, productURLs)
	if err != nil {
		return fmt.Errorf("reconciling shops: %w", err)
	}
	logger.Infof("reconciled %d shops from %d product URLs", len(shops), len(productURLs))

	// 3. Open HTTP session.
	proxyPool := proxy.NewPool(logger)
	if boot.ProxyFile != "" {
		if _, err := proxyPool.LoadFile(boot.ProxyFile); err != nil {
			logger.Warnf("loading proxy file: %v", err)
		}
	}
	uaPool := useragent.NewPool(logger)
	if boot.UserAgentFile != "" {
		if _, err := uaPool.LoadFile(boot.UserAgentFile); err != nil {
			logger.Warnf("loading user-agent file: %v", err)
		}
	}
	session, err := scraper.NewSession(proxyPool, uaPool, logger)
	if err != nil {
		return fmt.Errorf("opening HTTP session: %w", err)
	}

	metrics := monitoring.NewMetricsManager(monitoring.MetricsConfig{})
	dispatcher := notify.NewDispatcher(session, configStore, logger)

	// 4. Build drivers via the extractor registry; skip shops with no
	// extractor (warn).
	registry := extractor.NewRegistry(logger)
	registry.Register(extractor.NewBstnExtractor(logger))
	registry.Register(extractor.NewSoleboxExtractor(logger))

	matched := registry.MakeFromShops(shops)
	var drivers []*driver.Driver
	for _, s := range shops {
		ext, ok := matched[s.UID]
		if !ok {
			logger.Warnf("no extractor registered for shop %s, skipping", s.URL)
			continue
		}
		cfg := configStore.FindScraperConfigByURL(ctx, s.URL)
		drivers = append(drivers, driver.New(s, shopRepo, ext, session, dispatcher, cfg, logger))
	}
	metrics.SetActiveDrivers(len(drivers))

	metricsCtx, stopMetrics := context.WithCancel(context.Background())
	go func() {
		if err := startOpsServer(metricsCtx, boot.MetricsAddr, metrics); err != nil {
			logger.Warnf("ops server stopped: %v", err)
		}
	}()

	// 5. Launch all driver.LoopRun() concurrently; await all.
	g, gctx := errgroup.WithContext(ctx)
	for _, d := range drivers {
		d := d
		g.Go(func() error { return d.LoopRun(gctx) })
	}

	runErr := g.Wait()

	// 6. On interrupt, set isCancelLoop on all drivers, wait for them
	// (already satisfied by g.Wait() returning once ctx was cancelled),
	// then close the session.
	stopMetrics()
	session.Close()

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	logger.Infof("shopwatch shut down cleanly")
	return nil
}

// startOpsServer runs the scheduler's operational HTTP surface - a
// liveness probe and the Prometheus scrape endpoint - until ctx is
// cancelled.
func startOpsServer(ctx context.Context, address string, metrics *monitoring.MetricsManager) error {
	if address == "" {
		address = ":9090"
	}
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		metrics.RefreshSystemMetrics()
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", metrics.MetricsHandler()).Methods(http.MethodGet)

	server := &http.Server{Addr: address, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}
