package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/valpere/shopwatch/internal/driver"
)

func TestLoadBootstrapMissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadBootstrap(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadBootstrap: %v", err)
	}
	want := DefaultBootstrapConfig()
	if cfg != want {
		t.Errorf("expected default bootstrap config for a missing file, got %+v", cfg)
	}
}

func TestLoadBootstrapParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	writeFile(t, path, `
mongo:
  connectionString: mongodb://localhost:27017
  database: shopwatch_test
  shopCollection: shops
  configCollection: scraper_configs
  messengerCollection: messenger_configs
proxyFile: /etc/shopwatch/proxies.txt
userAgentFile: /etc/shopwatch/useragents.txt
log:
  console: true
  file: true
  filePath: /var/log/shopwatch.log
  consoleLevel: info
  fileLevel: debug
metricsAddr: ":9100"
`)

	cfg, err := LoadBootstrap(path)
	if err != nil {
		t.Fatalf("LoadBootstrap: %v", err)
	}
	if cfg.Mongo.ConnectionString != "mongodb://localhost:27017" {
		t.Errorf("got connection string %q", cfg.Mongo.ConnectionString)
	}
	if cfg.Mongo.Database != "shopwatch_test" {
		t.Errorf("got database %q", cfg.Mongo.Database)
	}
	if !cfg.Log.File || cfg.Log.FileLevel != "debug" {
		t.Errorf("expected file logging enabled at debug level, got %+v", cfg.Log)
	}
	if cfg.MetricsAddr != ":9100" {
		t.Errorf("got metrics addr %q", cfg.MetricsAddr)
	}
}

func TestLoadBootstrapRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bootstrap.yaml")
	writeFile(t, path, "mongo: [this is not a mapping")

	if _, err := LoadBootstrap(path); err == nil {
		t.Error("expected an error for malformed YAML")
	}
}

func TestToDriverConfigTranslatesScnds(t *testing.T) {
	doc := scraperConfigDoc{
		Scope:               scraperScopeCommon,
		IterSleepFromScnds:  20,
		IterSleepToScnds:    30,
		IterSleepSteps:      0.5,
		FetchTimeoutScnds:   8,
		FetchMaxRetries:     4,
		FetchUseRandomProxy: true,
	}

	got := toDriverConfig(doc)
	want := driver.ScraperConfig{
		IterSleepFromSecs:   20,
		IterSleepToSecs:     30,
		IterSleepStep:       0.5,
		FetchTimeout:        8 * time.Second,
		FetchMaxRetries:     4,
		FetchUseRandomProxy: true,
	}
	if got != want {
		t.Errorf("toDriverConfig() = %+v, want %+v", got, want)
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing test fixture: %v", err)
	}
}
