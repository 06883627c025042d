// internal/config/types.go
package config

import "time"

// BootstrapConfig is the single YAML file read at process startup: it holds
// everything needed to reach the document stores that own the rest of the
// configuration (scraper timing, read once when each driver is built;
// webhook endpoints and message settings, read on every send), plus
// the bits that can only ever live outside a document store - connection
// strings and local file paths.
//
// Attribute names are lowerCamel in YAML, matching the rest of this
// codebase's document-store field naming.
type BootstrapConfig struct {
	Mongo         MongoBootstrap `yaml:"mongo"`
	ProxyFile     string         `yaml:"proxyFile"`
	UserAgentFile string         `yaml:"userAgentFile"`
	Log           LogBootstrap   `yaml:"log"`
	MetricsAddr   string         `yaml:"metricsAddr"`
}

// MongoBootstrap names the Mongo database and collections this process
// reads from and writes to.
type MongoBootstrap struct {
	ConnectionString    string `yaml:"connectionString"`
	Database            string `yaml:"database"`
	ShopCollection      string `yaml:"shopCollection"`
	ConfigCollection    string `yaml:"configCollection"`
	MessengerCollection string `yaml:"messengerCollection"`
}

// LogBootstrap mirrors config.base.py's LoggerConfig: which sinks are
// active and at what level, kept distinct from ScraperConfig so a reload
// of scraper timing never touches logging and vice versa.
type LogBootstrap struct {
	Console      bool   `yaml:"console"`
	File         bool   `yaml:"file"`
	FilePath     string `yaml:"filePath"`
	ConsoleLevel string `yaml:"consoleLevel"`
	FileLevel    string `yaml:"fileLevel"`
}

// DefaultBootstrapConfig is the rescue configuration used when no YAML file
// is found at startup, matching the original's "no record found, configure
// the rescue manually" fallback behavior applied one level up (at the file,
// not the document, level).
func DefaultBootstrapConfig() BootstrapConfig {
	return BootstrapConfig{
		Mongo: MongoBootstrap{
			Database:            "shopwatch",
			ShopCollection:      "shops",
			ConfigCollection:    "scraper_configs",
			MessengerCollection: "messenger_configs",
		},
		Log: LogBootstrap{
			Console:      true,
			File:         false,
			ConsoleLevel: "info",
			FileLevel:    "info",
		},
		MetricsAddr: ":9090",
	}
}

// scraperConfigDoc is the Mongo document shape backing the
// scraperByUrl -> scraperCommon fallback chain, one document per scope.
// Field names mirror config.base.py's ScraperConfig attributes, since both
// describe the identical set of knobs.
type scraperConfigDoc struct {
	Scope               string  `bson:"scope"`
	URL                 string  `bson:"url,omitempty"`
	IterSleepFromScnds  float64 `bson:"iterSleepFromScnds"`
	IterSleepToScnds    float64 `bson:"iterSleepToScnds"`
	IterSleepSteps      float64 `bson:"iterSleepSteps"`
	FetchTimeoutScnds   float64 `bson:"fetchTimeoutScnds"`
	FetchMaxRetries     int     `bson:"fetchMaxRetries"`
	FetchUseRandomProxy bool    `bson:"fetchUseRandomProxy"`
}

const (
	scraperScopeCommon = "common"
	scraperScopeURL    = "url"
)

// messageConfigDoc backs the per-kind webhook message configuration,
// grounded on network/messenger.py::MessageConfig. ConfigName matches one
// of the three well-known values below, same as the original's
// "product-msg-config" / "log-msg-config" / "error-msg-config" lookups.
type messageConfigDoc struct {
	ConfigName     string  `bson:"configName"`
	User           string  `bson:"user"`
	Token          string  `bson:"token"`
	TimeoutScnds   float64 `bson:"timeoutScnds"`
	MaxRetries     int     `bson:"maxRetries"`
	UseRandomProxy bool    `bson:"useRandomProxy"`
	Username       string  `bson:"username"`
}

func (d messageConfigDoc) timeout() time.Duration {
	return time.Duration(d.TimeoutScnds * float64(time.Second))
}

const (
	productMessageConfigName = "product-msg-config"
	logMessageConfigName     = "log-msg-config"
	errorMessageConfigName   = "error-msg-config"
)

// webhookEndpointDoc backs the single "apiType: webhook" document holding
// the Discord-compatible webhook's base API endpoint.
type webhookEndpointDoc struct {
	APIType     string `bson:"apiType"`
	APIEndpoint string `bson:"apiEndpoint"`
}

const webhookAPIType = "webhook"
