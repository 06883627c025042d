// internal/config/config.go
//
// Package config loads the process's YAML bootstrap file and wraps the
// Mongo-backed scraper/webhook configuration documents behind the
// scraperByUrl -> scraperCommon -> hard-coded fallback chain the original
// implementation used (config.base.py::TinyConfigDao), translated from a
// single-file TinyDB table into two small Mongo collections.
package config

import (
	"context"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gopkg.in/yaml.v3"

	"github.com/valpere/shopwatch/internal/driver"
	"github.com/valpere/shopwatch/internal/notify"
	"github.com/valpere/shopwatch/internal/utils"
)

// LoadBootstrap reads and parses the YAML bootstrap file at path. A missing
// file is not an error here: LoadBootstrap returns DefaultBootstrapConfig.
// Those defaults name no Mongo connection string, so a process started
// without the file still fails when it opens the shop repository.
func LoadBootstrap(path string) (BootstrapConfig, error) {
	cfg := DefaultBootstrapConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, utils.WrapError(err, utils.ErrCodeMissingConfig, "reading bootstrap config file")
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, utils.WrapError(err, utils.ErrCodeInvalidConfig, "parsing bootstrap config file")
	}
	return cfg, nil
}

// Store resolves both scraper timing and webhook message configuration
// from Mongo, falling back to a hard-coded rescue configuration exactly
// the way TinyConfigDao does when a document is missing. It implements
// notify.ConfigProvider directly, so one Store can be handed to both a
// Driver's config resolution and a Dispatcher.
type Store struct {
	scraperConfigs *mongo.Collection
	messengers     *mongo.Collection
	logger         utils.Logger
}

// NewStore connects to Mongo using the bootstrap's connection string and
// returns a ready Store.
func NewStore(ctx context.Context, boot BootstrapConfig, logger utils.Logger) (*Store, error) {
	if boot.Mongo.ConnectionString == "" {
		return nil, utils.NewError(utils.ErrCodeMissingConfig, "mongo connection string is required").Build()
	}
	if logger == nil {
		logger = utils.NewLogger()
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(boot.Mongo.ConnectionString))
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "connecting to mongo")
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeDatabaseError, "pinging mongo")
	}

	db := client.Database(boot.Mongo.Database)
	return &Store{
		scraperConfigs: db.Collection(boot.Mongo.ConfigCollection),
		messengers:     db.Collection(boot.Mongo.MessengerCollection),
		logger:         utils.NewComponentLogger(logger, "config-store"),
	}, nil
}

// FindScraperConfigByURL resolves a shop's scraper timing config, falling
// back to the common config and finally the hard-coded rescue default when
// neither document exists - the three-tier chain _findScraperConfigByUrl
// implements.
func (s *Store) FindScraperConfigByURL(ctx context.Context, url string) driver.ScraperConfig {
	var doc scraperConfigDoc
	err := s.scraperConfigs.FindOne(ctx, bson.M{"scope": scraperScopeURL, "url": url}).Decode(&doc)
	if err == nil {
		return toDriverConfig(doc)
	}
	if err != mongo.ErrNoDocuments {
		s.logger.Warnf("scraper config lookup failed for %s, falling back to common: %v", url, err)
	}
	return s.FindScraperCommonConfig(ctx)
}

// FindScraperCommonConfig resolves the persisted default scraper config,
// falling back to the hard-coded rescue values when no document exists.
func (s *Store) FindScraperCommonConfig(ctx context.Context) driver.ScraperConfig {
	var doc scraperConfigDoc
	err := s.scraperConfigs.FindOne(ctx, bson.M{"scope": scraperScopeCommon}).Decode(&doc)
	if err != nil {
		if err != mongo.ErrNoDocuments {
			s.logger.Warnf("common scraper config lookup failed, falling back to rescue config: %v", err)
		}
		return driver.DefaultScraperConfig()
	}
	return toDriverConfig(doc)
}

func toDriverConfig(doc scraperConfigDoc) driver.ScraperConfig {
	return driver.ScraperConfig{
		IterSleepFromSecs:   doc.IterSleepFromScnds,
		IterSleepToSecs:     doc.IterSleepToScnds,
		IterSleepStep:       doc.IterSleepSteps,
		FetchTimeout:        time.Duration(doc.FetchTimeoutScnds * float64(time.Second)),
		FetchMaxRetries:     doc.FetchMaxRetries,
		FetchUseRandomProxy: doc.FetchUseRandomProxy,
	}
}

// WebhookEndpoint implements notify.ConfigProvider, grounded on
// Repo.findWebhookApiEndpoint.
func (s *Store) WebhookEndpoint(ctx context.Context) (string, error) {
	var doc webhookEndpointDoc
	err := s.messengers.FindOne(ctx, bson.M{"apiType": webhookAPIType}).Decode(&doc)
	if err != nil {
		return "", utils.WrapError(err, utils.ErrCodeMissingConfig, "no configured webhook API endpoint found")
	}
	return doc.APIEndpoint, nil
}

// ProductMessageConfig implements notify.ConfigProvider, grounded on
// Repo.findProductMessageConfig.
func (s *Store) ProductMessageConfig(ctx context.Context) (*notify.MessageConfig, error) {
	return s.findMessageConfig(ctx, productMessageConfigName)
}

// LogMessageConfig implements notify.ConfigProvider, grounded on
// Repo.findLogMessageConfig.
func (s *Store) LogMessageConfig(ctx context.Context) (*notify.MessageConfig, error) {
	return s.findMessageConfig(ctx, logMessageConfigName)
}

// ErrorMessageConfig implements notify.ConfigProvider, grounded on
// Repo.findErrorMessageConfig.
func (s *Store) ErrorMessageConfig(ctx context.Context) (*notify.MessageConfig, error) {
	return s.findMessageConfig(ctx, errorMessageConfigName)
}

func (s *Store) findMessageConfig(ctx context.Context, configName string) (*notify.MessageConfig, error) {
	var doc messageConfigDoc
	err := s.messengers.FindOne(ctx, bson.M{"configName": configName}).Decode(&doc)
	if err != nil {
		return nil, utils.WrapError(err, utils.ErrCodeMissingConfig, "no message configuration found: "+configName)
	}
	return &notify.MessageConfig{
		ConfigName:     doc.ConfigName,
		User:           doc.User,
		Token:          doc.Token,
		Timeout:        doc.timeout(),
		MaxRetries:     doc.MaxRetries,
		UseRandomProxy: doc.UseRandomProxy,
		Username:       doc.Username,
	}, nil
}

// Close disconnects the underlying Mongo client. Both collections share one
// client, reached through either handle.
func (s *Store) Close(ctx context.Context) error {
	return s.scraperConfigs.Database().Client().Disconnect(ctx)
}
