package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/valpere/shopwatch/internal/scraper"
	"github.com/valpere/shopwatch/internal/utils"
	"github.com/valpere/shopwatch/pkg/types"
)

// MessageConfig is the per-message-kind webhook configuration, grounded on
// network/messenger.py::MessageConfig. Attribute names mirror the config
// store's document fields.
type MessageConfig struct {
	ConfigName     string
	User           string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	UseRandomProxy bool
	Username       string
}

// ConfigProvider resolves the webhook endpoint and per-kind message
// configuration, the Go analogue of Repo's findWebhookApiEndpoint /
// findProductMessageConfig / findLogMessageConfig / findErrorMessageConfig.
// Implemented by internal/config's document-store-backed provider.
type ConfigProvider interface {
	WebhookEndpoint(ctx context.Context) (string, error)
	ProductMessageConfig(ctx context.Context) (*MessageConfig, error)
	LogMessageConfig(ctx context.Context) (*MessageConfig, error)
	ErrorMessageConfig(ctx context.Context) (*MessageConfig, error)
}

// Dispatcher posts notifications to a Discord-compatible incoming webhook.
// Each Notify* call returns once the POST has succeeded or used up its
// retry budget. A delivery failure is logged here and also returned to the
// caller; the scrape driver logs that error and carries on with its tick.
type Dispatcher struct {
	session *scraper.Session
	config  ConfigProvider
	logger  utils.Logger
}

// NewDispatcher returns a ready Dispatcher.
func NewDispatcher(session *scraper.Session, config ConfigProvider, logger utils.Logger) *Dispatcher {
	if logger == nil {
		logger = utils.NewLogger()
	}
	return &Dispatcher{
		session: session,
		config:  config,
		logger:  utils.NewComponentLogger(logger, "notify-dispatcher"),
	}
}

// NotifyProductChanged sends a restock/update notification for product.
func (d *Dispatcher) NotifyProductChanged(ctx context.Context, shop *types.Shop, product *types.Product) error {
	cfg, err := d.config.ProductMessageConfig(ctx)
	if err != nil {
		return err
	}
	return d.send(ctx, cfg, productPayload(cfg.Username, shop, product))
}

// NotifyLog sends a plain informational message, prefixed with 🔹.
func (d *Dispatcher) NotifyLog(ctx context.Context, msg string) error {
	cfg, err := d.config.LogMessageConfig(ctx)
	if err != nil {
		return err
	}
	return d.send(ctx, cfg, logPayload(cfg.Username, msg))
}

// NotifyError sends a plain error message, prefixed with ❗️.
func (d *Dispatcher) NotifyError(ctx context.Context, msg string) error {
	cfg, err := d.config.ErrorMessageConfig(ctx)
	if err != nil {
		return err
	}
	return d.send(ctx, cfg, errorPayload(cfg.Username, msg))
}

func (d *Dispatcher) send(ctx context.Context, cfg *MessageConfig, payload Payload) error {
	apiEndpoint, err := d.config.WebhookEndpoint(ctx)
	if err != nil {
		return err
	}
	endpoint := strings.Join([]string{strings.TrimRight(apiEndpoint, "/"), cfg.User, cfg.Token}, "/")

	req := scraper.NewRequest(d.session)
	req.Configure(cfg.Timeout, cfg.MaxRetries, cfg.UseRandomProxy)

	resp := req.Post(ctx, scraper.Params{
		URL:     endpoint,
		Data:    payload,
		Headers: map[string]string{"Content-Type": "application/json"},
	})
	if resp.Err != nil {
		d.logger.Warnf("webhook delivery failed: %v", resp.Err)
		return fmt.Errorf("delivering webhook message: %w", resp.Err)
	}
	return nil
}
