package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/BarkinBalci/feature-flag-events/internal/event"
)

const (
	DefaultTimeout        = 10 * time.Second
	DefaultInitialBackoff = 200 * time.Millisecond
	DefaultMaxBackoff     = 5 * time.Second
)

// HTTPConfig configures the HTTP dispatcher. Endpoint overrides the URL
// carried by the payload when set. MaxRetries counts attempts after the
// first one, so zero sends each batch once.
type HTTPConfig struct {
	Endpoint       string
	MaxRetries     int
	Timeout        time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// HTTPDispatcher posts event batches to the collection endpoint
type HTTPDispatcher struct {
	httpClient *http.Client
	config     HTTPConfig
	log        *zap.Logger
}

// NewHTTPDispatcher creates a new HTTP dispatcher
func NewHTTPDispatcher(config HTTPConfig, log *zap.Logger) *HTTPDispatcher {
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = config.Timeout

	return &HTTPDispatcher{
		httpClient: httpClient,
		config:     config,
		log:        log,
	}
}

// Dispatch sends the batch, retrying transport errors and non-2xx responses
func (d *HTTPDispatcher) Dispatch(ctx context.Context, logEvent *event.LogEvent) error {
	body, err := json.Marshal(logEvent.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal event batch: %w", err)
	}

	url := logEvent.URL
	if d.config.Endpoint != "" {
		url = d.config.Endpoint
	}
	method := logEvent.HTTPVerb
	if method == "" {
		method = http.MethodPost
	}

	backoff := retry.NewExponential(d.config.InitialBackoff)
	backoff = retry.WithCappedDuration(d.config.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(d.config.MaxRetries), backoff)

	attempt := 0
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := d.send(ctx, method, url, logEvent.Headers, body); err != nil {
			d.log.Warn("Event batch dispatch attempt failed",
				zap.Int("attempt", attempt),
				zap.String("url", url),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to dispatch event batch: %w", err)
	}

	d.log.Debug("Event batch dispatched",
		zap.String("url", url),
		zap.Int("visitors", len(logEvent.Params.Visitors)))

	return nil
}

func (d *HTTPDispatcher) send(ctx context.Context, method, url string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			d.log.Error("Failed to close response body", zap.Error(err))
		}
	}()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	return nil
}
