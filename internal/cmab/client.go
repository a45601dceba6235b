package cmab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	DefaultPredictionEndpoint = "https://prediction.cmab.optimizely.com/predict/%s"
	DefaultMaxRetries         = 1
	DefaultInitialBackoff     = 100 * time.Millisecond
	DefaultMaxBackoff         = 10 * time.Second
	DefaultTimeout            = 10 * time.Second
)

// ClientConfig configures the prediction endpoint client. Zero values fall
// back to the defaults, except MaxRetries where a negative value disables
// retries.
type ClientConfig struct {
	PredictionEndpoint string
	MaxRetries         int
	InitialBackoff     time.Duration
	MaxBackoff         time.Duration
	Timeout            time.Duration
}

// HTTPClient calls the bandit prediction endpoint
type HTTPClient struct {
	httpClient *http.Client
	config     ClientConfig
	log        *zap.Logger
}

type predictionAttribute struct {
	ID    string `json:"id"`
	Value any    `json:"value"`
	Type  string `json:"type"`
}

type predictionInstance struct {
	VisitorID    string                `json:"visitorId"`
	ExperimentID string                `json:"experimentId"`
	Attributes   []predictionAttribute `json:"attributes"`
	CmabUUID     string                `json:"cmabUUID"`
}

type predictionRequest struct {
	Instances []predictionInstance `json:"instances"`
}

type predictionResponse struct {
	Predictions []struct {
		VariationID string `json:"variation_id"`
	} `json:"predictions"`
}

// NewHTTPClient creates a new prediction client
func NewHTTPClient(config ClientConfig, log *zap.Logger) *HTTPClient {
	if config.PredictionEndpoint == "" {
		config.PredictionEndpoint = DefaultPredictionEndpoint
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = DefaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = DefaultMaxBackoff
	}
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}

	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = config.Timeout

	return &HTTPClient{
		httpClient: httpClient,
		config:     config,
		log:        log,
	}
}

// FetchDecision returns the variation id chosen for the user
func (c *HTTPClient) FetchDecision(ctx context.Context, ruleID, userID string, attributes map[string]any, cmabUUID string) (string, error) {
	body, err := json.Marshal(predictionRequest{
		Instances: []predictionInstance{{
			VisitorID:    userID,
			ExperimentID: ruleID,
			Attributes:   toPredictionAttributes(attributes),
			CmabUUID:     cmabUUID,
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal prediction request: %w", err)
	}

	url := fmt.Sprintf(c.config.PredictionEndpoint, ruleID)

	backoff := retry.NewExponential(c.config.InitialBackoff)
	backoff = retry.WithCappedDuration(c.config.MaxBackoff, backoff)
	backoff = retry.WithMaxRetries(uint64(c.config.MaxRetries), backoff)

	var variationID string
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		id, err := c.fetch(ctx, url, body)
		if err != nil {
			if errors.Is(err, ErrInvalidResponse) {
				return err
			}
			c.log.Debug("Retrying CMAB decision fetch",
				zap.String("rule_id", ruleID),
				zap.Error(err))
			return retry.RetryableError(err)
		}
		variationID = id
		return nil
	})
	if err != nil {
		return "", err
	}

	return variationID, nil
}

func (c *HTTPClient) fetch(ctx context.Context, url string, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Error("Failed to close prediction response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("%w with status: %d", ErrFetchFailed, resp.StatusCode)
	}

	var parsed predictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if len(parsed.Predictions) == 0 || parsed.Predictions[0].VariationID == "" {
		return "", ErrInvalidResponse
	}

	return parsed.Predictions[0].VariationID, nil
}

func toPredictionAttributes(attributes map[string]any) []predictionAttribute {
	keys := make([]string, 0, len(attributes))
	for k := range attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	list := make([]predictionAttribute, 0, len(keys))
	for _, k := range keys {
		list = append(list, predictionAttribute{ID: k, Value: attributes[k], Type: "custom_attribute"})
	}
	return list
}
