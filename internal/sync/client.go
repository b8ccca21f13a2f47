package sync

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/averta/stocksync/internal/catalog/domain"
	"github.com/averta/stocksync/pkg/logger"
)

// ClientConfig configures the live-source client.
type ClientConfig struct {
	Endpoint string
	Company  string
	Location string
	Timeout  time.Duration
}

// Client queries the external accounting system over its HTTP+XML protocol.
// Request variants are tried in order against the same endpoint; the first
// response without an embedded error that yields at least one item wins.
type Client struct {
	httpClient *http.Client
	endpoint   string
	company    string
	location   string
	limiter    *rate.Limiter
	variants   []RequestVariant
}

// NewClient creates a new live-source client
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		endpoint:   cfg.Endpoint,
		company:    cfg.Company,
		location:   cfg.Location,
		// The external system is a desktop-grade server; keep it gentle.
		limiter:  rate.NewLimiter(rate.Limit(1), 3),
		variants: DefaultVariants(),
	}
}

// FetchOutcome is one successful fetch.
type FetchOutcome struct {
	Variant string
	Fetched int
	Invalid int
	Items   []domain.RawItem
}

// FetchStockItems runs the variant chain. A variant's failure is non-fatal
// and moves to the next; exhausting the list returns ErrSourceUnavailable.
func (c *Client) FetchStockItems(ctx context.Context) (*FetchOutcome, error) {
	var lastErr error

	for _, variant := range c.variants {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter error: %w", err)
		}

		outcome, err := c.tryVariant(ctx, variant)
		if err != nil {
			logger.Debug(ctx).
				Str("variant", variant.Name).
				Err(err).
				Msg("Request variant failed, trying next")
			lastErr = err
			continue
		}
		return outcome, nil
	}

	return nil, fmt.Errorf("%w: all %d request variants failed: %v",
		domain.ErrSourceUnavailable, len(c.variants), lastErr)
}

func (c *Client) tryVariant(ctx context.Context, variant RequestVariant) (*FetchOutcome, error) {
	body, err := variant.Envelope(c.company, c.location)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	parsed, err := parseResponse(payload)
	if err != nil {
		return nil, err
	}
	if parsed.ErrorMsg != "" {
		return nil, fmt.Errorf("source reported error: %s", parsed.ErrorMsg)
	}
	if len(parsed.Items) == 0 {
		return nil, fmt.Errorf("variant yielded no items")
	}

	return &FetchOutcome{
		Variant: variant.Name,
		Fetched: parsed.Fetched,
		Invalid: parsed.Invalid,
		Items:   parsed.Items,
	}, nil
}
