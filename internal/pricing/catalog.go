package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"linkmart/pkg/domain"
)

// CatalogClient calls the offering catalog's price endpoint over HTTP.
// Failures are logged and reported as a zero quote: pricing degradation must
// never abort the transaction that asked for the price.
type CatalogClient struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func NewCatalogClient(baseURL string, logger *slog.Logger) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type priceRequest struct {
	WebsiteID  string `json:"websiteId,omitempty"`
	Domain     string `json:"domain"`
	Quantity   int    `json:"quantity"`
	ClientType string `json:"clientType,omitempty"`
	Urgency    string `json:"urgency,omitempty"`
}

func (c *CatalogClient) GetWebsitePrice(ctx context.Context, websiteID domain.WebsiteID, domainName string, opts Options) (Quote, error) {
	if c.baseURL == "" {
		return Quote{}, nil
	}

	reqBody := priceRequest{
		Domain:     domainName,
		Quantity:   opts.Quantity,
		ClientType: opts.ClientType,
		Urgency:    opts.Urgency,
	}
	if !websiteID.IsNil() {
		reqBody.WebsiteID = websiteID.String()
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Quote{}, fmt.Errorf("marshal price request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/websites/price", bytes.NewReader(payload))
	if err != nil {
		return Quote{}, fmt.Errorf("build price request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WarnContext(ctx, "pricing catalog unreachable, using zero quote",
			"domain", domainName,
			"error", err,
		)
		return Quote{}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WarnContext(ctx, "pricing catalog returned non-200, using zero quote",
			"domain", domainName,
			"status", resp.StatusCode,
		)
		return Quote{}, nil
	}

	var quote Quote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		c.logger.WarnContext(ctx, "pricing catalog response malformed, using zero quote",
			"domain", domainName,
			"error", err,
		)
		return Quote{}, nil
	}
	return quote, nil
}
