package ratesapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Dan9191/fx-ledger/internal/config"
	"github.com/Dan9191/fx-ledger/internal/currency"
	"github.com/Dan9191/fx-ledger/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Client fetches daily rate tables from a JSON endpoint templated by date,
// e.g. https://api.frankfurter.app/{date}
type Client struct {
	urlTemplate string
	client      *http.Client
	log         *logrus.Logger
}

// NewClient initializes a new JSON rates client
func NewClient(cfg *config.Config, log *logrus.Logger) *Client {
	return &Client{
		urlTemplate: cfg.RatesURL,
		client: &http.Client{
			Timeout: cfg.RatesTimeout,
		},
		log: log,
	}
}

// buildURL substitutes the calendar date into the URL template
func (c *Client) buildURL(date time.Time) string {
	return strings.ReplaceAll(c.urlTemplate, "{date}", utils.FormatDate(date))
}

// sendRequest performs the GET request and returns the raw body
func (c *Client) sendRequest(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debugf("Rates JSON response: %s", string(body))
	return body, nil
}

// parseResponse extracts the rates object from the response body
func (c *Client) parseResponse(body []byte) (currency.Table, error) {
	var payload struct {
		Rates map[string]decimal.Decimal `json:"rates"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	if payload.Rates == nil {
		return nil, fmt.Errorf("no rates field in response")
	}

	table := make(currency.Table, len(payload.Rates))
	for code, rate := range payload.Rates {
		if !rate.IsPositive() {
			return nil, fmt.Errorf("invalid rate %s for %s", rate, code)
		}
		table[strings.ToUpper(code)] = rate
	}
	return table, nil
}

// Rates retrieves the rate table for the given date
func (c *Client) Rates(ctx context.Context, date time.Time) (currency.Table, error) {
	body, err := c.sendRequest(ctx, c.buildURL(date))
	if err != nil {
		return nil, err
	}
	return c.parseResponse(body)
}
