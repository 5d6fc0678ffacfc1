package cbr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Dan9191/fx-ledger/internal/config"
	"github.com/Dan9191/fx-ledger/internal/currency"
	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/charmap"
)

// BaseCurrency is the currency CBR quotes against
const BaseCurrency = "RUB"

// CBRClient fetches daily exchange rates from the Central Bank of Russia
type CBRClient struct {
	url    string
	client *http.Client
	log    *logrus.Logger
}

// NewCBRClient initializes a new CBR client
func NewCBRClient(cfg *config.Config, log *logrus.Logger) *CBRClient {
	return &CBRClient{
		url: cfg.CBRURL,
		client: &http.Client{
			Timeout: cfg.RatesTimeout,
		},
		log: log,
	}
}

// buildURL adds the date_req parameter (DD/MM/YYYY)
func (c *CBRClient) buildURL(date time.Time) (string, error) {
	u, err := url.Parse(c.url)
	if err != nil {
		return "", fmt.Errorf("invalid CBR url: %w", err)
	}
	q := u.Query()
	q.Set("date_req", date.Format("02/01/2006"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// sendRequest sends the daily rates request to CBR
func (c *CBRClient) sendRequest(ctx context.Context, reqURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

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

	// Log the raw XML response for debugging
	c.log.Debugf("CBR XML response: %s", string(body))

	return body, nil
}

// parseXMLResponse converts ValCurs/Valute entries into a rate table.
// CBR quotes Value roubles per Nominal units, so the rate per rouble is Nominal/Value.
func (c *CBRClient) parseXMLResponse(rawBody []byte) (currency.Table, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(rawBody); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}

	valutes := doc.FindElements("//ValCurs/Valute")
	if len(valutes) == 0 {
		return nil, fmt.Errorf("no currency data found in XML")
	}

	table := make(currency.Table, len(valutes)+1)
	table[BaseCurrency] = decimal.NewFromInt(1)
	for _, v := range valutes {
		code := elementText(v, "CharCode")
		if code == "" {
			return nil, fmt.Errorf("currency code not found in XML")
		}
		nominal, err := parseNumber(elementText(v, "Nominal"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse nominal for %s: %w", code, err)
		}
		value, err := parseNumber(elementText(v, "Value"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse value for %s: %w", code, err)
		}
		if !nominal.IsPositive() || !value.IsPositive() {
			return nil, fmt.Errorf("invalid quote for %s: %s/%s", code, value, nominal)
		}
		table[strings.ToUpper(code)] = nominal.Div(value)
	}

	return table, nil
}

// Rates retrieves the CBR rate table for the given date
func (c *CBRClient) Rates(ctx context.Context, date time.Time) (currency.Table, error) {
	reqURL, err := c.buildURL(date)
	if err != nil {
		return nil, err
	}
	body, err := c.sendRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}

	table, err := c.parseXMLResponse(body)
	if err != nil {
		return nil, err
	}

	c.log.Infof("Retrieved %d CBR rates for %s", len(table), date.Format("2006-01-02"))
	return table, nil
}

// charsetReader decodes the windows-1251 feed; UTF-8 documents pass through
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "", "utf-8", "utf8":
		return input, nil
	default:
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
}

func elementText(parent *etree.Element, tag string) string {
	el := parent.SelectElement(tag)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.Text())
}

// parseNumber accepts CBR's comma decimal separator
func parseNumber(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(s, ",", "."))
}
