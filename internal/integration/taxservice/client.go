package taxservice

import (
	"context"
	"net/http"
	"strings"

	"github.com/flexprice/billingcore/internal/config"
	"github.com/flexprice/billingcore/internal/domain/tax"
	ierr "github.com/flexprice/billingcore/internal/errors"
	"github.com/flexprice/billingcore/internal/httpclient"
	"github.com/flexprice/billingcore/internal/logger"
	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const calculatePath = "/v1/tax/calculate"

type calculateRequest struct {
	CustomerID string         `json:"customer_id"`
	Address    tax.Address    `json:"address"`
	Currency   string         `json:"currency"`
	LineItems  []tax.LineItem `json:"line_items"`
	Preview    bool           `json:"preview"`
}

type calculateResponse struct {
	Taxes []tax.Line `json:"taxes"`
}

// Client assesses taxes against an external tax service over HTTP
type Client struct {
	http    httpclient.Client
	baseURL string
	apiKey  string
	log     *logger.Logger
}

// NewAssessor returns the configured tax service, or nil when none is
// enabled. Invoices then carry a tax preview error instead of taxes.
func NewAssessor(cfg *config.Configuration, log *logger.Logger) tax.Assessor {
	if !cfg.TaxService.Enabled {
		log.Info("tax service is disabled")
		return nil
	}

	return NewClient(cfg.TaxService, httpclient.NewDefaultClient(httpclient.ClientConfig{
		Timeout:    cfg.TaxService.Timeout,
		MaxRetries: cfg.TaxService.MaxRetries,
	}, log), log)
}

func NewClient(cfg config.TaxServiceConfig, client httpclient.Client, log *logger.Logger) *Client {
	return &Client{
		http:    client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		log:     log,
	}
}

func (c *Client) Assess(
	ctx context.Context,
	customerID string,
	address tax.Address,
	currency string,
	items []tax.LineItem,
	opts tax.Options,
) ([]tax.Line, error) {
	body, err := json.Marshal(calculateRequest{
		CustomerID: customerID,
		Address:    address,
		Currency:   currency,
		LineItems:  items,
		Preview:    opts.Preview,
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encode tax request").
			Mark(ierr.ErrTaxCalculation)
	}

	headers := map[string]string{"Accept": "application/json"}
	if c.apiKey != "" {
		headers["Authorization"] = "Bearer " + c.apiKey
	}

	resp, err := c.http.Send(ctx, &httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.baseURL + calculatePath,
		Headers: headers,
		Body:    body,
	})
	if err != nil {
		c.log.Warnw("tax service request failed",
			"customer_id", customerID,
			"currency", currency,
			"error", err,
		)
		return nil, ierr.WithError(err).
			WithHint("Tax service request failed").
			WithReportableDetails(map[string]any{"customer_id": customerID}).
			Mark(ierr.ErrTaxCalculation)
	}

	var out calculateResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Tax service returned an unreadable response").
			WithReportableDetails(map[string]any{"status_code": resp.StatusCode}).
			Mark(ierr.ErrTaxCalculation)
	}

	lines := lo.Filter(out.Taxes, func(l tax.Line, _ int) bool {
		return !l.Amount.IsZero()
	})

	c.log.Debugw("assessed taxes",
		"customer_id", customerID,
		"lines", len(lines),
	)
	return lines, nil
}
