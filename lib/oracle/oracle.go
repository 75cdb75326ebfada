// Package oracle talks to the on-chain settlement oracle: the authoritative
// source for an invoice's settlement amount (principal plus accrued
// interest/penalty). The oracle may be down; callers fall back to a locally
// accrued figure and must log that fallback as degraded.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sangini/invoicehub/lib/money"
)

type Client interface {
	// SettlementAmount returns the authoritative settlement amount for the
	// given invoice alias.
	SettlementAmount(ctx context.Context, invoiceNum string) (money.Money, error)
}

type settlementResponse struct {
	InvoiceNum       string      `json:"invoice_num"`
	SettlementAmount money.Money `json:"settlement_amount"`
}

type HTTPClient struct {
	baseUrl string
	client  *http.Client
}

func NewHTTPClient(baseUrl string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseUrl: baseUrl,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) SettlementAmount(ctx context.Context, invoiceNum string) (money.Money, error) {
	endpoint := fmt.Sprintf("%s/v1/settlements/%s", c.baseUrl, url.PathEscape(invoiceNum))

	var result settlementResponse
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			return backoff.Permanent(fmt.Errorf("oracle: no settlement for %s", invoiceNum))
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("oracle: unexpected status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(&result)
	}

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 2), ctx))
	if err != nil {
		return money.Zero(), err
	}
	return result.SettlementAmount, nil
}
