package payout

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// TransferRequest asks the gateway to move funds to an ambassador.
type TransferRequest struct {
	Reference      string            `json:"reference"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	Method         string            `json:"method"`
	Beneficiary    map[string]string `json:"beneficiary"`
	Narration      string            `json:"narration,omitempty"`
	IdempotencyKey string            `json:"-"`
}

// TransferResult is the gateway's acknowledgement.
type TransferResult struct {
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
}

// Gateway moves money for approved payouts.
type Gateway interface {
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
}

// HTTPGateway calls a REST payout provider.
type HTTPGateway struct {
	client *resty.Client
}

// NewHTTPGateway configures a resty client with base URL, bearer key and timeout. Retries are disabled.
func NewHTTPGateway(baseURL, apiKey string, timeout time.Duration) (*HTTPGateway, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("payout gateway url required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}
	return &HTTPGateway{client: client}, nil
}

// Transfer posts to /transfers with the payout id as idempotency key.
func (g *HTTPGateway) Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error) {
	var result TransferResult
	var apiErr struct {
		Message string `json:"message"`
	}
	key := req.IdempotencyKey
	if key == "" {
		key = req.Reference
	}
	resp, err := g.client.R().
		SetContext(ctx).
		SetHeader("Idempotency-Key", key).
		SetBody(req).
		SetResult(&result).
		SetError(&apiErr).
		Post("/transfers")
	if err != nil {
		return nil, fmt.Errorf("payout transfer: %w", err)
	}
	if resp.StatusCode() != http.StatusOK && resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusAccepted {
		msg := apiErr.Message
		if msg == "" {
			msg = resp.Status()
		}
		return nil, fmt.Errorf("payout transfer rejected (%d): %s", resp.StatusCode(), msg)
	}
	if result.TransferID == "" {
		return nil, fmt.Errorf("payout transfer: empty transfer id")
	}
	return &result, nil
}

// ManualGateway records payouts as settled out of band.
type ManualGateway struct{}

// Transfer returns a manual reference without contacting any provider.
func (ManualGateway) Transfer(_ context.Context, req TransferRequest) (*TransferResult, error) {
	return &TransferResult{TransferID: "manual-" + req.Reference, Status: "manual"}, nil
}
