package wompi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ventia-app/ventia-backend/pkg/config"
)

// Transaction statuses reported by the gateway.
const (
	StatusPending  = "PENDING"
	StatusApproved = "APPROVED"
	StatusDeclined = "DECLINED"
	StatusError    = "ERROR"
	StatusVoided   = "VOIDED"
)

// IsTerminalFailure reports whether a status can never transition to
// approved anymore.
func IsTerminalFailure(status string) bool {
	switch status {
	case StatusDeclined, StatusError, StatusVoided:
		return true
	}
	return false
}

// Transaction is the gateway's view of a payment attempt.
type Transaction struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	Reference         string `json:"reference"`
	AmountInCents     int64  `json:"amount_in_cents"`
	Currency          string `json:"currency"`
	CustomerEmail     string `json:"customer_email"`
	PaymentMethodType string `json:"payment_method_type"`
	PaymentLinkID     string `json:"payment_link_id"`
	FinalizedAt       string `json:"finalized_at"`
}

// Event is the webhook payload the gateway posts on transaction updates.
type Event struct {
	Event     string    `json:"event"`
	Timestamp int64     `json:"timestamp"`
	Data      EventData `json:"data"`
}

type EventData struct {
	Transaction Transaction `json:"transaction"`
}

// EventTransactionUpdated is the only event type the reconciler processes.
const EventTransactionUpdated = "transaction.updated"

// Confirmation is the outcome of the optimistic confirmation strategy.
// Verified is false when the status was assumed rather than read from the
// gateway; assumed confirmations are reconciled later through the webhook.
type Confirmation struct {
	Status   string
	Verified bool
}

// Client talks to the Wompi REST API.
type Client struct {
	baseURL        string
	privateKey     string
	confirmTimeout time.Duration
	http           *http.Client
}

// New builds a gateway client from configuration.
func New(cfg config.WompiConfig) *Client {
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		privateKey:     cfg.PrivateKey,
		confirmTimeout: timeout,
		http:           &http.Client{Timeout: timeout},
	}
}

// GetTransaction fetches a transaction by gateway id.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	endpoint := c.baseURL + "/v1/transactions/" + transactionID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build transaction request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.privateKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.privateKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch transaction: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Data Transaction `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode transaction: %w", err)
	}
	return &payload.Data, nil
}

// ConfirmTransaction applies the optimistic confirmation policy: verify the
// transaction within the configured bound, and on timeout or transport
// failure assume the customer paid. The webhook reconciler corrects wrong
// assumptions afterwards. Callers reached through a valid payment redirect
// should treat an unverified approval as provisional.
func (c *Client) ConfirmTransaction(ctx context.Context, transactionID string) Confirmation {
	ctx, cancel := context.WithTimeout(ctx, c.confirmTimeout)
	defer cancel()

	tx, err := c.GetTransaction(ctx, transactionID)
	if err != nil {
		return Confirmation{Status: StatusApproved, Verified: false}
	}
	return Confirmation{Status: tx.Status, Verified: true}
}
