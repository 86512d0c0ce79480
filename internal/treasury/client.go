package treasury

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the treasury service that signs and submits on-chain USDC
// transfers from the payout wallet.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new treasury client
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type transferRequest struct {
	Recipient string `json:"recipient"`
	// Amount is in minor units of the pegged currency.
	Amount int64 `json:"amount"`
}

type transferResponse struct {
	Signature string `json:"signature"`
	Error     string `json:"error"`
}

// Send submits a transfer and returns the confirmed transaction signature.
func (c *Client) Send(ctx context.Context, recipient string, amount int64) (string, error) {
	payload, err := json.Marshal(transferRequest{
		Recipient: recipient,
		Amount:    amount,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode transfer request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send transfer request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read transfer response: %w", err)
	}

	var result transferResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse transfer response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return "", fmt.Errorf("treasury rejected transfer: %s", result.Error)
		}
		return "", fmt.Errorf("treasury returned status %d", resp.StatusCode)
	}
	if result.Signature == "" {
		return "", fmt.Errorf("treasury returned no transaction signature")
	}

	return result.Signature, nil
}
