package razorpay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	rzp "github.com/razorpay/razorpay-go"
)

// Gateway is the slice of the payment gateway the settlement pipeline uses.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (orderID string, err error)
	CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) error
	CreateRefund(ctx context.Context, paymentID string, amount int64) (refundID string, err error)
	CreatePayout(ctx context.Context, req PayoutRequest) (payoutID string, err error)
}

// PayoutRequest carries everything a RazorpayX payout needs.
type PayoutRequest struct {
	AccountNumber string `json:"account_number"`
	FundAccountID string `json:"fund_account_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Mode          string `json:"mode"`
	Purpose       string `json:"purpose"`
	ReferenceID   string `json:"reference_id"`
	Narration     string `json:"narration,omitempty"`
}

// Client wraps the Razorpay SDK. Payouts go through the REST API directly
// because the SDK does not cover RazorpayX.
type Client struct {
	sdk     *rzp.Client
	keyID   string
	secret  string
	baseURL string
	httpc   *http.Client
}

func NewClient(keyID, secret string) *Client {
	return &Client{
		sdk:     rzp.NewClient(keyID, secret),
		keyID:   keyID,
		secret:  secret,
		baseURL: "https://api.razorpay.com/v1",
		httpc:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) CreateOrder(ctx context.Context, amount int64, currency, receipt string, notes map[string]string) (string, error) {
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		n := map[string]interface{}{}
		for k, v := range notes {
			n[k] = v
		}
		data["notes"] = n
	}
	order, err := c.sdk.Order.Create(data, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay create order: %w", err)
	}
	id, ok := order["id"].(string)
	if !ok || id == "" {
		return "", errors.New("razorpay create order: no id in response")
	}
	return id, nil
}

func (c *Client) CapturePayment(ctx context.Context, paymentID string, amount int64, currency string) error {
	data := map[string]interface{}{"currency": currency}
	if _, err := c.sdk.Payment.Capture(paymentID, int(amount), data, nil); err != nil {
		return fmt.Errorf("razorpay capture %s: %w", paymentID, err)
	}
	return nil
}

func (c *Client) CreateRefund(ctx context.Context, paymentID string, amount int64) (string, error) {
	ref, err := c.sdk.Payment.Refund(paymentID, int(amount), nil, nil)
	if err != nil {
		return "", fmt.Errorf("razorpay refund %s: %w", paymentID, err)
	}
	id, ok := ref["id"].(string)
	if !ok || id == "" {
		return "", errors.New("razorpay refund: no id in response")
	}
	return id, nil
}

// CreatePayout hits the RazorpayX REST endpoint with basic auth.
func (c *Client) CreatePayout(ctx context.Context, preq PayoutRequest) (string, error) {
	if c.secret == "" {
		return "", errors.New("missing Razorpay secret for payout call")
	}
	body, err := json.Marshal(preq)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	// payout idempotency rides on the reference id
	req.Header.Set("X-Payout-Idempotency", preq.ReferenceID)
	req.SetBasicAuth(c.keyID, c.secret)

	res, err := c.httpc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("razorpay create payout failed: %s (%d)", string(raw), res.StatusCode)
	}

	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode payout response: %w", err)
	}
	if out.ID == "" {
		return "", errors.New("razorpay create payout: no id in response")
	}
	return out.ID, nil
}
