// Package docgen talks to the internal contract-document generator. The
// lifecycle transition never depends on it: a failed generation is logged by
// the caller and retried out of band.
package docgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/you/eventfoundry/services/bidding-service/internal/domain"
)

type Generator interface {
	Generate(ctx context.Context, c domain.Contract) (documentURL string, err error)
}

type HTTPGenerator struct {
	baseURL string
	hc      *http.Client
}

func NewHTTPGenerator(baseURL string) *HTTPGenerator {
	return &HTTPGenerator{baseURL: baseURL, hc: &http.Client{Timeout: 15 * time.Second}}
}

func (g *HTTPGenerator) Generate(ctx context.Context, c domain.Contract) (string, error) {
	body, err := json.Marshal(map[string]any{
		"contract_id":   c.ID,
		"event_id":      c.EventID,
		"bid_id":        c.BidID,
		"vendor_id":     c.VendorID,
		"project_value": c.ProjectValue,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/contracts/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := g.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, _ := io.ReadAll(res.Body)
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return "", fmt.Errorf("docgen returned %d: %s", res.StatusCode, string(raw))
	}
	var out struct {
		DocumentURL string `json:"document_url"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("parse docgen response: %w", err)
	}
	return out.DocumentURL, nil
}

// Disabled is used when no generator endpoint is configured.
type Disabled struct{}

func (Disabled) Generate(context.Context, domain.Contract) (string, error) { return "", nil }
