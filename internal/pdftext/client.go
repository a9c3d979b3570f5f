// Package pdftext calls the external PDF extraction service that turns
// uploaded bytes into page-numbered plain text.
package pdftext

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/studymill/studymill/internal/extract"
)

const defaultTimeout = 120 * time.Second

// Client is an HTTP client for the extraction service.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client for the extraction service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// NewClientWithHTTPClient allows injecting a custom http.Client (for testing).
func NewClientWithHTTPClient(baseURL string, httpClient *http.Client) *Client {
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

type extractResponse struct {
	Pages []struct {
		Number int    `json:"number"`
		Text   string `json:"text"`
	} `json:"pages"`
}

// ExtractPages posts the raw PDF and returns its pages in order. Pages the
// service could not read come back with empty text rather than being
// dropped, so page numbering stays aligned with the source file.
func (c *Client) ExtractPages(ctx context.Context, content []byte) ([]extract.Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/extract", bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded extractResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode extraction response: %w", err)
	}

	pages := make([]extract.Page, len(decoded.Pages))
	for i, p := range decoded.Pages {
		pages[i] = extract.Page{Number: p.Number, Text: p.Text}
	}
	return pages, nil
}
