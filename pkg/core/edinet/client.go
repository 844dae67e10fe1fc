// Package edinet reads the EDINET filing index and filing bundles.
//
// Client is a thin authenticated HTTP wrapper. Repository layers the daily
// listing cache, the backward day scan used to find annual reports and the
// bundle download and extraction on top of it.
package edinet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"edinet_qa/pkg/core/metrics"
)

// DefaultBaseURL is the v2 API root.
const DefaultBaseURL = "https://api.edinet-fsa.go.jp/api/v2"

// Listing modes of documents.json.
const (
	ListProbe = 1
	ListFull  = 2
)

const dateLayout = "2006-01-02"

// Client calls the EDINET API with a subscription key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	metrics *metrics.Metrics
}

// NewClient builds a client. A nil httpClient gets a 30s timeout.
func NewClient(baseURL, apiKey string, httpClient *http.Client, m *metrics.Metrics) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    httpClient,
		metrics: m,
	}
}

// ListDocuments fetches the listing for one calendar day.
func (c *Client) ListDocuments(ctx context.Context, day time.Time, mode int) (*Listing, error) {
	date := day.Format(dateLayout)
	endpoint := fmt.Sprintf("documents.json date=%s type=%d", date, mode)

	q := url.Values{}
	q.Set("date", date)
	q.Set("type", fmt.Sprint(mode))
	body, err := c.get(ctx, "documents.json", endpoint, "/documents.json", q)
	if err != nil {
		return nil, err
	}

	var listing Listing
	if err := json.Unmarshal(body, &listing); err != nil {
		c.metrics.ObserveAPI("documents.json", "invalid_json")
		return nil, fmt.Errorf("%s invalid_json: %w", endpoint, err)
	}
	if s := string(listing.Metadata.Status); s != "" && s != "200" {
		c.metrics.ObserveAPI("documents.json", "status")
		return nil, fmt.Errorf("%s metadata status=%s %s", endpoint, s, listing.Metadata.Message)
	}
	return &listing, nil
}

// DownloadBundle fetches the XBRL archive (type=1) of one document.
func (c *Client) DownloadBundle(ctx context.Context, docID string) ([]byte, error) {
	endpoint := fmt.Sprintf("documents/%s?type=1", docID)
	q := url.Values{}
	q.Set("type", "1")
	return c.get(ctx, "documents", endpoint, "/documents/"+url.PathEscape(docID), q)
}

func (c *Client) get(ctx context.Context, label, endpoint, path string, q url.Values) ([]byte, error) {
	q.Set("Subscription-Key", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	req.Header.Set("Subscription-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPI(label, "error")
		return nil, fmt.Errorf("%s: %w", endpoint, redact(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.metrics.ObserveAPI(label, "status")
		return nil, &StatusError{Endpoint: endpoint, Status: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ObserveAPI(label, "error")
		return nil, fmt.Errorf("%s read body: %w", endpoint, err)
	}
	c.metrics.ObserveAPI(label, "ok")
	return body, nil
}

// redact drops the request URL, which carries the subscription key.
func redact(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
