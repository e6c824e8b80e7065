package fhir

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
)

const (
	DefaultBaseURL = "https://hapi.fhir.org/baseR4"
	defaultTimeout = 30 * time.Second
	maxBundleBytes = 20 << 20
)

var (
	ErrFetchFailed = errors.New("failed to fetch FHIR data")
	ErrNoData      = errors.New("no FHIR data found")
)

// Client reads patient records from a FHIR R4 server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Everything fetches Patient/{id}/$everything.
func (c *Client) Everything(ctx context.Context, fhirID string) (*Bundle, error) {
	fhirID = strings.TrimSpace(fhirID)
	if fhirID == "" {
		return nil, fmt.Errorf("FHIR ID is required")
	}

	endpoint := fmt.Sprintf("%s/Patient/%s/$everything", c.baseURL, url.PathEscape(fhirID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d", ErrFetchFailed, resp.StatusCode)
	}

	var bundle Bundle
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBundleBytes)).Decode(&bundle); err != nil {
		return nil, fmt.Errorf("%w: decode bundle: %v", ErrFetchFailed, err)
	}
	if len(bundle.Entry) == 0 {
		return nil, ErrNoData
	}
	return &bundle, nil
}
