// Package geocoder resolves formatted addresses to coordinates through a
// Nominatim-style search API.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// MaxResponseBytes caps how much of a search response is read.
const MaxResponseBytes = 1 << 20

// Place is one geocoding match.
type Place struct {
	Latitude    float64           `json:"latitude"`
	Longitude   float64           `json:"longitude"`
	DisplayName string            `json:"display_name"`
	Components  map[string]string `json:"components"`
}

// Geocoder looks up a formatted address. It returns nil, nil when nothing
// matches.
type Geocoder interface {
	Geocode(ctx context.Context, formatted string) (*Place, error)
}

// Config configures a Client.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client calls the search endpoint once per lookup without retrying.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient returns a Client for cfg.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// searchResult is one element of the search response.
type searchResult struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	DisplayName string            `json:"display_name"`
	Address     map[string]string `json:"address"`
}

func (c *Client) Geocode(ctx context.Context, formatted string) (*Place, error) {
	if strings.TrimSpace(formatted) == "" {
		return nil, nil
	}

	params := url.Values{}
	params.Set("q", formatted)
	params.Set("format", "jsonv2")
	params.Set("addressdetails", "1")
	params.Set("limit", "1")
	requestURL := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call geocoder: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseBytes {
		return nil, fmt.Errorf("geocoder response exceeds %d bytes", MaxResponseBytes)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d: %s", resp.StatusCode, string(body))
	}

	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(results) == 0 {
		return nil, nil
	}

	first := results[0]
	lat, err := strconv.ParseFloat(first.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse latitude %q: %w", first.Lat, err)
	}
	lng, err := strconv.ParseFloat(first.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("failed to parse longitude %q: %w", first.Lon, err)
	}

	components := first.Address
	if components == nil {
		components = map[string]string{}
	}
	return &Place{Latitude: lat, Longitude: lng, DisplayName: first.DisplayName, Components: components}, nil
}
