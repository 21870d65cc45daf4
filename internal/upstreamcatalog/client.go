// Package upstreamcatalog fetches the external drug/disease catalog
// consulted during ingestion sync (§4.12). Pages are returned as raw
// fields; cleaning (HTML strip, entity decode, whitespace collapse) is
// the caller's responsibility via Clean.
package upstreamcatalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// RawDrug is one upstream catalog record before cleaning.
type RawDrug struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"entp_name"`
	Efficacy     string `json:"efcy_qesitm"`
	UseMethod    string `json:"use_method_qesitm"`
	Warnings     string `json:"atpn_warn_qesitm"`
	CautionInfo  string `json:"atpn_qesitm"`
	Interactions string `json:"intrc_qesitm"`
	SideEffects  string `json:"se_qesitm"`
	Storage      string `json:"deposit_method_qesitm"`
}

// Client fetches paginated drug records from the upstream catalog.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client against the given upstream catalog base URL.
func NewClient(baseURL string) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

type pageResponse struct {
	Items []RawDrug `json:"items"`
	More  bool      `json:"has_more"`
}

// FetchPages retrieves up to maxPages of drug records, stopping early
// when the upstream reports no further pages.
func (c *Client) FetchPages(ctx context.Context, maxPages int) ([]RawDrug, error) {
	if maxPages <= 0 {
		maxPages = 1
	}
	var all []RawDrug
	for page := 1; page <= maxPages; page++ {
		url := fmt.Sprintf("%s?page=%d", c.baseURL, page)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return all, fmt.Errorf("upstreamcatalog: build request: %w", err)
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return all, fmt.Errorf("upstreamcatalog: fetch page %d: %w", page, err)
		}
		var pr pageResponse
		decErr := json.NewDecoder(resp.Body).Decode(&pr)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return all, fmt.Errorf("upstreamcatalog: page %d: status %d", page, resp.StatusCode)
		}
		if decErr != nil {
			return all, fmt.Errorf("upstreamcatalog: decode page %d: %w", page, decErr)
		}
		all = append(all, pr.Items...)
		if !pr.More {
			break
		}
	}
	return all, nil
}

var (
	htmlTagRe   = regexp.MustCompile(`<[^>]*>`)
	whitespaceR = regexp.MustCompile(`\s+`)
)

// Clean strips HTML tags, decodes entities, and collapses whitespace —
// the canonical-text preparation every upstream field goes through
// before it is stored or embedded.
func Clean(raw string) string {
	stripped := htmlTagRe.ReplaceAllString(raw, " ")
	decoded := html.UnescapeString(stripped)
	collapsed := whitespaceR.ReplaceAllString(decoded, " ")
	return strings.TrimSpace(collapsed)
}
