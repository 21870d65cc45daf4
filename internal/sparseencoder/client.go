// Package sparseencoder calls an external SPLADE-style lexical-weight
// model: given text, it returns a sparse map of term -> weight. It
// mirrors internal/embedding's HTTP client shape but degrades by
// latching into a disabled state on first failure rather than
// returning an error to every caller thereafter — sparse scoring is an
// optional leg of hybrid fusion, never a hard dependency.
package sparseencoder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"retrievalcore/internal/config"
)

type encodeReq struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type encodeResp struct {
	Weights map[string]float64 `json:"weights"`
}

// Client encodes text into sparse term-weight vectors.
type Client struct {
	cfg      config.SparseEncoderConfig
	disabled atomic.Bool
}

// NewClient builds a Client from configuration. If cfg.Enabled is
// false the client starts in the disabled state and Encode always
// returns (nil, false, nil) without making a network call.
func NewClient(cfg config.SparseEncoderConfig) *Client {
	c := &Client{cfg: cfg}
	if !cfg.Enabled {
		c.disabled.Store(true)
	}
	return c
}

// Encode returns the sparse weight map for text. The second return
// value is false when sparse encoding is disabled or has latched off
// after a prior failure — callers should treat that as "no sparse
// signal for this query", not as an error.
func (c *Client) Encode(ctx context.Context, text string) (map[string]float64, bool, error) {
	if c.disabled.Load() {
		return nil, false, nil
	}

	timeout := time.Duration(c.cfg.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, _ := json.Marshal(encodeReq{Model: c.cfg.Model, Input: text})
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		c.disabled.Store(true)
		return nil, false, fmt.Errorf("sparse encoder: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.disabled.Store(true)
		return nil, false, fmt.Errorf("sparse encoder unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(resp.Body)
		c.disabled.Store(true)
		return nil, false, fmt.Errorf("sparse encoder error: %s: %s", resp.Status, string(b))
	}

	var er encodeResp
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		c.disabled.Store(true)
		return nil, false, fmt.Errorf("sparse encoder: decode response: %w", err)
	}
	return er.Weights, true, nil
}

// Disabled reports whether the client will skip network calls.
func (c *Client) Disabled() bool { return c.disabled.Load() }

// MaxScore returns the configured normalization ceiling for this
// encoder's raw scores (SPLADE_MAX_SCORE).
func (c *Client) MaxScore() float64 { return c.cfg.MaxScore }
