// Package reranker calls an external cross-encoder relevance model over
// (query, candidate-text) pairs and reorders candidates by the scores it
// returns. Reranking is a soft dependency: a disabled client, an empty
// candidate list, or any call failure all degrade to "truncate to top_n
// in incoming order" rather than propagating an error to the pipeline.
package reranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"retrievalcore/internal/config"
	logpkg "retrievalcore/internal/logging"
)

// Candidate is one item eligible for reranking.
type Candidate struct {
	ID    string
	Text  string
	Score float64 // fused score, retained on the Result for diagnostics
}

// Result is a Candidate after scoring, carrying both its new relevance
// score and its rank before reranking was applied.
type Result struct {
	Candidate
	RelevanceScore float64
	OriginalRank   int
}

type rerankReq struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	TopN      int      `json:"top_n"`
	Documents []string `json:"documents"`
}

type rerankResultWire struct {
	Index          int     `json:"index"`
	RelevanceScore float64 `json:"relevance_score"`
}

type rerankResp struct {
	Model   string             `json:"model"`
	Object  string             `json:"object"`
	Results []rerankResultWire `json:"results"`
}

// Client scores (query, document) pairs via a cross-encoder endpoint.
type Client struct {
	cfg config.RerankerConfig
}

// NewClient builds a Client from configuration. A Client with
// cfg.Enabled false always falls through to the disabled path in Rerank.
func NewClient(cfg config.RerankerConfig) *Client {
	return &Client{cfg: cfg}
}

// Rerank returns up to topN candidates ordered by descending relevance
// score. If reranking is disabled, candidates is empty, or the external
// call fails for any reason, it returns the first topN candidates
// unchanged (in incoming order) instead of propagating an error.
func (c *Client) Rerank(ctx context.Context, query string, candidates []Candidate, topN int) []Result {
	if topN <= 0 {
		topN = len(candidates)
	}
	if !c.cfg.Enabled || len(candidates) == 0 {
		return truncate(candidates, topN)
	}

	scores, err := c.score(ctx, query, candidates)
	if err != nil {
		logpkg.Log.Warnf("reranker: falling back to unreranked order: %v", err)
		return truncate(candidates, topN)
	}

	ranked := make([]Result, len(candidates))
	for i, cand := range candidates {
		ranked[i] = Result{Candidate: cand, RelevanceScore: scores[i], OriginalRank: i}
	}
	sortByRelevanceDesc(ranked)
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}

func (c *Client) score(ctx context.Context, query string, candidates []Candidate) ([]float64, error) {
	timeout := time.Duration(c.cfg.TimeoutMS) * time.Millisecond
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	docs := make([]string, len(candidates))
	for i, cand := range candidates {
		docs[i] = cand.Text
	}

	body, err := json.Marshal(rerankReq{Model: c.cfg.Model, Query: query, TopN: len(docs), Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("reranker: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(cctx, http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("reranker: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reranker unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("reranker error: %s: %s", resp.Status, string(b))
	}

	var rr rerankResp
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("reranker: decode response: %w", err)
	}

	scores := make([]float64, len(candidates))
	for _, r := range rr.Results {
		if r.Index >= 0 && r.Index < len(scores) {
			scores[r.Index] = r.RelevanceScore
		}
	}
	return scores, nil
}

func truncate(candidates []Candidate, topN int) []Result {
	if topN > len(candidates) {
		topN = len(candidates)
	}
	out := make([]Result, topN)
	for i := 0; i < topN; i++ {
		out[i] = Result{Candidate: candidates[i], RelevanceScore: 0, OriginalRank: i}
	}
	return out
}

func sortByRelevanceDesc(results []Result) {
	sort.Slice(results, func(i, j int) bool { return results[i].RelevanceScore > results[j].RelevanceScore })
}
