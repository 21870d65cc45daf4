// Package llmanswer implements the injectable answer-generation
// collaborator (§6, "the answer-LLM call"): a single GenerateAnswer
// call, backed by a pluggable provider (Anthropic, OpenAI, or Google),
// that turns a query plus assembled retrieval context into a Korean,
// citation-grounded answer following the prompt contract in §6.
package llmanswer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"retrievalcore/internal/apperrors"
)

const systemPrompt = `당신은 의약품 정보를 안내하는 도우미입니다. 다음 규칙을 반드시 지키세요:
1. 오직 제공된 참고 정보 안에서만 답변하세요. 참고 정보에 없는 내용은 추측하지 마세요.
2. 먼저 관련 질환을 언급한 뒤, 관련 의약품을 설명하세요.
3. 각 의약품의 효능, 용법, 주의사항을 포함하세요.
4. 증상이 심각해 보이면 전문의 상담을 권하세요.
5. 진단하거나 처방하지 마세요.
6. 답변 마지막에는 항상 다음 문구를 포함하세요: "이 정보는 참고용이며 전문적인 의료 진단을 대체할 수 없습니다. 증상이 심각한 경우 반드시 전문의와 상담하세요."`

// backend is the narrow per-provider capability this package adapts.
type backend interface {
	complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Client implements retrieve.LLMAnswerer over a configured backend.
type Client struct {
	backend backend
	timeout time.Duration
}

// Config mirrors config.LLMConfig without importing it, keeping this
// package decoupled from the application config package.
type Config struct {
	Provider  string
	APIKey    string
	Model     string
	BaseURL   string
	TimeoutMS int
}

// New builds a Client for the given provider ("anthropic", "openai",
// or "google"). An unknown provider is a FatalConfigError per §7 —
// the process should fail to start rather than silently degrade.
func New(cfg Config, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	timeout := time.Duration(cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 60 * time.Second // §6 default LLM timeout
	}

	var b backend
	var err error
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "anthropic":
		b, err = newAnthropicBackend(cfg, httpClient)
	case "openai":
		b, err = newOpenAIBackend(cfg, httpClient)
	case "google", "gemini":
		b, err = newGoogleBackend(cfg, httpClient)
	default:
		return nil, apperrors.NewFatalConfigError(fmt.Sprintf("llmanswer: unknown provider %q", cfg.Provider), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("llmanswer: init %s backend: %w", cfg.Provider, err)
	}
	return &Client{backend: b, timeout: timeout}, nil
}

// GenerateAnswer implements retrieve.LLMAnswerer. assembledContext is
// already-formatted retrieval context (disease/drug/graph sections);
// this method only wraps it in the fixed user-prompt template.
func (c *Client) GenerateAnswer(ctx context.Context, query, assembledContext string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	userPrompt := fmt.Sprintf("사용자 질문: %s\n\n참고 정보:\n%s\n\n위 정보를 바탕으로 답변해 주세요.", query, assembledContext)
	answer, err := c.backend.complete(ctx, systemPrompt, userPrompt)
	if err != nil {
		return "", fmt.Errorf("llmanswer: generate: %w", err)
	}
	return answer, nil
}
