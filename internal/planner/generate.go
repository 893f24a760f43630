package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/resilience"
	"github.com/sells-group/studio-cli/pkg/anthropic"
)

// GeneratorConfig tunes the Claude-backed generator.
type GeneratorConfig struct {
	Model string

	// CallTimeout bounds each generation round trip. A timeout is treated
	// like any other transport failure: the caller's deterministic
	// fallback takes over. Default: 60s.
	CallTimeout time.Duration

	// Retry controls transient-error retries inside a single Generate.
	Retry resilience.RetryConfig
}

// claudeGenerator implements Generator on the Anthropic client.
type claudeGenerator struct {
	client anthropic.Client
	cfg    GeneratorConfig
}

// NewClaudeGenerator wraps an Anthropic client as a planner Generator.
func NewClaudeGenerator(client anthropic.Client, cfg GeneratorConfig) Generator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return &claudeGenerator{client: client, cfg: cfg}
}

func (g *claudeGenerator) Generate(ctx context.Context, req GenRequest) (string, model.TokenUsage, error) {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.CallTimeout)
	defer cancel()

	system := anthropic.BuildCachedSystemBlocks(systemText(req))

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}

	msgReq := anthropic.MessageRequest{
		Model:       g.cfg.Model,
		MaxTokens:   maxTokens,
		System:      system,
		Temperature: req.Temperature,
		Messages: []anthropic.Message{
			{Role: "user", Content: userText(req)},
		},
	}

	retryCfg := g.cfg.Retry
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", req.Role)

	resp, err := resilience.DoVal(callCtx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return g.client.CreateMessage(ctx, msgReq)
	})
	if err != nil {
		return "", model.TokenUsage{}, err
	}

	usage := model.TokenUsage{
		InputTokens:         int(resp.Usage.InputTokens),
		OutputTokens:        int(resp.Usage.OutputTokens),
		CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
		CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
	}
	return extractText(resp), usage, nil
}

// systemText renders the role and style hints as the cached system prompt;
// the per-call task and context travel in the user message. Hints are
// sorted so identical requests produce identical cacheable prompts.
func systemText(req GenRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are the %s in a video planning pipeline. Respond with the requested JSON object only.", req.Role)
	keys := make([]string, 0, len(req.StyleHints))
	for k := range req.StyleHints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if v := req.StyleHints[k]; v != "" {
			fmt.Fprintf(&b, "\n%s: %s", k, v)
		}
	}
	return b.String()
}

func userText(req GenRequest) string {
	if req.Context == "" {
		return req.Task
	}
	return req.Task + "\n\n" + req.Context
}

// extractText concatenates all text blocks from a response.
func extractText(resp *anthropic.MessageResponse) string {
	var parts []string
	for _, block := range resp.Content {
		if block.Text != "" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}
