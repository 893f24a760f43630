// Package outreach implements the PR article branch: fit analysis of
// discovered articles, author profiling, personalized email drafting,
// the Notion review queue, and the Salesforce lead push for approved
// drafts. Unlike the planner agents these stages return errors: an
// article is a retryable unit of work, so failures surface to the batch
// runner's dead letter queue instead of degrading silently.
package outreach

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/planner"
)

const fitTask = `Assess whether this article is a good fit for PR outreach: is the topic adjacent to the channel's vertical, is the angle fresh enough to pitch against, and would the author plausibly cover a follow-up story?

Return a valid JSON object:
{"relevant": <bool>, "score": <0.0-1.0>, "angle": "<pitch angle>", "reasoning": "<brief>"}`

// AnalyzeFit asks the LLM whether an article is worth pitching against.
func AnalyzeFit(ctx context.Context, gen planner.Generator, article model.Article, ws model.Workspace) (model.ArticleFit, model.TokenUsage, error) {
	text, usage, err := gen.Generate(ctx, planner.GenRequest{
		Role:       "outreach fit analyst",
		Task:       fitTask,
		Context:    articleContext(article),
		StyleHints: workspaceHints(ws),
		MaxTokens:  512,
	})
	if err != nil {
		return model.ArticleFit{}, usage, eris.Wrap(err, "outreach: analyze fit")
	}

	var raw struct {
		Relevant  bool    `json:"relevant"`
		Score     float64 `json:"score"`
		Angle     string  `json:"angle"`
		Reasoning string  `json:"reasoning"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		return model.ArticleFit{}, usage, eris.New("outreach: unparseable fit response")
	}

	return model.ArticleFit{
		Relevant:  raw.Relevant,
		Score:     clampScore(raw.Score),
		Angle:     raw.Angle,
		Reasoning: raw.Reasoning,
	}, usage, nil
}

// articleContext serializes an article for the agent prompt.
func articleContext(a model.Article) string {
	ctx := fmt.Sprintf("Title: %s\nURL: %s", a.Title, a.URL)
	if a.Author != "" {
		ctx += "\nAuthor: " + a.Author
	}
	if a.Publication != "" {
		ctx += "\nPublication: " + a.Publication
	}
	if a.Summary != "" {
		ctx += "\nSummary: " + a.Summary
	}
	return ctx
}

// workspaceHints mirrors the planner's style-hint map for outreach prompts.
func workspaceHints(ws model.Workspace) map[string]string {
	return map[string]string{
		"brand_tone": ws.BrandTone,
		"language":   ws.TargetLanguage,
		"vertical":   ws.VerticalID,
	}
}

func clampScore(s float64) float64 {
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}
