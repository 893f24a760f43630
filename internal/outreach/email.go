package outreach

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/planner"
)

const emailTask = `Write a short personalized outreach email pitching the given angle to this author. Reference their article specifically, keep it under 150 words, and end with a concrete ask. No placeholders.

Return a valid JSON object:
{"subject": "<subject line>", "body": "<email body>"}`

// DraftEmail writes the outreach email for a fitting article. The draft
// always lands in the review queue; nothing is sent from here.
func DraftEmail(ctx context.Context, gen planner.Generator, article model.Article, fit model.ArticleFit, author model.AuthorProfile, ws model.Workspace) (string, string, model.TokenUsage, error) {
	genCtx := fmt.Sprintf("%s\n\nAuthor profile: %s (%s), beat: %s\nPitch angle: %s",
		articleContext(article), author.Name, author.Publication, author.Beat, fit.Angle)

	text, usage, err := gen.Generate(ctx, planner.GenRequest{
		Role:       "outreach copywriter",
		Task:       emailTask,
		Context:    genCtx,
		StyleHints: workspaceHints(ws),
		MaxTokens:  1024,
	})
	if err != nil {
		return "", "", usage, eris.Wrap(err, "outreach: draft email")
	}

	var raw struct {
		Subject string `json:"subject"`
		Body    string `json:"body"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		return "", "", usage, eris.New("outreach: unparseable email response")
	}
	if raw.Body == "" {
		return "", "", usage, eris.New("outreach: empty email body")
	}
	if raw.Subject == "" {
		raw.Subject = "Re: " + article.Title
	}
	return raw.Subject, raw.Body, usage, nil
}
