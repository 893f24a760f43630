package outreach

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/studio-cli/internal/llmjson"
	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/planner"
)

const authorTask = `Profile the author of this article from its byline and content: what beat do they cover, what are they likely interested in next, and what is the best contact email if one is evident?

Return a valid JSON object:
{"name": "<full name>", "publication": "<outlet>", "beat": "<beat>", "email": "<email or empty>", "interests": ["<interest>", ...]}`

// ProfileAuthor builds an author profile for a fitting article. The
// article's own byline and publication backfill anything the LLM omits.
func ProfileAuthor(ctx context.Context, gen planner.Generator, article model.Article, ws model.Workspace) (model.AuthorProfile, model.TokenUsage, error) {
	text, usage, err := gen.Generate(ctx, planner.GenRequest{
		Role:       "author profiler",
		Task:       authorTask,
		Context:    articleContext(article),
		StyleHints: workspaceHints(ws),
		MaxTokens:  512,
	})
	if err != nil {
		return model.AuthorProfile{}, usage, eris.Wrap(err, "outreach: profile author")
	}

	var raw struct {
		Name        string   `json:"name"`
		Publication string   `json:"publication"`
		Beat        string   `json:"beat"`
		Email       string   `json:"email"`
		Interests   []string `json:"interests"`
	}
	if !llmjson.DecodeObject(text, &raw) {
		return model.AuthorProfile{}, usage, eris.New("outreach: unparseable author response")
	}

	profile := model.AuthorProfile{
		Name:        raw.Name,
		Publication: raw.Publication,
		Beat:        raw.Beat,
		Email:       raw.Email,
		Interests:   raw.Interests,
	}
	if profile.Name == "" {
		profile.Name = article.Author
	}
	if profile.Publication == "" {
		profile.Publication = article.Publication
	}
	if profile.Name == "" {
		return model.AuthorProfile{}, usage, eris.New("outreach: no author name available")
	}
	return profile, usage, nil
}
