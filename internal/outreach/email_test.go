package outreach

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studio-cli/internal/model"
)

func TestDraftEmail(t *testing.T) {
	fit := model.ArticleFit{Relevant: true, Score: 0.8, Angle: "budgeting data"}
	author := model.AuthorProfile{Name: "Jane Doe", Publication: "Wired", Beat: "consumer finance"}

	t.Run("parses subject and body", func(t *testing.T) {
		gen := &roleGen{responses: map[string]string{
			"outreach copywriter": `{"subject": "Data behind the boom", "body": "Hi Jane, loved your piece..."}`,
		}}

		subject, body, _, err := DraftEmail(context.Background(), gen, testArticle(), fit, author, testWorkspace())
		require.NoError(t, err)
		assert.Equal(t, "Data behind the boom", subject)
		assert.Equal(t, "Hi Jane, loved your piece...", body)
	})

	t.Run("defaults empty subject from article title", func(t *testing.T) {
		gen := &roleGen{responses: map[string]string{
			"outreach copywriter": `{"subject": "", "body": "Hi Jane..."}`,
		}}

		subject, _, _, err := DraftEmail(context.Background(), gen, testArticle(), fit, author, testWorkspace())
		require.NoError(t, err)
		assert.Equal(t, "Re: The Budget App Boom", subject)
	})

	t.Run("empty body errors", func(t *testing.T) {
		gen := &roleGen{responses: map[string]string{
			"outreach copywriter": `{"subject": "Hello", "body": ""}`,
		}}

		_, _, _, err := DraftEmail(context.Background(), gen, testArticle(), fit, author, testWorkspace())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "empty email body")
	})

	t.Run("generator error propagates", func(t *testing.T) {
		_, _, _, err := DraftEmail(context.Background(), failingGen{}, testArticle(), fit, author, testWorkspace())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outreach: draft email")
	})
}
