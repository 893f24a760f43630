package outreach

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/planner"
	"github.com/sells-group/studio-cli/internal/store"
	"github.com/sells-group/studio-cli/pkg/salesforce"
)

// roleGen answers by the requesting agent's role; unknown roles error.
type roleGen struct {
	responses map[string]string
}

func (g *roleGen) Generate(_ context.Context, req planner.GenRequest) (string, model.TokenUsage, error) {
	resp, ok := g.responses[req.Role]
	if !ok {
		return "", model.TokenUsage{}, fmt.Errorf("no canned response for role %q", req.Role)
	}
	return resp, model.TokenUsage{InputTokens: 100, OutputTokens: 50}, nil
}

// failingGen errors on every call.
type failingGen struct{}

func (failingGen) Generate(context.Context, planner.GenRequest) (string, model.TokenUsage, error) {
	return "", model.TokenUsage{}, errors.New("model unavailable")
}

// stubSF implements salesforce.Client with function fields.
type stubSF struct {
	queryFn     func(ctx context.Context, soql string, out any) error
	insertOneFn func(ctx context.Context, sObjectName string, record map[string]any) (string, error)
	updateOneFn func(ctx context.Context, sObjectName string, id string, fields map[string]any) error
}

func (s *stubSF) Query(ctx context.Context, soql string, out any) error {
	if s.queryFn != nil {
		return s.queryFn(ctx, soql, out)
	}
	return nil
}

func (s *stubSF) InsertOne(ctx context.Context, sObjectName string, record map[string]any) (string, error) {
	if s.insertOneFn != nil {
		return s.insertOneFn(ctx, sObjectName, record)
	}
	return "00QNEW", nil
}

func (s *stubSF) InsertCollection(context.Context, string, []map[string]any) ([]salesforce.CollectionResult, error) {
	return nil, nil
}

func (s *stubSF) UpdateOne(ctx context.Context, sObjectName string, id string, fields map[string]any) error {
	if s.updateOneFn != nil {
		return s.updateOneFn(ctx, sObjectName, id, fields)
	}
	return nil
}

func (s *stubSF) UpdateCollection(context.Context, string, []salesforce.CollectionRecord) ([]salesforce.CollectionResult, error) {
	return nil, nil
}

// stubNotion implements notion.Client with function fields.
type stubNotion struct {
	queryFn  func(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error)
	createFn func(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error)
	updateFn func(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

func (s *stubNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	if s.queryFn != nil {
		return s.queryFn(ctx, dbID, req)
	}
	return &notionapi.DatabaseQueryResponse{}, nil
}

func (s *stubNotion) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	if s.createFn != nil {
		return s.createFn(ctx, req)
	}
	return &notionapi.Page{ID: "page-1"}, nil
}

func (s *stubNotion) UpdatePage(ctx context.Context, pageID string, req *notionapi.PageUpdateRequest) (*notionapi.Page, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, pageID, req)
	}
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLite(filepath.Join(t.TempDir(), "outreach.db"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func testWorkspace() model.Workspace {
	return model.Workspace{
		VerticalID:     "personal_finance",
		BrandTone:      "direct, no hype",
		CPMBaseline:    12.5,
		TargetLanguage: "en",
	}
}

func testArticle() model.Article {
	return model.Article{
		URL:         "https://example.com/budget-apps",
		Title:       "The Budget App Boom",
		Author:      "Jane Doe",
		Publication: "Wired",
		Summary:     "Budget apps are surging as households tighten spending.",
		PublishedAt: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
	}
}

func testDraft(status model.ReviewStatus) *model.EmailDraft {
	now := time.Now().UTC()
	return &model.EmailDraft{
		ID:      "draft-1",
		Article: testArticle(),
		Fit:     model.ArticleFit{Relevant: true, Score: 0.8, Angle: "household budgeting data"},
		Author: model.AuthorProfile{
			Name:        "Jane Doe",
			Publication: "Wired",
			Beat:        "consumer finance",
			Email:       "jane@wired.com",
		},
		Subject:   "Data behind the budget app boom",
		Body:      "Hi Jane, loved your piece on budget apps...",
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
