package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/internal/store"
	"github.com/sells-group/studio-cli/pkg/notion"
)

// Notion status names on the review database. Humans move pages between
// these; SyncReviews pulls the terminal two back into the store.
const (
	statusPending  = "Pending"
	statusApproved = "Approved"
	statusRejected = "Rejected"
)

// Reviewer pushes email drafts into the Notion review database and pulls
// human verdicts back into the store.
type Reviewer struct {
	client notion.Client
	store  store.Store
	dbID   string
}

// NewReviewer creates a Reviewer against the given review database.
func NewReviewer(client notion.Client, st store.Store, dbID string) *Reviewer {
	return &Reviewer{client: client, store: st, dbID: dbID}
}

// SubmitDraft creates a review page for the draft and returns its page ID.
// The draft ID rides along as a rich-text property so SyncReviews can map
// the page back to the stored draft.
func (r *Reviewer) SubmitDraft(ctx context.Context, draft *model.EmailDraft) (string, error) {
	req := &notionapi.PageCreateRequest{
		Parent: notionapi.Parent{
			Type:       notionapi.ParentTypeDatabaseID,
			DatabaseID: notionapi.DatabaseID(r.dbID),
		},
		Properties: notionapi.Properties{
			"Subject": notionapi.TitleProperty{
				Type: notionapi.PropertyTypeTitle,
				Title: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: draft.Subject}},
				},
			},
			"Draft ID": notionapi.RichTextProperty{
				Type: notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: draft.ID}},
				},
			},
			"Author": notionapi.RichTextProperty{
				Type: notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: draft.Author.Name}},
				},
			},
			"Publication": notionapi.RichTextProperty{
				Type: notionapi.PropertyTypeRichText,
				RichText: []notionapi.RichText{
					{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: draft.Author.Publication}},
				},
			},
			"Article": notionapi.URLProperty{
				Type: notionapi.PropertyTypeURL,
				URL:  draft.Article.URL,
			},
			"Fit Score": notionapi.NumberProperty{
				Type:   notionapi.PropertyTypeNumber,
				Number: draft.Fit.Score,
			},
			"Status": notionapi.StatusProperty{
				Status: notionapi.Status{Name: statusPending},
			},
		},
		Children: []notionapi.Block{
			&notionapi.ParagraphBlock{
				BasicBlock: notionapi.BasicBlock{
					Object: notionapi.ObjectTypeBlock,
					Type:   notionapi.BlockTypeParagraph,
				},
				Paragraph: notionapi.Paragraph{
					RichText: []notionapi.RichText{
						{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: draft.Body}},
					},
				},
			},
		},
	}

	page, err := r.client.CreatePage(ctx, req)
	if err != nil {
		return "", eris.Wrap(err, fmt.Sprintf("outreach: submit draft %s", draft.ID))
	}
	return string(page.ID), nil
}

// SyncReviews pulls Approved and Rejected pages from the review database
// and updates the matching drafts. Returns counts of drafts moved to each
// terminal status. Pages without a Draft ID are logged and skipped.
func (r *Reviewer) SyncReviews(ctx context.Context) (approved, rejected int, err error) {
	approved, err = r.syncStatus(ctx, statusApproved, model.ReviewApproved)
	if err != nil {
		return approved, 0, err
	}
	rejected, err = r.syncStatus(ctx, statusRejected, model.ReviewRejected)
	return approved, rejected, err
}

func (r *Reviewer) syncStatus(ctx context.Context, notionStatus string, status model.ReviewStatus) (int, error) {
	pages, err := notion.QueryByStatus(ctx, r.client, r.dbID, notionStatus)
	if err != nil {
		return 0, eris.Wrap(err, "outreach: sync reviews")
	}

	synced := 0
	for _, page := range pages {
		draftID := draftIDFromPage(page)
		if draftID == "" {
			zap.L().Warn("review page has no draft id", zap.String("page_id", string(page.ID)))
			continue
		}

		draft, err := r.store.GetDraft(ctx, draftID)
		if err != nil {
			zap.L().Warn("review page references unknown draft",
				zap.String("draft_id", draftID),
				zap.Error(err),
			)
			continue
		}
		if draft.Status == status {
			continue // already synced
		}

		if err := r.store.UpdateDraftStatus(ctx, draftID, status, string(page.ID)); err != nil {
			return synced, eris.Wrap(err, fmt.Sprintf("outreach: update draft %s", draftID))
		}
		synced++
	}
	return synced, nil
}

// draftIDFromPage extracts the Draft ID rich-text property.
func draftIDFromPage(page notionapi.Page) string {
	prop, ok := page.Properties["Draft ID"]
	if !ok {
		return ""
	}
	rtp, ok := prop.(*notionapi.RichTextProperty)
	if !ok {
		return ""
	}
	var id string
	for _, rt := range rtp.RichText {
		id += rt.PlainText
	}
	return strings.TrimSpace(id)
}
