package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/pkg/salesforce"
)

// leadSource tags outreach-created leads in Salesforce.
const leadSource = "PR Outreach"

// PushLead upserts an approved draft's author as a Salesforce Lead and
// returns the lead ID. An existing lead (matched by email) gets its
// description appended instead of a duplicate record.
func PushLead(ctx context.Context, sf salesforce.Client, draft *model.EmailDraft) (string, error) {
	if draft.Status != model.ReviewApproved {
		return "", eris.Errorf("outreach: draft %s is %s, only approved drafts are pushed", draft.ID, draft.Status)
	}
	if draft.Author.Email == "" {
		return "", eris.Errorf("outreach: draft %s has no author email", draft.ID)
	}

	description := leadDescription(draft)

	existing, err := salesforce.FindLeadByEmail(ctx, sf, draft.Author.Email)
	if err != nil {
		return "", eris.Wrap(err, "outreach: push lead")
	}
	if existing != nil {
		fields := map[string]any{"Description": description}
		if err := salesforce.UpdateLead(ctx, sf, existing.ID, fields); err != nil {
			return "", eris.Wrap(err, "outreach: push lead")
		}
		zap.L().Info("updated existing lead",
			zap.String("lead_id", existing.ID),
			zap.String("email", draft.Author.Email),
		)
		return existing.ID, nil
	}

	first, last := splitName(draft.Author.Name)
	company := draft.Author.Publication
	if company == "" {
		company = "Independent"
	}

	fields := map[string]any{
		"FirstName":   first,
		"LastName":    last,
		"Email":       draft.Author.Email,
		"Company":     company,
		"Title":       draft.Author.Beat,
		"LeadSource":  leadSource,
		"Description": description,
	}
	id, err := salesforce.CreateLead(ctx, sf, fields)
	if err != nil {
		return "", eris.Wrap(err, "outreach: push lead")
	}
	zap.L().Info("created lead",
		zap.String("lead_id", id),
		zap.String("email", draft.Author.Email),
	)
	return id, nil
}

// leadDescription summarizes the approved pitch for the CRM record.
func leadDescription(draft *model.EmailDraft) string {
	return fmt.Sprintf("Approved outreach pitch.\nArticle: %s (%s)\nAngle: %s\nSubject: %s",
		draft.Article.Title, draft.Article.URL, draft.Fit.Angle, draft.Subject)
}

// splitName splits a full name into first and last. A single-token name
// becomes the last name, which Salesforce requires.
func splitName(full string) (first, last string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}
