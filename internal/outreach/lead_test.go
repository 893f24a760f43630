package outreach

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/studio-cli/internal/model"
	"github.com/sells-group/studio-cli/pkg/salesforce"
)

func TestPushLead(t *testing.T) {
	t.Run("creates lead when none exists", func(t *testing.T) {
		var captured map[string]any
		sf := &stubSF{
			queryFn: func(_ context.Context, _ string, out any) error {
				leads := out.(*[]salesforce.Lead)
				*leads = []salesforce.Lead{}
				return nil
			},
			insertOneFn: func(_ context.Context, sObject string, record map[string]any) (string, error) {
				assert.Equal(t, "Lead", sObject)
				captured = record
				return "00QNEW", nil
			},
		}

		id, err := PushLead(context.Background(), sf, testDraft(model.ReviewApproved))
		require.NoError(t, err)
		assert.Equal(t, "00QNEW", id)
		assert.Equal(t, "Jane", captured["FirstName"])
		assert.Equal(t, "Doe", captured["LastName"])
		assert.Equal(t, "Wired", captured["Company"])
		assert.Equal(t, "PR Outreach", captured["LeadSource"])
		assert.Contains(t, captured["Description"], "The Budget App Boom")
	})

	t.Run("updates existing lead", func(t *testing.T) {
		var updatedID string
		sf := &stubSF{
			queryFn: func(_ context.Context, _ string, out any) error {
				leads := out.(*[]salesforce.Lead)
				*leads = []salesforce.Lead{{ID: "00Qexisting", Email: "jane@wired.com"}}
				return nil
			},
			updateOneFn: func(_ context.Context, _ string, id string, fields map[string]any) error {
				updatedID = id
				assert.Contains(t, fields, "Description")
				return nil
			},
		}

		id, err := PushLead(context.Background(), sf, testDraft(model.ReviewApproved))
		require.NoError(t, err)
		assert.Equal(t, "00Qexisting", id)
		assert.Equal(t, "00Qexisting", updatedID)
	})

	t.Run("defaults company when no publication", func(t *testing.T) {
		var captured map[string]any
		sf := &stubSF{
			queryFn: func(_ context.Context, _ string, out any) error {
				leads := out.(*[]salesforce.Lead)
				*leads = []salesforce.Lead{}
				return nil
			},
			insertOneFn: func(_ context.Context, _ string, record map[string]any) (string, error) {
				captured = record
				return "00QNEW", nil
			},
		}

		draft := testDraft(model.ReviewApproved)
		draft.Author.Publication = ""
		_, err := PushLead(context.Background(), sf, draft)
		require.NoError(t, err)
		assert.Equal(t, "Independent", captured["Company"])
	})

	t.Run("rejects non-approved draft", func(t *testing.T) {
		sf := &stubSF{}
		_, err := PushLead(context.Background(), sf, testDraft(model.ReviewPending))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only approved drafts")
	})

	t.Run("requires author email", func(t *testing.T) {
		sf := &stubSF{}
		draft := testDraft(model.ReviewApproved)
		draft.Author.Email = ""
		_, err := PushLead(context.Background(), sf, draft)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no author email")
	})

	t.Run("query failure propagates", func(t *testing.T) {
		sf := &stubSF{
			queryFn: func(_ context.Context, _ string, _ any) error {
				return errors.New("connection refused")
			},
		}
		_, err := PushLead(context.Background(), sf, testDraft(model.ReviewApproved))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "outreach: push lead")
	})
}

func TestSplitName(t *testing.T) {
	tests := []struct {
		full  string
		first string
		last  string
	}{
		{"Jane Doe", "Jane", "Doe"},
		{"Mary Jane Watson", "Mary Jane", "Watson"},
		{"Prince", "", "Prince"},
		{"", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.full, func(t *testing.T) {
			first, last := splitName(tt.full)
			assert.Equal(t, tt.first, first)
			assert.Equal(t, tt.last, last)
		})
	}
}
