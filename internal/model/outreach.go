package model

import "time"

// Article is a PR outreach candidate article discovered from a feed.
type Article struct {
	URL         string    `json:"url"`
	Title       string    `json:"title"`
	Author      string    `json:"author,omitempty"`
	Publication string    `json:"publication,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// ArticleFit is the fit-analysis verdict for an article.
type ArticleFit struct {
	Relevant  bool    `json:"relevant"`
	Score     float64 `json:"score"` // [0,1]
	Angle     string  `json:"angle,omitempty"`
	Reasoning string  `json:"reasoning,omitempty"`
}

// AuthorProfile is the profiled author of a fitting article.
type AuthorProfile struct {
	Name        string   `json:"name"`
	Publication string   `json:"publication,omitempty"`
	Beat        string   `json:"beat,omitempty"`
	Email       string   `json:"email,omitempty"`
	Interests   []string `json:"interests,omitempty"`
}

// ReviewStatus tracks an email draft through human review.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

// EmailDraft is a personalized outreach email awaiting human review.
// Sending is out of scope; approved drafts are handed to the CRM.
type EmailDraft struct {
	ID           string       `json:"id"`
	Article      Article      `json:"article"`
	Fit          ArticleFit   `json:"fit"`
	Author       AuthorProfile `json:"author"`
	Subject      string       `json:"subject"`
	Body         string       `json:"body"`
	Status       ReviewStatus `json:"status"`
	ReviewPageID string       `json:"review_page_id,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
