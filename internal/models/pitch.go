package models

import "time"

// PitchStatus tracks how far a pitch has progressed through sharing.
type PitchStatus string

const (
	PitchStatusDraft         PitchStatus = "draft"
	PitchStatusPublished     PitchStatus = "published"
	PitchStatusViewed        PitchStatus = "viewed"
	PitchStatusMultipleViews PitchStatus = "multiple_views"
)

// Pitch is a shareable pitch record whose views are tracked.
type Pitch struct {
	ID          int64       `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Name        string      `db:"name" json:"name"`
	Company     string      `db:"company" json:"company"`
	Email       string      `db:"email" json:"email"`
	Summary     string      `db:"summary" json:"summary"`
	Status      PitchStatus `db:"status" json:"status"`
	ViewCount   int64       `db:"view_count" json:"view_count"`
	LastViewed  *time.Time  `db:"last_viewed" json:"last_viewed,omitempty"`
	ShareToken  string      `db:"share_token" json:"share_token"`
	CreatedDate time.Time   `db:"created_date" json:"created_date"`
	UpdatedDate time.Time   `db:"updated_date" json:"updated_date"`
}

// IsPublic reports whether the pitch may be served through its share link.
func (p Pitch) IsPublic() bool {
	return p.Status != PitchStatusDraft
}

// PublicPitch is the subset exposed through a share link.
type PublicPitch struct {
	Title   string `json:"title"`
	Name    string `json:"name"`
	Company string `json:"company"`
	Summary string `json:"summary"`
}

// Public strips owner-only fields.
func (p Pitch) Public() PublicPitch {
	return PublicPitch{Title: p.Title, Name: p.Name, Company: p.Company, Summary: p.Summary}
}
