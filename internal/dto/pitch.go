package dto

// CreatePitchRequest is the payload for creating a pitch.
type CreatePitchRequest struct {
	Title   string `json:"title" validate:"required,max=200"`
	Name    string `json:"name" validate:"max=120"`
	Company string `json:"company" validate:"max=120"`
	Email   string `json:"email" validate:"omitempty,email"`
	Summary string `json:"summary" validate:"max=5000"`
}

// UpdatePitchRequest carries a partial update; nil fields are left untouched.
type UpdatePitchRequest struct {
	Title   *string `json:"title" validate:"omitempty,min=1,max=200"`
	Name    *string `json:"name" validate:"omitempty,max=120"`
	Company *string `json:"company" validate:"omitempty,max=120"`
	Email   *string `json:"email" validate:"omitempty,email"`
	Summary *string `json:"summary" validate:"omitempty,max=5000"`
}

// Fields returns the supplied columns.
func (r UpdatePitchRequest) Fields() map[string]interface{} {
	fields := map[string]interface{}{}
	set := func(key string, v *string) {
		if v != nil {
			fields[key] = *v
		}
	}
	set("title", r.Title)
	set("name", r.Name)
	set("company", r.Company)
	set("email", r.Email)
	set("summary", r.Summary)
	return fields
}

// ExportAnalyticsQuery selects the window and format of an analytics export.
type ExportAnalyticsQuery struct {
	Days   int    `form:"days"`
	Format string `form:"format"`
}
