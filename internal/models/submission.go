package models

import "time"

// Submission is one form-data payload. A new record is created per distinct
// edit lineage; the owning assignment points at it through DataID.
type Submission struct {
	ID          string           `json:"id,omitempty"`
	TemplateID  string           `json:"templateId"`
	SubmittedBy string           `json:"submittedBy"`
	Status      AssignmentStatus `json:"status"`
	Data        map[string]any   `json:"data"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
