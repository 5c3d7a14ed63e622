package models

import (
	"encoding/json"
	"time"
)

// FieldDefinition is used for typed access to known field properties.
type FieldDefinition struct {
	Name        string   `json:"name"`
	Label       string   `json:"label"`
	Type        string   `json:"type"`
	Required    bool     `json:"required,omitempty"`
	Placeholder string   `json:"placeholder,omitempty"`
	Options     []string `json:"options,omitempty"`
	MinLength   *int     `json:"minLength,omitempty"`
	MaxLength   *int     `json:"maxLength,omitempty"`
	Min         *float64 `json:"min,omitempty"`
	Max         *float64 `json:"max,omitempty"`
}

// DistributionTargets declares who a template is distributed to: an explicit
// user list, labs optionally narrowed by designation, or everyone when public.
type DistributionTargets struct {
	UserIDs      []string `json:"userIds,omitempty"`
	Labs         []string `json:"labs,omitempty"`
	Designations []string `json:"designations,omitempty"`
	Public       bool     `json:"public,omitempty"`
}

// FormTemplate stores fields as raw maps to preserve all frontend properties.
type FormTemplate struct {
	ID                       string              `json:"id,omitempty"`
	Name                     string              `json:"name"`
	Slug                     string              `json:"slug"`
	Description              string              `json:"description,omitempty"`
	Fields                   []map[string]any    `json:"fields"`
	IsActive                 bool                `json:"isActive"`
	Deadline                 *time.Time          `json:"deadline,omitempty"`
	AllowDelegation          bool                `json:"allowDelegation"`
	AllowMultipleSubmissions bool                `json:"allowMultipleSubmissions"`
	Targets                  DistributionTargets `json:"targets"`
	CreatedBy                string              `json:"createdBy"`
	CreatedAt                time.Time           `json:"createdAt"`
	UpdatedAt                time.Time           `json:"updatedAt"`
}

// TypedFields converts the raw field maps to typed FieldDefinition structs.
func (t *FormTemplate) TypedFields() []FieldDefinition {
	if len(t.Fields) == 0 {
		return nil
	}
	data, err := json.Marshal(t.Fields)
	if err != nil {
		return nil
	}
	var fields []FieldDefinition
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

// Expired reports whether the template's deadline has passed.
func (t *FormTemplate) Expired(now time.Time) bool {
	return t.Deadline != nil && now.After(*t.Deadline)
}
