package models

import "time"

// AssignmentStatus is the single canonical workflow state of an assignment.
// UI-facing flags (finalized, closed) are derived from it, never stored.
type AssignmentStatus string

const (
	StatusPending   AssignmentStatus = "pending"
	StatusEdited    AssignmentStatus = "edited"
	StatusFinalized AssignmentStatus = "finalized"
	StatusApproved  AssignmentStatus = "approved"
	StatusSubmitted AssignmentStatus = "submitted"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusEdited, StatusFinalized, StatusApproved, StatusSubmitted:
		return true
	}
	return false
}

// Assignment is one node in a delegation chain. Assignments are never
// deleted; the chain they form is the custody history of a distributed form.
type Assignment struct {
	ID         string           `json:"id,omitempty"`
	TemplateID string           `json:"templateId"`
	RootID     string           `json:"rootId"`
	ParentID   *string          `json:"parentAssignmentId,omitempty"`
	AssignedTo string           `json:"assignedTo"`
	AssignedBy string           `json:"assignedBy"`
	DataID     *string          `json:"dataId,omitempty"`
	Status     AssignmentStatus `json:"status"`
	Remarks    string           `json:"remarks,omitempty"`

	// RouteTo is the forward pointer set by mark-back: the prior chain member
	// expected to sign off next. It does not alter the state machine.
	RouteTo *string `json:"routeTo,omitempty"`

	// LeafID and ChainVersion are meaningful on root rows only. LeafID makes
	// current-holder resolution an O(1) read; ChainVersion increases
	// monotonically on every chain mutation and backs the optimistic
	// concurrency check. RootID is the id of the chain's root assignment;
	// roots point to themselves.
	LeafID       string `json:"-"`
	ChainVersion int64  `json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Finalized reports whether the assignment has passed the finalization gate.
func (a *Assignment) Finalized() bool {
	switch a.Status {
	case StatusFinalized, StatusApproved, StatusSubmitted:
		return true
	}
	return false
}

// Closed reports whether the chain is terminal at this node.
func (a *Assignment) Closed() bool {
	return a.Status == StatusSubmitted
}

// ChainSegment is one hop of a delegation chain as returned by the chain
// endpoints: who handed the form to whom, when, and in what state.
type ChainSegment struct {
	AssignmentID string           `json:"assignmentId"`
	FromUser     string           `json:"fromUser"`
	ToUser       string           `json:"toUser"`
	Remarks      string           `json:"remarks,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
	Status       AssignmentStatus `json:"status"`
	Current      bool             `json:"current"`
}
