package workflow

import (
	"context"
	"fmt"

	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
)

// Chain returns the custody history of the chain containing assignmentID,
// ordered root to current leaf.
func (e *Engine) Chain(ctx context.Context, assignmentID string) ([]models.ChainSegment, error) {
	a, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	nodes, err := repository.NewAssignmentRepo(e.db).FindByRoot(ctx, a.RootID)
	if err != nil {
		return nil, err
	}
	return segments(orderChain(nodes)), nil
}

// ChainByDataID resolves a payload id back to its chain. Used by the export
// and printing collaborators.
func (e *Engine) ChainByDataID(ctx context.Context, submissionID string) ([]models.ChainSegment, error) {
	a, err := repository.NewAssignmentRepo(e.db).FindLatestByDataID(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("submission %s: %w", submissionID, repository.ErrNotFound)
	}
	return e.Chain(ctx, a.ID)
}

// Assignments returns the actor's work queue.
func (e *Engine) Assignments(ctx context.Context, actor *models.User) ([]models.Assignment, error) {
	return repository.NewAssignmentRepo(e.db).ListForActor(ctx, actor.ID)
}

// ApprovalTargets lists the prior chain members the actor may route the
// assignment to for sign-off. Backs the "send for approval" picker.
func (e *Engine) ApprovalTargets(ctx context.Context, actor *models.User, assignmentID string) ([]models.UserResponse, error) {
	a, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	tpl, err := e.template(ctx, a.TemplateID)
	if err != nil {
		return nil, err
	}
	nodes, err := repository.NewAssignmentRepo(e.db).FindByRoot(ctx, a.RootID)
	if err != nil {
		return nil, err
	}

	ids := EligibleApprovalTargets(orderChain(nodes), actor, tpl.CreatedBy)
	users := repository.NewUserRepo(e.db)
	targets := make([]models.UserResponse, 0, len(ids))
	for _, id := range ids {
		u, err := users.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if u != nil {
			targets = append(targets, u.ToResponse())
		}
	}
	return targets, nil
}

// ChainReport is the result of the consistency audit over one chain.
type ChainReport struct {
	RootID     string   `json:"rootId"`
	Nodes      int      `json:"nodes"`
	LeafID     string   `json:"leafId"`
	WalkLeafID string   `json:"walkLeafId"`
	Consistent bool     `json:"consistent"`
	Issues     []string `json:"issues,omitempty"`
}

// VerifyChain recomputes the current holder by walking parent links and
// checks the single-active-holder invariant against the stored leaf pointer.
// The walk is the audit path; the pointer is the fast path.
func (e *Engine) VerifyChain(ctx context.Context, assignmentID string) (*ChainReport, error) {
	a, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	repo := repository.NewAssignmentRepo(e.db)
	root, err := repo.FindByID(ctx, a.RootID)
	if err != nil {
		return nil, err
	}
	nodes, err := repo.FindByRoot(ctx, a.RootID)
	if err != nil {
		return nil, err
	}

	report := &ChainReport{RootID: a.RootID, Nodes: len(nodes), LeafID: root.LeafID}

	children := make(map[string]int)
	for _, n := range nodes {
		if n.ParentID != nil {
			children[*n.ParentID]++
		}
	}
	for parent, count := range children {
		if count > 1 {
			report.Issues = append(report.Issues,
				fmt.Sprintf("assignment %s has %d children; a parent may delegate at most once", parent, count))
		}
	}

	path := orderChain(nodes)
	if len(path) == 0 {
		report.Issues = append(report.Issues, "chain has no root node")
	} else {
		report.WalkLeafID = path[len(path)-1].ID
		if report.WalkLeafID != root.LeafID {
			report.Issues = append(report.Issues,
				fmt.Sprintf("stored leaf pointer %s disagrees with walked leaf %s", root.LeafID, report.WalkLeafID))
		}
		for _, n := range path[:len(path)-1] {
			if n.Status == models.StatusSubmitted {
				report.Issues = append(report.Issues,
					fmt.Sprintf("non-leaf assignment %s is submitted", n.ID))
			}
		}
	}

	report.Consistent = len(report.Issues) == 0
	return report, nil
}

// orderChain arranges chain nodes root-first by following most-recent-child
// links. Nodes off the active path (never produced by the engine, but
// possible in corrupted data) are left out.
func orderChain(nodes []models.Assignment) []models.Assignment {
	var root *models.Assignment
	children := make(map[string][]models.Assignment)
	for i := range nodes {
		n := nodes[i]
		if n.ParentID == nil {
			root = &nodes[i]
		} else {
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}
	if root == nil {
		return nil
	}

	path := []models.Assignment{*root}
	cur := *root
	for {
		kids := children[cur.ID]
		if len(kids) == 0 {
			return path
		}
		next := kids[0]
		for _, k := range kids[1:] {
			if k.CreatedAt.After(next.CreatedAt) {
				next = k
			}
		}
		path = append(path, next)
		cur = next
	}
}

func segments(path []models.Assignment) []models.ChainSegment {
	segs := make([]models.ChainSegment, 0, len(path))
	for i, n := range path {
		segs = append(segs, models.ChainSegment{
			AssignmentID: n.ID,
			FromUser:     n.AssignedBy,
			ToUser:       n.AssignedTo,
			Remarks:      n.Remarks,
			Timestamp:    n.CreatedAt,
			Status:       n.Status,
			Current:      i == len(path)-1 && !n.Closed(),
		})
	}
	return segs
}
