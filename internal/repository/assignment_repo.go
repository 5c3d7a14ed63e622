package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/formflow/dms/internal/models"
)

// ErrVersionConflict is returned when an optimistic chain-version check fails:
// another writer advanced the chain between read and write.
var ErrVersionConflict = errors.New("chain version conflict")

type AssignmentRepo struct {
	db DBTX
}

func NewAssignmentRepo(db DBTX) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

const assignmentColumns = `id, template_id, root_id, parent_id, assigned_to, assigned_by,
	data_id, status, remarks, route_to, leaf_id, chain_version, created_at, updated_at`

// Create inserts a new chain node. Root assignments (nil parent) point at
// themselves via root_id and leaf_id.
func (r *AssignmentRepo) Create(ctx context.Context, a *models.Assignment) (string, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.ParentID == nil {
		a.RootID = a.ID
		a.LeafID = a.ID
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO assignments (`+assignmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TemplateID, a.RootID, nullStr(a.ParentID), a.AssignedTo, a.AssignedBy,
		nullStr(a.DataID), string(a.Status), a.Remarks, nullStr(a.RouteTo),
		a.LeafID, a.ChainVersion, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("create assignment: %w", err)
	}
	return a.ID, nil
}

func (r *AssignmentRepo) FindByID(ctx context.Context, id string) (*models.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+assignmentColumns+` FROM assignments WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// FindByRoot returns every node of a chain, oldest first.
func (r *AssignmentRepo) FindByRoot(ctx context.Context, rootID string) ([]models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE root_id = ? ORDER BY created_at, id`, rootID)
	if err != nil {
		return nil, fmt.Errorf("find chain: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

// FindLatestForActor returns the actor's most recent assignment on a
// template, or nil when none exists.
func (r *AssignmentRepo) FindLatestForActor(ctx context.Context, templateID, actorID string) (*models.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE template_id = ? AND assigned_to = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, templateID, actorID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// FindLatestByDataID resolves a payload id back to the assignment most
// recently associated with it.
func (r *AssignmentRepo) FindLatestByDataID(ctx context.Context, dataID string) (*models.Assignment, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE data_id = ?
		ORDER BY created_at DESC, id DESC LIMIT 1`, dataID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

// ListForActor returns the actor's work queue: every assignment currently
// held by them, newest first.
func (r *AssignmentRepo) ListForActor(ctx context.Context, actorID string) ([]models.Assignment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+assignmentColumns+` FROM assignments
		WHERE assigned_to = ? ORDER BY created_at DESC`, actorID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()
	return collectAssignments(rows)
}

func (r *AssignmentRepo) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus, remarks string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET status = ?, remarks = ?, updated_at = ? WHERE id = ?`,
		string(status), remarks, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update assignment status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AssignmentRepo) UpdateData(ctx context.Context, id, dataID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET data_id = ?, updated_at = ? WHERE id = ?`,
		dataID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update assignment data: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateRoute records the mark-back forward pointer.
func (r *AssignmentRepo) UpdateRoute(ctx context.Context, id, targetActorID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments SET route_to = ?, updated_at = ? WHERE id = ?`,
		targetActorID, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update assignment route: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// AdvanceLeaf moves the root's current-holder pointer to newLeafID,
// guarded by the chain version read at the start of the transition.
func (r *AssignmentRepo) AdvanceLeaf(ctx context.Context, rootID, newLeafID string, expectVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments
		SET leaf_id = ?, chain_version = chain_version + 1, updated_at = ?
		WHERE id = ? AND chain_version = ?`,
		newLeafID, time.Now().UTC(), rootID, expectVersion)
	if err != nil {
		return fmt.Errorf("advance leaf: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// BumpVersion serializes chain mutations that do not move the leaf.
func (r *AssignmentRepo) BumpVersion(ctx context.Context, rootID string, expectVersion int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE assignments
		SET chain_version = chain_version + 1, updated_at = ?
		WHERE id = ? AND chain_version = ?`,
		time.Now().UTC(), rootID, expectVersion)
	if err != nil {
		return fmt.Errorf("bump chain version: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrVersionConflict
	}
	return nil
}

// CountByStatus aggregates assignment counts for the dashboard.
func (r *AssignmentRepo) CountByStatus(ctx context.Context) (map[models.AssignmentStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM assignments GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count assignments: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.AssignmentStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan count: %w", err)
		}
		counts[models.AssignmentStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanAssignment(s rowScanner) (*models.Assignment, error) {
	var (
		a       models.Assignment
		parent  sql.NullString
		dataID  sql.NullString
		routeTo sql.NullString
	)
	err := s.Scan(&a.ID, &a.TemplateID, &a.RootID, &parent, &a.AssignedTo, &a.AssignedBy,
		&dataID, &a.Status, &a.Remarks, &routeTo, &a.LeafID, &a.ChainVersion,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.ParentID = strPtr(parent)
	a.DataID = strPtr(dataID)
	a.RouteTo = strPtr(routeTo)
	return &a, nil
}

func collectAssignments(rows *sql.Rows) ([]models.Assignment, error) {
	var list []models.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}
