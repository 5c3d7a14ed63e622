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

type SubmissionRepo struct {
	db DBTX
}

func NewSubmissionRepo(db DBTX) *SubmissionRepo {
	return &SubmissionRepo{db: db}
}

const submissionColumns = `id, template_id, submitted_by, status, data, created_at, updated_at`

func (r *SubmissionRepo) Create(ctx context.Context, sub *models.Submission) (string, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.TemplateID, sub.SubmittedBy, string(sub.Status),
		toJSON(sub.Data), sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("create submission: %w", err)
	}
	return sub.ID, nil
}

func (r *SubmissionRepo) Update(ctx context.Context, sub *models.Submission) error {
	sub.UpdatedAt = time.Now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE submissions
		SET submitted_by = ?, status = ?, data = ?, updated_at = ?
		WHERE id = ?`,
		sub.SubmittedBy, string(sub.Status), toJSON(sub.Data), sub.UpdatedAt, sub.ID,
	)
	if err != nil {
		return fmt.Errorf("update submission: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateStatus mirrors the owning assignment's workflow status onto the payload.
func (r *SubmissionRepo) UpdateStatus(ctx context.Context, id string, status models.AssignmentStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE submissions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update submission status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SubmissionRepo) GetByID(ctx context.Context, id string) (*models.Submission, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return sub, err
}

func (r *SubmissionRepo) ListByTemplate(ctx context.Context, templateID string) ([]models.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+submissionColumns+` FROM submissions
		WHERE template_id = ? ORDER BY created_at DESC`, templateID)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var subs []models.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, rows.Err()
}

func (r *SubmissionRepo) CountByTemplate(ctx context.Context, templateID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE template_id = ?`, templateID).Scan(&n)
	return n, err
}

func scanSubmission(s rowScanner) (*models.Submission, error) {
	var (
		sub  models.Submission
		data string
	)
	err := s.Scan(&sub.ID, &sub.TemplateID, &sub.SubmittedBy, &sub.Status,
		&data, &sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		return nil, err
	}
	sub.Data = fromJSON[map[string]any](data)
	return &sub, nil
}
