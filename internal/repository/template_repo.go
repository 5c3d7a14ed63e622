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

type TemplateRepo struct {
	db DBTX
}

func NewTemplateRepo(db DBTX) *TemplateRepo {
	return &TemplateRepo{db: db}
}

const templateColumns = `id, name, slug, description, fields, is_active, deadline,
	allow_delegation, allow_multiple_submissions,
	target_users, target_labs, target_designations, is_public,
	created_by, created_at, updated_at`

func (r *TemplateRepo) Create(ctx context.Context, tpl *models.FormTemplate) (string, error) {
	if tpl.ID == "" {
		tpl.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO form_templates (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tpl.ID, tpl.Name, tpl.Slug, tpl.Description, toJSON(tpl.Fields),
		tpl.IsActive, tpl.Deadline,
		tpl.AllowDelegation, tpl.AllowMultipleSubmissions,
		toJSON(tpl.Targets.UserIDs), toJSON(tpl.Targets.Labs),
		toJSON(tpl.Targets.Designations), tpl.Targets.Public,
		tpl.CreatedBy, tpl.CreatedAt, tpl.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("create template: %w", err)
	}
	return tpl.ID, nil
}

func (r *TemplateRepo) FindByID(ctx context.Context, id string) (*models.FormTemplate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM form_templates WHERE id = ?`, id)
	return scanTemplate(row)
}

func (r *TemplateRepo) FindBySlug(ctx context.Context, slug string) (*models.FormTemplate, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM form_templates WHERE slug = ?`, slug)
	return scanTemplate(row)
}

func (r *TemplateRepo) FindAll(ctx context.Context) ([]models.FormTemplate, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+templateColumns+` FROM form_templates ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	defer rows.Close()

	var tpls []models.FormTemplate
	for rows.Next() {
		tpl, err := scanTemplateRow(rows)
		if err != nil {
			return nil, err
		}
		tpls = append(tpls, *tpl)
	}
	return tpls, rows.Err()
}

func (r *TemplateRepo) Update(ctx context.Context, tpl *models.FormTemplate) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE form_templates
		SET name = ?, description = ?, fields = ?, deadline = ?,
		    allow_delegation = ?, allow_multiple_submissions = ?,
		    target_users = ?, target_labs = ?, target_designations = ?, is_public = ?,
		    updated_at = ?
		WHERE id = ?`,
		tpl.Name, tpl.Description, toJSON(tpl.Fields), tpl.Deadline,
		tpl.AllowDelegation, tpl.AllowMultipleSubmissions,
		toJSON(tpl.Targets.UserIDs), toJSON(tpl.Targets.Labs),
		toJSON(tpl.Targets.Designations), tpl.Targets.Public,
		time.Now().UTC(), tpl.ID,
	)
	if err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// SetActive soft-stops (or restarts) a template's distribution.
func (r *TemplateRepo) SetActive(ctx context.Context, id string, active bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE form_templates SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set template active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM form_templates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *TemplateRepo) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM form_templates`).Scan(&n)
	return n, err
}

func scanTemplate(row *sql.Row) (*models.FormTemplate, error) {
	tpl, err := scanTemplateRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return tpl, err
}

func scanTemplateRow(s rowScanner) (*models.FormTemplate, error) {
	var (
		tpl      models.FormTemplate
		fields   string
		users    string
		labs     string
		desigs   string
		deadline sql.NullTime
	)
	err := s.Scan(&tpl.ID, &tpl.Name, &tpl.Slug, &tpl.Description, &fields,
		&tpl.IsActive, &deadline,
		&tpl.AllowDelegation, &tpl.AllowMultipleSubmissions,
		&users, &labs, &desigs, &tpl.Targets.Public,
		&tpl.CreatedBy, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	tpl.Fields = fromJSON[[]map[string]any](fields)
	tpl.Targets.UserIDs = fromJSON[[]string](users)
	tpl.Targets.Labs = fromJSON[[]string](labs)
	tpl.Targets.Designations = fromJSON[[]string](desigs)
	if deadline.Valid {
		t := deadline.Time
		tpl.Deadline = &t
	}
	return &tpl, nil
}
