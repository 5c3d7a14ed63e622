package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/formflow/dms/internal/directory"
	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
)

var ErrPermissionDenied = errors.New("permission denied")

type TemplateService struct {
	templates *repository.TemplateRepo
	dir       *directory.Directory
}

func NewTemplateService(templates *repository.TemplateRepo, dir *directory.Directory) *TemplateService {
	return &TemplateService{templates: templates, dir: dir}
}

type TemplateInput struct {
	Name                     string                     `json:"name"`
	Description              string                     `json:"description"`
	Fields                   []map[string]any           `json:"fields"`
	Deadline                 *time.Time                 `json:"deadline,omitempty"`
	AllowDelegation          bool                       `json:"allowDelegation"`
	AllowMultipleSubmissions bool                       `json:"allowMultipleSubmissions"`
	Targets                  models.DistributionTargets `json:"targets"`
}

func (s *TemplateService) Create(ctx context.Context, createdBy string, in TemplateInput) (*models.FormTemplate, error) {
	if in.Name == "" {
		return nil, errors.New("template name is required")
	}
	if len(in.Fields) == 0 {
		return nil, errors.New("at least one field is required")
	}

	slug := generateSlug(in.Name)
	existing, _ := s.templates.FindBySlug(ctx, slug)
	if existing != nil {
		slug = slug + "-" + time.Now().Format("20060102150405")
	}

	now := time.Now().UTC()
	tpl := &models.FormTemplate{
		Name:                     in.Name,
		Slug:                     slug,
		Description:              in.Description,
		Fields:                   in.Fields,
		IsActive:                 true,
		Deadline:                 in.Deadline,
		AllowDelegation:          in.AllowDelegation,
		AllowMultipleSubmissions: in.AllowMultipleSubmissions,
		Targets:                  in.Targets,
		CreatedBy:                createdBy,
		CreatedAt:                now,
		UpdatedAt:                now,
	}

	if _, err := s.templates.Create(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *TemplateService) List(ctx context.Context) ([]models.FormTemplate, error) {
	return s.templates.FindAll(ctx)
}

func (s *TemplateService) Get(ctx context.Context, id string) (*models.FormTemplate, error) {
	tpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, errors.New("template not found")
	}
	return tpl, nil
}

// Update mutates a template. Only its creator or a superuser may do so.
func (s *TemplateService) Update(ctx context.Context, actor *models.User, id string, in TemplateInput) (*models.FormTemplate, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, tpl) {
		return nil, ErrPermissionDenied
	}

	if in.Name != "" {
		tpl.Name = in.Name
	}
	tpl.Description = in.Description
	if len(in.Fields) > 0 {
		tpl.Fields = in.Fields
	}
	tpl.Deadline = in.Deadline
	tpl.AllowDelegation = in.AllowDelegation
	tpl.AllowMultipleSubmissions = in.AllowMultipleSubmissions
	tpl.Targets = in.Targets
	tpl.UpdatedAt = time.Now().UTC()

	if err := s.templates.Update(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Stop soft-stops distribution by flipping isActive. Existing chains keep
// progressing; new drafts and delegations are refused.
func (s *TemplateService) Stop(ctx context.Context, actor *models.User, id string) (*models.FormTemplate, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canManage(actor, tpl) {
		return nil, ErrPermissionDenied
	}
	if err := s.templates.SetActive(ctx, id, false); err != nil {
		return nil, err
	}
	tpl.IsActive = false
	return tpl, nil
}

func (s *TemplateService) Delete(ctx context.Context, actor *models.User, id string) error {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !canManage(actor, tpl) {
		return ErrPermissionDenied
	}
	return s.templates.Delete(ctx, id)
}

// Recipients previews the resolved distribution set for a template.
func (s *TemplateService) Recipients(ctx context.Context, id string) ([]models.UserResponse, error) {
	tpl, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	users, err := s.dir.ResolveEligibleRecipients(ctx, tpl)
	if err != nil {
		return nil, err
	}
	resp := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, u.ToResponse())
	}
	return resp, nil
}

func canManage(actor *models.User, tpl *models.FormTemplate) bool {
	return actor.ID == tpl.CreatedBy || actor.Role == models.RoleAdmin
}

var nonAlphaNum = regexp.MustCompile(`[^a-z0-9]+`)

func generateSlug(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = nonAlphaNum.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		slug = "form"
	}
	return slug
}
