package directory

import (
	"context"
	"fmt"
	"sort"

	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
)

// Directory resolves a template's declared distribution targets to concrete
// actor identities. The workflow engine consults it when validating
// delegation targets and initial recipients.
type Directory struct {
	users *repository.UserRepo
}

func New(users *repository.UserRepo) *Directory {
	return &Directory{users: users}
}

// ResolveEligibleRecipients returns the de-duplicated set of users a template
// is distributed to. The template creator and admin accounts are never
// recipients of their own distribution.
func (d *Directory) ResolveEligibleRecipients(ctx context.Context, tpl *models.FormTemplate) ([]models.User, error) {
	byID := make(map[string]models.User)

	if tpl.Targets.Public {
		all, err := d.users.ListAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve public recipients: %w", err)
		}
		for _, u := range all {
			byID[u.ID] = u
		}
	} else {
		for _, id := range tpl.Targets.UserIDs {
			u, err := d.users.FindByID(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("resolve recipient %s: %w", id, err)
			}
			if u != nil {
				byID[u.ID] = *u
			}
		}

		labUsers, err := d.users.ListByLabs(ctx, tpl.Targets.Labs, tpl.Targets.Designations)
		if err != nil {
			return nil, fmt.Errorf("resolve lab recipients: %w", err)
		}
		for _, u := range labUsers {
			byID[u.ID] = u
		}
	}

	delete(byID, tpl.CreatedBy)

	recipients := make([]models.User, 0, len(byID))
	for _, u := range byID {
		if u.Role == models.RoleAdmin {
			continue
		}
		recipients = append(recipients, u)
	}
	sort.Slice(recipients, func(i, j int) bool { return recipients[i].Email < recipients[j].Email })
	return recipients, nil
}

// IsEligible reports whether actorID is in the template's recipient set.
func (d *Directory) IsEligible(ctx context.Context, tpl *models.FormTemplate, actorID string) (bool, error) {
	if actorID == tpl.CreatedBy {
		return false, nil
	}
	u, err := d.users.FindByID(ctx, actorID)
	if err != nil {
		return false, err
	}
	if u == nil || u.Role == models.RoleAdmin {
		return false, nil
	}

	if tpl.Targets.Public {
		return true, nil
	}
	for _, id := range tpl.Targets.UserIDs {
		if id == actorID {
			return true, nil
		}
	}
	for _, lab := range tpl.Targets.Labs {
		if lab != u.Lab {
			continue
		}
		if len(tpl.Targets.Designations) == 0 {
			return true, nil
		}
		for _, des := range tpl.Targets.Designations {
			if des == u.Designation {
				return true, nil
			}
		}
	}
	return false, nil
}
