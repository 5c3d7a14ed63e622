package directory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/dms/internal/db"
	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/repository"
)

func setup(t *testing.T) (*Directory, *repository.UserRepo) {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "directory.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	users := repository.NewUserRepo(database)
	return New(users), users
}

func seed(t *testing.T, users *repository.UserRepo, email, lab, designation string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, Name: email, Role: role, Lab: lab, Designation: designation}
	_, err := users.Create(context.Background(), u)
	require.NoError(t, err)
	return u
}

func TestResolveEligibleRecipients(t *testing.T) {
	dir, users := setup(t)
	ctx := context.Background()

	creator := seed(t, users, "creator@lab.test", "chemistry", "head", models.RoleUser)
	chemist := seed(t, users, "chemist@lab.test", "chemistry", "scientist", models.RoleUser)
	physicist := seed(t, users, "physicist@lab.test", "physics", "scientist", models.RoleUser)
	admin := seed(t, users, "admin@lab.test", "", "", models.RoleAdmin)
	extra := seed(t, users, "extra@lab.test", "biology", "technician", models.RoleUser)

	t.Run("public excludes creator and admins", func(t *testing.T) {
		tpl := &models.FormTemplate{
			CreatedBy: creator.ID,
			Targets:   models.DistributionTargets{Public: true},
		}
		got, err := dir.ResolveEligibleRecipients(ctx, tpl)
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{chemist.ID, physicist.ID, extra.ID}, ids)
		assert.NotContains(t, ids, admin.ID)
	})

	t.Run("lab targets narrowed by designation", func(t *testing.T) {
		tpl := &models.FormTemplate{
			CreatedBy: creator.ID,
			Targets: models.DistributionTargets{
				Labs:         []string{"chemistry", "physics"},
				Designations: []string{"scientist"},
			},
		}
		got, err := dir.ResolveEligibleRecipients(ctx, tpl)
		require.NoError(t, err)
		ids := make([]string, 0, len(got))
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.ElementsMatch(t, []string{chemist.ID, physicist.ID}, ids)
	})

	t.Run("explicit users merged with lab targets", func(t *testing.T) {
		tpl := &models.FormTemplate{
			CreatedBy: creator.ID,
			Targets: models.DistributionTargets{
				UserIDs: []string{extra.ID},
				Labs:    []string{"physics"},
			},
		}
		got, err := dir.ResolveEligibleRecipients(ctx, tpl)
		require.NoError(t, err)
		require.Len(t, got, 2)
		// Sorted by email for a stable picker order.
		assert.Equal(t, extra.ID, got[0].ID)
		assert.Equal(t, physicist.ID, got[1].ID)
	})
}

func TestIsEligible(t *testing.T) {
	dir, users := setup(t)
	ctx := context.Background()

	creator := seed(t, users, "creator@lab.test", "chemistry", "head", models.RoleUser)
	chemist := seed(t, users, "chemist@lab.test", "chemistry", "scientist", models.RoleUser)
	admin := seed(t, users, "admin@lab.test", "", "", models.RoleAdmin)

	tpl := &models.FormTemplate{
		CreatedBy: creator.ID,
		Targets:   models.DistributionTargets{Labs: []string{"chemistry"}},
	}

	ok, err := dir.IsEligible(ctx, tpl, chemist.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = dir.IsEligible(ctx, tpl, creator.ID)
	require.NoError(t, err)
	assert.False(t, ok, "creator is never a recipient of their own distribution")

	ok, err = dir.IsEligible(ctx, tpl, admin.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = dir.IsEligible(ctx, tpl, "unknown-user")
	require.NoError(t, err)
	assert.False(t, ok)

	tpl.Targets.Designations = []string{"technician"}
	ok, err = dir.IsEligible(ctx, tpl, chemist.ID)
	require.NoError(t, err)
	assert.False(t, ok, "designation filter narrows the lab target")
}
