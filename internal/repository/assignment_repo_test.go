package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formflow/dms/internal/db"
	"github.com/formflow/dms/internal/models"
)

type repoFixture struct {
	assignments *AssignmentRepo
	alice       string
	bob         string
	distributor string
	tplA        string
	tplB        string
}

func newRepoFixture(t *testing.T) *repoFixture {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "repo.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	ctx := context.Background()

	users := NewUserRepo(database)
	templates := NewTemplateRepo(database)

	f := &repoFixture{assignments: NewAssignmentRepo(database)}
	for _, u := range []struct {
		id   *string
		name string
	}{
		{&f.alice, "alice"},
		{&f.bob, "bob"},
		{&f.distributor, "distributor"},
	} {
		id, err := users.Create(ctx, &models.User{
			Email: u.name + "@lab.test",
			Name:  u.name,
			Role:  models.RoleUser,
		})
		require.NoError(t, err)
		*u.id = id
	}

	now := time.Now().UTC()
	for _, tpl := range []struct {
		id   *string
		slug string
	}{
		{&f.tplA, "report-a"},
		{&f.tplB, "report-b"},
	} {
		id, err := templates.Create(ctx, &models.FormTemplate{
			Name:      tpl.slug,
			Slug:      tpl.slug,
			Fields:    []map[string]any{{"name": "summary", "type": "text"}},
			IsActive:  true,
			CreatedBy: f.distributor,
			CreatedAt: now,
			UpdatedAt: now,
		})
		require.NoError(t, err)
		*tpl.id = id
	}
	return f
}

func TestCreateRootSelfPointers(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	root := &models.Assignment{
		TemplateID: f.tplA,
		AssignedTo: f.alice,
		AssignedBy: f.distributor,
		Status:     models.StatusPending,
	}
	id, err := f.assignments.Create(ctx, root)
	require.NoError(t, err)
	assert.Equal(t, id, root.RootID)
	assert.Equal(t, id, root.LeafID)
	assert.EqualValues(t, 0, root.ChainVersion)

	got, err := f.assignments.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, root.RootID, got.RootID)
	assert.Equal(t, root.LeafID, got.LeafID)
	assert.Nil(t, got.ParentID)
}

func TestAdvanceLeafVersionGuard(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	root := &models.Assignment{
		TemplateID: f.tplA,
		AssignedTo: f.alice,
		AssignedBy: f.distributor,
		Status:     models.StatusPending,
	}
	_, err := f.assignments.Create(ctx, root)
	require.NoError(t, err)

	child := &models.Assignment{
		TemplateID: f.tplA,
		RootID:     root.ID,
		ParentID:   &root.ID,
		AssignedTo: f.bob,
		AssignedBy: f.alice,
		Status:     models.StatusPending,
	}
	_, err = f.assignments.Create(ctx, child)
	require.NoError(t, err)

	require.NoError(t, f.assignments.AdvanceLeaf(ctx, root.ID, child.ID, 0))

	got, err := f.assignments.FindByID(ctx, root.ID)
	require.NoError(t, err)
	assert.Equal(t, child.ID, got.LeafID)
	assert.EqualValues(t, 1, got.ChainVersion)

	// A writer still holding the old version loses.
	err = f.assignments.AdvanceLeaf(ctx, root.ID, child.ID, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)

	err = f.assignments.BumpVersion(ctx, root.ID, 0)
	assert.ErrorIs(t, err, ErrVersionConflict)

	require.NoError(t, f.assignments.BumpVersion(ctx, root.ID, 1))
}

func TestFindLatestForActor(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	none, err := f.assignments.FindLatestForActor(ctx, f.tplA, f.alice)
	require.NoError(t, err)
	assert.Nil(t, none)

	first := &models.Assignment{
		TemplateID: f.tplA,
		AssignedTo: f.alice,
		AssignedBy: f.distributor,
		Status:     models.StatusSubmitted,
		CreatedAt:  time.Now().UTC().Add(-time.Minute),
	}
	_, err = f.assignments.Create(ctx, first)
	require.NoError(t, err)
	second := &models.Assignment{
		TemplateID: f.tplA,
		AssignedTo: f.alice,
		AssignedBy: f.distributor,
		Status:     models.StatusEdited,
	}
	_, err = f.assignments.Create(ctx, second)
	require.NoError(t, err)

	got, err := f.assignments.FindLatestForActor(ctx, f.tplA, f.alice)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEdited, got.Status)

	// Other templates do not leak in.
	none, err = f.assignments.FindLatestForActor(ctx, f.tplB, f.alice)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestUpdateRouteAndStatus(t *testing.T) {
	f := newRepoFixture(t)
	ctx := context.Background()

	a := &models.Assignment{
		TemplateID: f.tplA,
		AssignedTo: f.alice,
		AssignedBy: f.distributor,
		Status:     models.StatusEdited,
	}
	_, err := f.assignments.Create(ctx, a)
	require.NoError(t, err)

	require.NoError(t, f.assignments.UpdateStatus(ctx, a.ID, models.StatusFinalized, "done"))
	require.NoError(t, f.assignments.UpdateRoute(ctx, a.ID, f.bob))

	got, err := f.assignments.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinalized, got.Status)
	assert.Equal(t, "done", got.Remarks)
	require.NotNil(t, got.RouteTo)
	assert.Equal(t, f.bob, *got.RouteTo)

	assert.ErrorIs(t, f.assignments.UpdateStatus(ctx, "missing", models.StatusEdited, ""), ErrNotFound)
}
