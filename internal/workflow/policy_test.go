package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/formflow/dms/internal/models"
)

func chainOf(holders ...string) []models.Assignment {
	chain := make([]models.Assignment, 0, len(holders))
	for _, h := range holders {
		chain = append(chain, models.Assignment{AssignedTo: h})
	}
	return chain
}

func TestCanApproveDirectly(t *testing.T) {
	tpl := &models.FormTemplate{CreatedBy: "distributor"}

	assert.True(t, CanApproveDirectly(&models.User{ID: "head", HasApprovalAuthority: true}, tpl))
	assert.True(t, CanApproveDirectly(&models.User{ID: "distributor"}, tpl))
	assert.False(t, CanApproveDirectly(&models.User{ID: "member"}, tpl))
}

func TestEligibleApprovalTargets(t *testing.T) {
	cases := []struct {
		name      string
		chain     []models.Assignment
		actor     *models.User
		creatorID string
		want      []string
	}{
		{
			name:  "empty chain",
			chain: nil,
			actor: &models.User{ID: "x"},
			want:  nil,
		},
		{
			name:  "initiator holds, no prior hops",
			chain: chainOf("alice"),
			actor: &models.User{ID: "alice"},
			want:  nil,
		},
		{
			name:  "initiator as sole prior hop stays eligible",
			chain: chainOf("alice", "bob"),
			actor: &models.User{ID: "bob"},
			want:  []string{"alice"},
		},
		{
			name:  "initiator skipped when an intermediate exists",
			chain: chainOf("alice", "bob", "carol"),
			actor: &models.User{ID: "carol"},
			want:  []string{"bob"},
		},
		{
			name:  "authority sees every prior hop",
			chain: chainOf("alice", "bob", "carol"),
			actor: &models.User{ID: "carol", HasApprovalAuthority: true},
			want:  []string{"alice", "bob"},
		},
		{
			name:      "distributor filtered for non-authority actors",
			chain:     chainOf("alice", "dave", "bob", "carol"),
			actor:     &models.User{ID: "carol"},
			creatorID: "dave",
			want:      []string{"bob"},
		},
		{
			name:  "repeat holders deduplicated",
			chain: chainOf("alice", "bob", "alice", "bob", "carol"),
			actor: &models.User{ID: "carol"},
			want:  []string{"bob"},
		},
		{
			name:  "hops after the actor are invisible",
			chain: chainOf("alice", "bob", "carol", "dave"),
			actor: &models.User{ID: "bob"},
			want:  []string{"alice"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := EligibleApprovalTargets(tc.chain, tc.actor, tc.creatorID)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCanDelegate(t *testing.T) {
	actor := &models.User{ID: "anyone"}
	assert.True(t, CanDelegate(actor, &models.FormTemplate{AllowDelegation: true}))
	assert.False(t, CanDelegate(actor, &models.FormTemplate{AllowDelegation: false}))
}
