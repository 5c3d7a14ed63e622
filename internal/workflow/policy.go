package workflow

import "github.com/formflow/dms/internal/models"

// Authority policy: pure decision functions over actor capabilities, template
// flags, and chain shape. No I/O, no side effects.

// CanDelegate reports whether the actor may hand off submissions on this
// template at all. Holder checks are the engine's job, not the policy's.
func CanDelegate(actor *models.User, tpl *models.FormTemplate) bool {
	return tpl.AllowDelegation
}

// CanApproveDirectly reports whether the actor may approve a submission
// without being routed to: durable approval authority, or being the
// template's distributor.
func CanApproveDirectly(actor *models.User, tpl *models.FormTemplate) bool {
	return actor.HasApprovalAuthority || actor.ID == tpl.CreatedBy
}

// EligibleApprovalTargets computes which prior chain members the actor may
// route a finalized submission to for sign-off. chain is ordered root first.
//
// Non-authority actors may not skip straight back to the chain initiator when
// an intermediate holder exists; the initiator stays eligible when they are
// the only prior hop, and always for actors holding approval authority.
func EligibleApprovalTargets(chain []models.Assignment, actor *models.User, creatorID string) []string {
	if len(chain) == 0 {
		return nil
	}
	initiator := chain[0].AssignedTo

	var prior []string
	seen := make(map[string]bool)
	for _, node := range chain {
		if node.AssignedTo == actor.ID {
			break
		}
		if !seen[node.AssignedTo] {
			seen[node.AssignedTo] = true
			prior = append(prior, node.AssignedTo)
		}
	}

	if actor.HasApprovalAuthority || len(prior) <= 1 {
		return prior
	}

	targets := make([]string, 0, len(prior))
	for _, id := range prior {
		if id == initiator || id == creatorID {
			continue
		}
		targets = append(targets, id)
	}
	return targets
}
