package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formflow/dms/internal/directory"
	"github.com/formflow/dms/internal/models"
	"github.com/formflow/dms/internal/notify"
	"github.com/formflow/dms/internal/repository"
)

// Engine owns the lifecycle of assignment chains. It is the sole writer of
// assignment and submission state: every transition re-resolves the current
// holder under a per-chain lock and commits atomically, so two concurrent
// hand-offs of the same form cannot both succeed.
type Engine struct {
	db    *sql.DB
	dir   *directory.Directory
	sink  notify.Sink
	log   *zap.Logger
	locks *chainLocks
}

func NewEngine(db *sql.DB, dir *directory.Directory, sink notify.Sink, log *zap.Logger) *Engine {
	return &Engine{
		db:    db,
		dir:   dir,
		sink:  sink,
		log:   log,
		locks: newChainLocks(),
	}
}

type SaveDraftRequest struct {
	TemplateID   string         `json:"templateId"`
	AssignmentID string         `json:"assignmentId,omitempty"`
	Data         map[string]any `json:"data"`
}

type DelegateRequest struct {
	TemplateID         string `json:"templateId"`
	ParentAssignmentID string `json:"parentAssignmentId,omitempty"`
	AssignedToID       string `json:"assignedToId"`
	Remarks            string `json:"remarks,omitempty"`
}

type ApproveRequest struct {
	AssignmentID string         `json:"assignmentId"`
	Remarks      string         `json:"remarks,omitempty"`
	Data         map[string]any `json:"data,omitempty"`
}

// SaveDraft persists form data for the actor, creating the root assignment
// on first save. Repeated calls are idempotent: they update the same payload
// record and leave the assignment in the edited state.
func (e *Engine) SaveDraft(ctx context.Context, actor *models.User, req SaveDraftRequest) (*models.Assignment, *models.Submission, error) {
	tpl, err := e.template(ctx, req.TemplateID)
	if err != nil {
		return nil, nil, err
	}

	repo := repository.NewAssignmentRepo(e.db)
	var a *models.Assignment
	if req.AssignmentID != "" {
		a, err = repo.FindByID(ctx, req.AssignmentID)
		if err != nil {
			return nil, nil, err
		}
		if a == nil {
			return nil, nil, fmt.Errorf("assignment %s: %w", req.AssignmentID, repository.ErrNotFound)
		}
		if a.TemplateID != tpl.ID {
			return nil, nil, fmt.Errorf("assignment does not belong to template: %w", ErrValidationFailed)
		}
	} else {
		a, err = repo.FindLatestForActor(ctx, tpl.ID, actor.ID)
		if err != nil {
			return nil, nil, err
		}
		if a != nil && a.Closed() {
			if !tpl.AllowMultipleSubmissions {
				return nil, nil, fmt.Errorf("form already submitted: %w", ErrValidationFailed)
			}
			a = nil
		}
	}

	if a == nil {
		return e.saveDraftNewRoot(ctx, actor, tpl, req.Data)
	}
	return e.saveDraftExisting(ctx, actor, tpl, a, req.Data)
}

// saveDraftNewRoot creates the actor's root assignment together with the
// first payload record.
func (e *Engine) saveDraftNewRoot(ctx context.Context, actor *models.User, tpl *models.FormTemplate, data map[string]any) (*models.Assignment, *models.Submission, error) {
	if !tpl.IsActive || tpl.Expired(time.Now()) {
		return nil, nil, fmt.Errorf("template %s: %w", tpl.ID, ErrTemplateInactive)
	}
	eligible, err := e.dir.IsEligible(ctx, tpl, actor.ID)
	if err != nil {
		return nil, nil, err
	}
	if !eligible {
		return nil, nil, fmt.Errorf("actor %s is not a recipient of this form: %w", actor.ID, ErrInvalidTarget)
	}

	root := &models.Assignment{
		ID:         uuid.New().String(),
		TemplateID: tpl.ID,
		AssignedTo: actor.ID,
		AssignedBy: tpl.CreatedBy,
		Status:     models.StatusEdited,
	}
	sub := &models.Submission{
		TemplateID:  tpl.ID,
		SubmittedBy: actor.ID,
		Status:      models.StatusEdited,
		Data:        data,
	}

	err = e.withChainTx(ctx, root.ID, func(tx *sql.Tx) error {
		if _, err := repository.NewSubmissionRepo(tx).Create(ctx, sub); err != nil {
			return err
		}
		root.DataID = &sub.ID
		_, err := repository.NewAssignmentRepo(tx).Create(ctx, root)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return root, sub, nil
}

func (e *Engine) saveDraftExisting(ctx context.Context, actor *models.User, tpl *models.FormTemplate, stale *models.Assignment, data map[string]any) (*models.Assignment, *models.Submission, error) {
	var (
		a   *models.Assignment
		sub *models.Submission
	)
	err := e.withChainTx(ctx, stale.RootID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)
		subs := repository.NewSubmissionRepo(tx)

		root, fresh, err := e.chainState(ctx, repo, stale.RootID, stale.ID)
		if err != nil {
			return err
		}
		if fresh.Closed() {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrChainClosed)
		}
		if fresh.Status == models.StatusFinalized {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrAlreadyFinalized)
		}

		privileged := CanApproveDirectly(actor, tpl)
		if fresh.Status == models.StatusApproved && !privileged {
			return fmt.Errorf("approved submissions are writable only by an approver: %w", ErrValidationFailed)
		}
		if !privileged && (root.LeafID != fresh.ID || fresh.AssignedTo != actor.ID) {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrNotCurrentHolder)
		}

		// Post-approval edits stay approved; everything else is a draft save.
		status := models.StatusEdited
		if fresh.Status == models.StatusApproved {
			status = models.StatusApproved
		}

		sub, err = e.writePayload(ctx, subs, fresh, actor, data, status)
		if err != nil {
			return err
		}
		if fresh.DataID == nil || *fresh.DataID != sub.ID {
			if err := repo.UpdateData(ctx, fresh.ID, sub.ID); err != nil {
				return err
			}
		}
		if fresh.Status != status {
			if err := repo.UpdateStatus(ctx, fresh.ID, status, fresh.Remarks); err != nil {
				return err
			}
		}
		fresh.Status = status
		fresh.DataID = &sub.ID
		a = fresh

		return mapVersionErr(repo.BumpVersion(ctx, root.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, nil, err
	}
	return a, sub, nil
}

// writePayload applies the edit-lineage rule: a payload already past the
// edited state that belongs to a different actor is preserved and a new
// record started; otherwise the record is updated in place.
func (e *Engine) writePayload(ctx context.Context, subs *repository.SubmissionRepo, a *models.Assignment, actor *models.User, data map[string]any, status models.AssignmentStatus) (*models.Submission, error) {
	if a.DataID != nil {
		sub, err := subs.GetByID(ctx, *a.DataID)
		if err != nil {
			return nil, err
		}
		if sub != nil {
			pastEdited := sub.Status != models.StatusPending && sub.Status != models.StatusEdited
			if !pastEdited || sub.SubmittedBy == actor.ID {
				sub.Data = data
				sub.SubmittedBy = actor.ID
				sub.Status = status
				if err := subs.Update(ctx, sub); err != nil {
					return nil, err
				}
				return sub, nil
			}
		}
	}

	sub := &models.Submission{
		TemplateID:  a.TemplateID,
		SubmittedBy: actor.ID,
		Status:      status,
		Data:        data,
	}
	if _, err := subs.Create(ctx, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// Delegate hands the form off to another eligible recipient by creating a new
// child assignment. The caller must currently hold the ball; a stale parent
// reference means the ball has already moved.
func (e *Engine) Delegate(ctx context.Context, actor *models.User, req DelegateRequest) (*models.Assignment, error) {
	tpl, err := e.template(ctx, req.TemplateID)
	if err != nil {
		return nil, err
	}
	if !tpl.IsActive || tpl.Expired(time.Now()) {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, ErrTemplateInactive)
	}
	if !CanDelegate(actor, tpl) {
		return nil, fmt.Errorf("template %s: %w", tpl.ID, ErrDelegationNotAllowed)
	}
	if req.AssignedToID == actor.ID {
		return nil, fmt.Errorf("cannot delegate to yourself: %w", ErrInvalidTarget)
	}
	eligible, err := e.dir.IsEligible(ctx, tpl, req.AssignedToID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("user %s: %w", req.AssignedToID, ErrInvalidTarget)
	}

	repo := repository.NewAssignmentRepo(e.db)
	var parent *models.Assignment
	if req.ParentAssignmentID != "" {
		parent, err = repo.FindByID(ctx, req.ParentAssignmentID)
		if err != nil {
			return nil, err
		}
		if parent == nil {
			return nil, fmt.Errorf("assignment %s: %w", req.ParentAssignmentID, repository.ErrNotFound)
		}
		if parent.TemplateID != tpl.ID {
			return nil, fmt.Errorf("assignment does not belong to template: %w", ErrValidationFailed)
		}
	} else {
		parent, err = repo.FindLatestForActor(ctx, tpl.ID, actor.ID)
		if err != nil {
			return nil, err
		}
	}

	if parent == nil {
		return e.delegateNewRoot(ctx, actor, tpl, req)
	}
	return e.delegateFrom(ctx, actor, tpl, parent, req)
}

// delegateNewRoot covers an initial recipient passing the form on before ever
// saving a draft: their root is created implicitly so custody history keeps
// the initial hand-off.
func (e *Engine) delegateNewRoot(ctx context.Context, actor *models.User, tpl *models.FormTemplate, req DelegateRequest) (*models.Assignment, error) {
	eligible, err := e.dir.IsEligible(ctx, tpl, actor.ID)
	if err != nil {
		return nil, err
	}
	if !eligible {
		return nil, fmt.Errorf("actor %s: %w", actor.ID, ErrNotCurrentHolder)
	}

	root := &models.Assignment{
		ID:         uuid.New().String(),
		TemplateID: tpl.ID,
		AssignedTo: actor.ID,
		AssignedBy: tpl.CreatedBy,
		Status:     models.StatusPending,
	}
	var child *models.Assignment

	err = e.withChainTx(ctx, root.ID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)
		if _, err := repo.Create(ctx, root); err != nil {
			return err
		}
		child = childOf(root, actor.ID, req)
		if _, err := repo.Create(ctx, child); err != nil {
			return err
		}
		return mapVersionErr(repo.AdvanceLeaf(ctx, root.ID, child.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, err
	}

	e.emit(notify.Event{
		Type:         notify.EventDelegated,
		TemplateID:   tpl.ID,
		AssignmentID: child.ID,
		RootID:       root.ID,
		ActorID:      actor.ID,
		TargetID:     req.AssignedToID,
		Remarks:      req.Remarks,
	})
	return child, nil
}

func (e *Engine) delegateFrom(ctx context.Context, actor *models.User, tpl *models.FormTemplate, stale *models.Assignment, req DelegateRequest) (*models.Assignment, error) {
	var child *models.Assignment
	err := e.withChainTx(ctx, stale.RootID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)

		root, fresh, err := e.chainState(ctx, repo, stale.RootID, stale.ID)
		if err != nil {
			return err
		}
		if fresh.Closed() {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrChainClosed)
		}
		// The parent must still be the chain's leaf: a newer child means the
		// ball already moved and this delegation lost the race.
		if root.LeafID != fresh.ID || fresh.AssignedTo != actor.ID {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrNotCurrentHolder)
		}
		switch fresh.Status {
		case models.StatusApproved:
			return fmt.Errorf("chain is frozen after approval: %w", ErrDelegationNotAllowed)
		case models.StatusFinalized:
			return fmt.Errorf("finalized submissions are routed for sign-off, not delegated: %w", ErrAlreadyFinalized)
		}

		child = childOf(fresh, actor.ID, req)
		if _, err := repo.Create(ctx, child); err != nil {
			return err
		}
		return mapVersionErr(repo.AdvanceLeaf(ctx, root.ID, child.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, err
	}

	e.emit(notify.Event{
		Type:         notify.EventDelegated,
		TemplateID:   tpl.ID,
		AssignmentID: child.ID,
		RootID:       child.RootID,
		ActorID:      actor.ID,
		TargetID:     req.AssignedToID,
		Remarks:      req.Remarks,
	})
	return child, nil
}

func childOf(parent *models.Assignment, actorID string, req DelegateRequest) *models.Assignment {
	parentID := parent.ID
	return &models.Assignment{
		TemplateID: parent.TemplateID,
		RootID:     parent.RootID,
		ParentID:   &parentID,
		AssignedTo: req.AssignedToID,
		AssignedBy: actorID,
		DataID:     parent.DataID,
		Status:     models.StatusPending,
		Remarks:    req.Remarks,
	}
}

// MarkFinal freezes the current holder's draft. Finalization is a
// forward-only gate: there is no un-finalize.
func (e *Engine) MarkFinal(ctx context.Context, actor *models.User, assignmentID, remarks string) (*models.Assignment, error) {
	stale, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	var a *models.Assignment
	err = e.withChainTx(ctx, stale.RootID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)

		root, fresh, err := e.chainState(ctx, repo, stale.RootID, stale.ID)
		if err != nil {
			return err
		}
		switch fresh.Status {
		case models.StatusSubmitted:
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrChainClosed)
		case models.StatusFinalized:
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrAlreadyFinalized)
		case models.StatusApproved:
			return fmt.Errorf("already approved: %w", ErrValidationFailed)
		case models.StatusPending:
			return fmt.Errorf("no saved draft to finalize: %w", ErrValidationFailed)
		}
		if root.LeafID != fresh.ID || fresh.AssignedTo != actor.ID {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrNotCurrentHolder)
		}

		if err := repo.UpdateStatus(ctx, fresh.ID, models.StatusFinalized, remarks); err != nil {
			return err
		}
		if fresh.DataID != nil {
			if err := repository.NewSubmissionRepo(tx).UpdateStatus(ctx, *fresh.DataID, models.StatusFinalized); err != nil {
				return err
			}
		}
		fresh.Status = models.StatusFinalized
		fresh.Remarks = remarks
		a = fresh

		return mapVersionErr(repo.BumpVersion(ctx, root.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, err
	}

	e.emit(notify.Event{
		Type:         notify.EventFinalized,
		TemplateID:   a.TemplateID,
		AssignmentID: a.ID,
		RootID:       a.RootID,
		ActorID:      actor.ID,
		Remarks:      remarks,
	})
	return a, nil
}

// Approve signs off a submission. The payload save happens first inside the
// same transaction: if it fails, the approval aborts rather than approving
// stale data. After approval the chain is frozen against further delegation.
func (e *Engine) Approve(ctx context.Context, actor *models.User, req ApproveRequest) (*models.Assignment, error) {
	stale, err := e.assignment(ctx, req.AssignmentID)
	if err != nil {
		return nil, err
	}
	tpl, err := e.template(ctx, stale.TemplateID)
	if err != nil {
		return nil, err
	}
	if !CanApproveDirectly(actor, tpl) {
		return nil, fmt.Errorf("actor %s: %w", actor.ID, ErrApprovalNotAllowed)
	}

	var a *models.Assignment
	err = e.withChainTx(ctx, stale.RootID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)
		subs := repository.NewSubmissionRepo(tx)

		root, fresh, err := e.chainState(ctx, repo, stale.RootID, stale.ID)
		if err != nil {
			return err
		}
		switch fresh.Status {
		case models.StatusSubmitted:
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrChainClosed)
		case models.StatusApproved:
			return fmt.Errorf("already approved: %w", ErrValidationFailed)
		case models.StatusPending:
			return fmt.Errorf("no saved draft to approve: %w", ErrValidationFailed)
		}
		if fresh.DataID == nil {
			return fmt.Errorf("no payload to approve: %w", ErrValidationFailed)
		}

		sub, err := subs.GetByID(ctx, *fresh.DataID)
		if err != nil {
			return err
		}
		if sub == nil {
			return fmt.Errorf("payload %s: %w", *fresh.DataID, repository.ErrNotFound)
		}
		if len(req.Data) > 0 {
			sub.Data = req.Data
		}
		sub.Status = models.StatusApproved
		if err := subs.Update(ctx, sub); err != nil {
			return fmt.Errorf("save payload before approval: %w", err)
		}

		if err := repo.UpdateStatus(ctx, fresh.ID, models.StatusApproved, req.Remarks); err != nil {
			return err
		}
		fresh.Status = models.StatusApproved
		fresh.Remarks = req.Remarks
		a = fresh

		return mapVersionErr(repo.BumpVersion(ctx, root.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, err
	}

	e.emit(notify.Event{
		Type:         notify.EventApproved,
		TemplateID:   a.TemplateID,
		AssignmentID: a.ID,
		RootID:       a.RootID,
		ActorID:      actor.ID,
		Remarks:      req.Remarks,
	})
	return a, nil
}

// MarkBack routes a finalized submission to a specific prior holder for
// sign-off. It records a forward pointer only; the assignment's own state
// machine is untouched.
func (e *Engine) MarkBack(ctx context.Context, actor *models.User, assignmentID, targetActorID, remarks string) (*models.Assignment, error) {
	stale, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	tpl, err := e.template(ctx, stale.TemplateID)
	if err != nil {
		return nil, err
	}

	var a *models.Assignment
	err = e.withChainTx(ctx, stale.RootID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)

		root, fresh, err := e.chainState(ctx, repo, stale.RootID, stale.ID)
		if err != nil {
			return err
		}
		switch fresh.Status {
		case models.StatusSubmitted:
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrChainClosed)
		case models.StatusApproved:
			return fmt.Errorf("already approved, no sign-off routing needed: %w", ErrValidationFailed)
		}
		if fresh.Status != models.StatusFinalized {
			return fmt.Errorf("only finalized submissions can be sent for approval: %w", ErrValidationFailed)
		}
		if root.LeafID != fresh.ID || fresh.AssignedTo != actor.ID {
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrNotCurrentHolder)
		}

		nodes, err := repo.FindByRoot(ctx, root.ID)
		if err != nil {
			return err
		}
		allowed := EligibleApprovalTargets(orderChain(nodes), actor, tpl.CreatedBy)
		found := false
		for _, id := range allowed {
			if id == targetActorID {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("user %s is not an eligible approver here: %w", targetActorID, ErrInvalidTarget)
		}

		if err := repo.UpdateRoute(ctx, fresh.ID, targetActorID); err != nil {
			return err
		}
		fresh.RouteTo = &targetActorID
		a = fresh

		return mapVersionErr(repo.BumpVersion(ctx, root.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, err
	}

	e.emit(notify.Event{
		Type:         notify.EventRouted,
		TemplateID:   a.TemplateID,
		AssignmentID: a.ID,
		RootID:       a.RootID,
		ActorID:      actor.ID,
		TargetID:     targetActorID,
		Remarks:      remarks,
	})
	return a, nil
}

// SubmitToDistributor pushes the submission back to the template's
// distributor. Terminal: the chain accepts no further mutation afterwards.
// When the template disables delegation entirely, the current holder may
// short-circuit straight from the edited state.
func (e *Engine) SubmitToDistributor(ctx context.Context, actor *models.User, assignmentID, remarks string) (*models.Assignment, error) {
	stale, err := e.assignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	tpl, err := e.template(ctx, stale.TemplateID)
	if err != nil {
		return nil, err
	}

	var a *models.Assignment
	err = e.withChainTx(ctx, stale.RootID, func(tx *sql.Tx) error {
		repo := repository.NewAssignmentRepo(tx)

		root, fresh, err := e.chainState(ctx, repo, stale.RootID, stale.ID)
		if err != nil {
			return err
		}

		isHolder := root.LeafID == fresh.ID && fresh.AssignedTo == actor.ID
		switch fresh.Status {
		case models.StatusSubmitted:
			return fmt.Errorf("assignment %s: %w", fresh.ID, ErrChainClosed)
		case models.StatusApproved:
			if !isHolder && !CanApproveDirectly(actor, tpl) {
				return fmt.Errorf("assignment %s: %w", fresh.ID, ErrNotCurrentHolder)
			}
		case models.StatusEdited:
			if tpl.AllowDelegation {
				return fmt.Errorf("submission must be approved first: %w", ErrValidationFailed)
			}
			if !isHolder {
				return fmt.Errorf("assignment %s: %w", fresh.ID, ErrNotCurrentHolder)
			}
		default:
			return fmt.Errorf("submission is awaiting approval: %w", ErrValidationFailed)
		}

		if err := repo.UpdateStatus(ctx, fresh.ID, models.StatusSubmitted, remarks); err != nil {
			return err
		}
		if fresh.DataID != nil {
			if err := repository.NewSubmissionRepo(tx).UpdateStatus(ctx, *fresh.DataID, models.StatusSubmitted); err != nil {
				return err
			}
		}
		fresh.Status = models.StatusSubmitted
		fresh.Remarks = remarks
		a = fresh

		return mapVersionErr(repo.BumpVersion(ctx, root.ID, root.ChainVersion))
	})
	if err != nil {
		return nil, err
	}

	e.emit(notify.Event{
		Type:         notify.EventSubmitted,
		TemplateID:   a.TemplateID,
		AssignmentID: a.ID,
		RootID:       a.RootID,
		ActorID:      actor.ID,
		TargetID:     tpl.CreatedBy,
		Remarks:      remarks,
	})
	return a, nil
}

// withChainTx serializes a mutation on one chain: per-root lock around a
// single transaction. Independent chains proceed fully in parallel.
func (e *Engine) withChainTx(ctx context.Context, rootID string, fn func(tx *sql.Tx) error) error {
	unlock := e.locks.Acquire(rootID)
	defer unlock()

	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transition: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transition: %w", err)
	}
	return nil
}

// chainState re-reads the chain root and the target assignment inside the
// lock. Client-side state is never trusted: the holder may have changed
// between page load and action submission.
func (e *Engine) chainState(ctx context.Context, repo *repository.AssignmentRepo, rootID, assignmentID string) (root, a *models.Assignment, err error) {
	root, err = repo.FindByID(ctx, rootID)
	if err != nil {
		return nil, nil, err
	}
	if root == nil {
		return nil, nil, fmt.Errorf("chain root %s: %w", rootID, repository.ErrNotFound)
	}
	if assignmentID == rootID {
		return root, root, nil
	}
	a, err = repo.FindByID(ctx, assignmentID)
	if err != nil {
		return nil, nil, err
	}
	if a == nil {
		return nil, nil, fmt.Errorf("assignment %s: %w", assignmentID, repository.ErrNotFound)
	}
	return root, a, nil
}

func (e *Engine) template(ctx context.Context, id string) (*models.FormTemplate, error) {
	tpl, err := repository.NewTemplateRepo(e.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, fmt.Errorf("template %s: %w", id, repository.ErrNotFound)
	}
	return tpl, nil
}

func (e *Engine) assignment(ctx context.Context, id string) (*models.Assignment, error) {
	a, err := repository.NewAssignmentRepo(e.db).FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, fmt.Errorf("assignment %s: %w", id, repository.ErrNotFound)
	}
	return a, nil
}

func (e *Engine) emit(event notify.Event) {
	event.At = time.Now().UTC()
	if err := e.sink.Publish(context.Background(), event); err != nil {
		e.log.Warn("workflow event publish failed",
			zap.String("type", event.Type),
			zap.String("assignmentId", event.AssignmentID),
			zap.Error(err))
	}
}

func mapVersionErr(err error) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return fmt.Errorf("chain moved during transition: %w", ErrConcurrentModification)
	}
	return err
}
