package workflow

import "errors"

// Transition violations are typed so callers can tell which invariant was
// broken. None of them are retried by the engine; ErrConcurrentModification
// is the one a caller may retry after re-reading current state.
var (
	ErrNotCurrentHolder       = errors.New("this form has already been passed to someone else")
	ErrDelegationNotAllowed   = errors.New("delegation is not allowed")
	ErrInvalidTarget          = errors.New("recipient is not eligible for this form")
	ErrAlreadyFinalized       = errors.New("submission has already been finalized")
	ErrChainClosed            = errors.New("submission has already been sent to the distributor")
	ErrApprovalNotAllowed     = errors.New("approval authority required")
	ErrTemplateInactive       = errors.New("form is no longer active or past its deadline")
	ErrConcurrentModification = errors.New("the submission changed while processing, please retry")
	ErrValidationFailed       = errors.New("validation failed")
)
