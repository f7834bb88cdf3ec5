package domain

import "errors"

var (
	// ErrNotSupported is returned by rescore when the block does not allow rescoring.
	ErrNotSupported = errors.New("rescoring not supported")
	// ErrNotAnswered is returned by rescore or publish when no score was ever recorded.
	ErrNotAnswered = errors.New("problem not answered")
	// ErrBlockNotFound indicates the host has no settings for a block id.
	ErrBlockNotFound = errors.New("block not found")
	// ErrInvalidSettings indicates block settings failed validation.
	ErrInvalidSettings = errors.New("invalid block settings")
	// ErrInvalidScore indicates a score payload that is structurally unusable.
	ErrInvalidScore = errors.New("invalid score")
	// ErrMissingLearner is returned when a user-scoped call carries no learner id.
	ErrMissingLearner = errors.New("missing learner id")
)

// BlockError ties a failure to the block instance it happened on.
type BlockError struct {
	Err     error
	BlockID string
	Message string
}

func (e *BlockError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Err.Error() + ": " + e.BlockID
}

func (e *BlockError) Unwrap() error { return e.Err }
