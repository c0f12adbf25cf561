package services

import "errors"

var (
	ErrNotAuthenticated       = errors.New("not authenticated")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrSubmissionFailed       = errors.New("submission failed")
)
