package domain

import "errors"

var (
	ErrValidation       = errors.New("validation failed")
	ErrContestNotFound  = errors.New("contest not found")
	ErrInvalidContestID = errors.New("invalid contest id")
	ErrInvalidCode      = errors.New("invalid access code")
	ErrContestInactive  = errors.New("contest is not active")
	ErrContestLocked    = errors.New("contest cannot be modified after activation")
	ErrNotJoined        = errors.New("participant has not joined this contest")
	ErrAlreadyVoted     = errors.New("participant has already voted")
	ErrUnknownCandidate = errors.New("candidate does not belong to this contest")
	ErrAccessCodeTaken  = errors.New("access code already in use")
	ErrForbidden        = errors.New("only the contest organizer can do this")
	ErrInternal         = errors.New("internal server error")
)
