package domain

import "errors"

var (
	// ErrSessionNotFound is returned when no usable session exists for a device key.
	ErrSessionNotFound = errors.New("game session not found")
	// ErrParticipantNotFound is returned when an action names an unknown participant.
	ErrParticipantNotFound = errors.New("participant not found in session")
	// ErrQuestionNotFound indicates a reveal was requested for an unknown question id.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidTransition indicates an action that is not legal in the current phase.
	ErrInvalidTransition = errors.New("invalid phase transition")
	// ErrNoSelection is returned when a vote is confirmed without an option picked.
	ErrNoSelection = errors.New("no option selected")
	// ErrInvalidName is returned for empty, overlong, or non-alphanumeric names.
	ErrInvalidName = errors.New("invalid participant name")
	// ErrDuplicateName is returned when two names collide ignoring case.
	ErrDuplicateName = errors.New("duplicate participant name")
	// ErrNoParticipants is returned when a game is started with an empty list.
	ErrNoParticipants = errors.New("at least one participant required")
	// ErrTooManyParticipants is returned when the party exceeds MaxParticipants.
	ErrTooManyParticipants = errors.New("too many participants")
)
