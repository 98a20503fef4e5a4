package domain

import "errors"

var (
	// ErrQuizFinished is returned when the remote service signals the end of a quiz.
	ErrQuizFinished = errors.New("quiz finished")
	// ErrMalformedQuestion indicates a next-question body that is neither a question nor the completion sentinel.
	ErrMalformedQuestion = errors.New("could not read next question")
	// ErrUnauthorized is returned when the remote service rejects the bearer credential (401/403).
	ErrUnauthorized = errors.New("session expired")
	// ErrBusy is returned when an operation of the same class is already in flight.
	ErrBusy = errors.New("operation already in progress")
	// ErrStopped is returned by operations on an engine that has been discarded.
	ErrStopped = errors.New("engine stopped")
	// ErrAlreadySubmitted indicates the current question instance already has an answer.
	ErrAlreadySubmitted = errors.New("answer already submitted")
	// ErrSessionMismatch indicates a session id that is not the engine's active session.
	ErrSessionMismatch = errors.New("session id does not match active session")
	// ErrNoSession is returned when an operation needs a session id that has not been issued yet.
	ErrNoSession = errors.New("no active session")
	// ErrAttemptEnded is returned by operations after the attempt reached FINISHED or ERROR.
	ErrAttemptEnded = errors.New("quiz attempt has ended")
	// ErrNoQuestion is returned when an operation needs a loaded question.
	ErrNoQuestion = errors.New("no question loaded")
	// ErrUpsellRequired indicates the caller lacks the entitlement for AI explanations.
	ErrUpsellRequired = errors.New("premium required")

	// ErrCourseNotFound indicates the course content could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrAttemptNotFound is returned when a remote session id is unknown.
	ErrAttemptNotFound = errors.New("quiz session not found")
	// ErrOptionNotFound indicates a submitted option label is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrNothingToAnswer is returned when an answer arrives before a question was served.
	ErrNothingToAnswer = errors.New("no question awaiting an answer")
)
