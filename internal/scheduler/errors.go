package scheduler

// profileNotFoundError signals a command for a profile with no registered
// queue, for 404 mapping.
type profileNotFoundError struct{ id string }

func (e profileNotFoundError) Error() string { return "profile not found: " + e.id }

// IsProfileNotFound reports whether the error indicates an unregistered
// profile id.
func IsProfileNotFound(err error) bool {
	_, ok := err.(profileNotFoundError)
	return ok
}

// alreadyStartedError signals a redundant StartAll, for 409 mapping.
type alreadyStartedError struct{}

func (alreadyStartedError) Error() string { return "queues already started" }

// IsAlreadyStarted reports whether err indicates the queues were already
// started.
func IsAlreadyStarted(err error) bool {
	_, ok := err.(alreadyStartedError)
	return ok
}
