package domain

import "errors"

var (
	// ErrRemoteUnavailable is a transient network or provider outage.
	ErrRemoteUnavailable = errors.New("remote calendar unavailable")
	// ErrRemoteRejected means the provider refused the request as malformed or unauthorized.
	ErrRemoteRejected = errors.New("remote calendar rejected request")
	// ErrRemoteNotFound means the referenced remote event no longer exists.
	ErrRemoteNotFound = errors.New("remote event not found")
	// ErrPersistence means the data store failed to read or write a record.
	ErrPersistence = errors.New("persistence error")
	// ErrInvalidSession is returned for sessions that cannot be turned into an event.
	ErrInvalidSession = errors.New("invalid session")
	// ErrNotFound is returned by stores when a record does not exist.
	ErrNotFound = errors.New("record not found")
)

// IsRemote reports whether err belongs to the remote calendar error family.
func IsRemote(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable) ||
		errors.Is(err, ErrRemoteRejected) ||
		errors.Is(err, ErrRemoteNotFound)
}
