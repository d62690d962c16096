package process

import "errors"

var (
	// ErrAlreadyRunning is returned by Start on a running manager.
	ErrAlreadyRunning = errors.New("process: already running")

	// ErrHealthCheckFailed wraps the exit of a process killed by the watchdog.
	ErrHealthCheckFailed = errors.New("process: killed after failed health checks")
)

// RecoverableError lets an exit error declare whether a restart can help.
type RecoverableError interface {
	error
	IsRecoverable() bool
}

// IsRecoverable reports whether err permits a restart. Errors that do not
// implement RecoverableError are treated as recoverable.
func IsRecoverable(err error) bool {
	var re RecoverableError
	if errors.As(err, &re) {
		return re.IsRecoverable()
	}
	return true
}
