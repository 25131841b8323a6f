// Package errors provides predefined sentinel errors for common failure cases.
package errors

// Configuration and input-validation errors.
var (
	// ErrUnknownLimit indicates a limit name that is not one of the
	// registered resource kinds.
	ErrUnknownLimit = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "unknown resource limit",
	}

	// ErrNoCommand indicates no target command was given after the `--`
	// separator.
	ErrNoCommand = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "no command specified after --",
	}

	// ErrMissingSeparator indicates the command line lacked a `--`
	// separator between fuzzer flags and the target command.
	ErrMissingSeparator = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "missing -- command separator",
	}

	// ErrFilterCompile indicates a filter pattern failed to compile as a
	// regular expression.
	ErrFilterCompile = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "failed to compile filter pattern",
	}

	// ErrFilterFileUnreadable indicates the filter file could not be
	// opened or read.
	ErrFilterFileUnreadable = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "failed to read filter file",
	}

	// ErrStdinUnreadable indicates the requested stdin file could not be
	// opened.
	ErrStdinUnreadable = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "failed to open stdin file",
	}

	// ErrScriptFileUnwritable indicates the replay script destination
	// could not be created or opened for writing.
	ErrScriptFileUnwritable = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "failed to open replay script for writing",
	}

	// ErrInvalidTimeout indicates a non-positive or unparseable timeout
	// value.
	ErrInvalidTimeout = &FuzzError{
		Kind:   ErrConfiguration,
		Detail: "invalid timeout value",
	}
)

// Spawn errors — the parent-side plumbing around a child run.
var (
	// ErrPipeCreate indicates the stdout/stderr pipe pair could not be
	// created.
	ErrPipeCreate = &FuzzError{
		Kind:   ErrSpawn,
		Detail: "failed to create output pipe",
	}

	// ErrForkFailed indicates the fork/exec call itself failed.
	ErrForkFailed = &FuzzError{
		Kind:   ErrSpawn,
		Detail: "failed to fork child process",
	}

	// ErrReexecFailed indicates the self re-exec used to apply rlimits
	// before the target exec could not be started.
	ErrReexecFailed = &FuzzError{
		Kind:   ErrSpawn,
		Detail: "failed to re-exec rlimit init helper",
	}

	// ErrSelfPathUnresolvable indicates the running binary's own path
	// could not be determined for the re-exec step.
	ErrSelfPathUnresolvable = &FuzzError{
		Kind:   ErrSpawn,
		Detail: "failed to resolve executable path for re-exec",
	}
)

// Child errors — outcomes of the spawned process itself.
var (
	// ErrChildExecFailed indicates the target command could not be
	// exec'd (not found, not executable, etc).
	ErrChildExecFailed = &FuzzError{
		Kind:   ErrChild,
		Detail: "failed to exec target command",
	}

	// ErrChildSetrlimitFailed indicates the re-exec'd child could not
	// apply one of its rlimits before exec'ing the real target.
	ErrChildSetrlimitFailed = &FuzzError{
		Kind:   ErrChild,
		Detail: "child failed to apply resource limit",
	}

	// ErrChildTimedOut indicates the child was still running at the wall
	// clock deadline and was killed.
	ErrChildTimedOut = &FuzzError{
		Kind:   ErrChild,
		Detail: "child timed out",
	}
)

// Transient read errors — always retried internally by spawn.
var (
	// ErrReadWouldBlock indicates a non-blocking read returned EAGAIN.
	ErrReadWouldBlock = &FuzzError{
		Kind:   ErrTransientRead,
		Detail: "read would block",
	}

	// ErrReadInterrupted indicates a read or wait call returned EINTR.
	ErrReadInterrupted = &FuzzError{
		Kind:   ErrTransientRead,
		Detail: "interrupted system call",
	}
)

// Internal invariant violations.
var (
	// ErrUnexpectedWaitStatus indicates a reaped process's wait status
	// matched none of the recognized termination cases.
	ErrUnexpectedWaitStatus = &FuzzError{
		Kind:   ErrInternal,
		Detail: "unrecognized wait status",
	}

	// ErrPidMismatch indicates waitid/wait4 reaped a pid other than the
	// one the fuzzer spawned.
	ErrPidMismatch = &FuzzError{
		Kind:   ErrInternal,
		Detail: "reaped pid does not match spawned child",
	}

	// ErrSignalDeliveryFailed indicates a signal could not be delivered
	// to a child's process group, e.g. on timeout.
	ErrSignalDeliveryFailed = &FuzzError{
		Kind:   ErrInternal,
		Detail: "failed to deliver signal to process group",
	}
)
