// Package spawn is the Child Spawner: it forks a child with configured
// stdin/stdout/stderr pipes, a resource-limit vector, its own process
// group, and a parent-death signal; execs the target command; collects
// output non-blockingly with a wall-clock timeout; reaps the child and
// returns its termination descriptor plus raw captured bytes.
//
// Grounded on original_source/proc.c's read_output_subprocess for the
// pipe/non-blocking-read/10ms-poll/reap-with-timeout-recheck shape, and on
// the teacher's container/create.go + linux/namespace.go idioms for
// building syscall.SysProcAttr and reaching for golang.org/x/sys/unix where
// os/exec doesn't expose the needed primitives directly.
package spawn

import (
	"bytes"
	"context"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	ferrors "limitfuzz/errors"
	flog "limitfuzz/logging"
	"limitfuzz/rlimit"
)

// pollInterval paces the non-blocking read loop, matching
// original_source/proc.c's g_usleep(G_USEC_PER_SEC / 100).
const pollInterval = 10 * time.Millisecond

// readChunk is the per-read buffer size; generous enough that a child
// printing megabytes of output still drains in a bounded number of polls.
const readChunk = 64 * 1024

// TermKind tags how a child ended.
type TermKind int

const (
	// Exited means the child called exit() or returned from main.
	Exited TermKind = iota
	// Killed means the child was terminated by a signal, no core.
	Killed
	// Dumped means the child was terminated by a signal and dumped core.
	Dumped
)

// TerminationInfo describes how a child ended: Code is the exit status
// for Exited, or the signal number for Killed/Dumped.
type TerminationInfo struct {
	Kind TermKind
	Code int
}

// Config describes one child invocation.
type Config struct {
	// Argv is the target command and its arguments. Argv[0] is resolved
	// using the operator's PATH, matching execvpe semantics.
	Argv []string
	// Env is the environment passed to the target command.
	Env []string
	// Limits is the resource-limit vector to apply to the child before
	// it execs the target command.
	Limits rlimit.LimitVector
	// Stdin is reused across repeated spawns; Spawn seeks it to 0 before
	// each run.
	Stdin *os.File
	// Timeout bounds how long the child may run before being killed.
	Timeout time.Duration
}

// Result is what one spawn produced.
type Result struct {
	Term     TerminationInfo
	Stdout   []byte
	Stderr   []byte
	TimedOut bool
}

// reexecFlag is the hidden subcommand argument used to re-exec the
// fuzzer's own binary as a single-threaded rlimit-applying helper between
// fork and the target exec. See RunInit.
const reexecFlag = "__rlimit_init__"

// Spawn runs one child to completion (or until killed by timeout) and
// returns its termination descriptor plus raw captured stdout/stderr.
// Filtering and digestion happen afterward, in the filter and fingerprint
// packages, so a single capture can be reused if a caller ever needs it.
func Spawn(ctx context.Context, cfg Config) (Result, error) {
	self, err := os.Executable()
	if err != nil {
		return Result{}, ferrors.Wrap(err, ferrors.ErrSpawn, "resolve self path for re-exec")
	}

	if cfg.Stdin != nil {
		if _, err := cfg.Stdin.Seek(0, io.SeekStart); err != nil {
			return Result{}, ferrors.Wrap(err, ferrors.ErrSpawn, "seek stdin")
		}
	}

	var outR, outW, errR, errW int
	if outR, outW, err = rawPipe(); err != nil {
		return Result{}, ferrors.Wrap(err, ferrors.ErrSpawn, "create stdout pipe")
	}
	if errR, errW, err = rawPipe(); err != nil {
		unix.Close(outR)
		unix.Close(outW)
		return Result{}, ferrors.Wrap(err, ferrors.ErrSpawn, "create stderr pipe")
	}

	args := append([]string{reexecFlag}, cfg.Argv...)
	cmd := exec.Command(self, args...)
	cmd.Stdin = cfg.Stdin
	cmd.Stdout = os.NewFile(uintptr(outW), "spawn-stdout-write")
	cmd.Stderr = os.NewFile(uintptr(errW), "spawn-stderr-write")
	cmd.Env = append(append([]string{}, cfg.Env...), rlimit.EnvKey+"="+rlimit.Encode(cfg.Limits))
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setpgid:   true,
		Pdeathsig: syscall.SIGKILL,
	}

	if err := cmd.Start(); err != nil {
		unix.Close(outR)
		unix.Close(errR)
		cmd.Stdout.(*os.File).Close()
		cmd.Stderr.(*os.File).Close()
		return Result{}, ferrors.Wrap(err, ferrors.ErrSpawn, "fork child")
	}
	// The child owns the write ends now; drop the parent's copies.
	cmd.Stdout.(*os.File).Close()
	cmd.Stderr.(*os.File).Close()

	if err := unix.SetNonblock(outR, true); err != nil {
		flog.Warn("failed to set stdout pipe nonblocking", "error", err)
	}
	if err := unix.SetNonblock(errR, true); err != nil {
		flog.Warn("failed to set stderr pipe nonblocking", "error", err)
	}
	defer unix.Close(outR)
	defer unix.Close(errR)

	pid := cmd.Process.Pid
	deadline := time.Now().Add(cfg.Timeout)
	var outBuf, errBuf bytes.Buffer
	outDone, errDone := false, false
	timedOut := false
	buf := make([]byte, readChunk)

	for !outDone || !errDone {
		if !outDone {
			n, done, err := drainOnce(outR, buf)
			if err != nil {
				return Result{}, ferrors.Wrap(err, ferrors.ErrInternal, "read stdout pipe")
			}
			outBuf.Write(buf[:n])
			outDone = done
		}
		if !errDone {
			n, done, err := drainOnce(errR, buf)
			if err != nil {
				return Result{}, ferrors.Wrap(err, ferrors.ErrInternal, "read stderr pipe")
			}
			errBuf.Write(buf[:n])
			errDone = done
		}

		if !outDone || !errDone {
			cancelled := ctx.Err() != nil
			if time.Now().After(deadline) || cancelled {
				timedOut = timedOut || !cancelled
				if err := unix.Kill(-pid, unix.SIGKILL); err != nil && err != unix.ESRCH {
					flog.Warn("failed to signal process group on timeout", "pid", pid, "error", err)
				}
			}
			time.Sleep(pollInterval)
		}
	}

	term, err := reap(pid, deadline, &timedOut)
	if err != nil {
		return Result{}, err
	}

	return Result{Term: term, Stdout: outBuf.Bytes(), Stderr: errBuf.Bytes(), TimedOut: timedOut}, nil
}

// drainOnce performs one non-blocking read attempt. done is true on EOF.
func drainOnce(fd int, buf []byte) (n int, done bool, err error) {
	n, err = unix.Read(fd, buf)
	switch {
	case err == nil && n == 0:
		return 0, true, nil
	case err == nil:
		return n, false, nil
	case err == unix.EAGAIN || err == unix.EINTR:
		return 0, false, nil
	default:
		return 0, false, err
	}
}

// reap waits for pid to exit, retrying on EINTR. While the child is still
// running it re-checks deadline and re-sends SIGKILL to its process group.
func reap(pid int, deadline time.Time, timedOut *bool) (TerminationInfo, error) {
	var ws unix.WaitStatus
	for {
		wpid, err := unix.Wait4(pid, &ws, unix.WNOHANG, nil)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return TerminationInfo{}, ferrors.Wrap(err, ferrors.ErrInternal, "wait for child")
		}
		if wpid == 0 {
			if time.Now().After(deadline) {
				*timedOut = true
				unix.Kill(-pid, unix.SIGKILL)
			}
			time.Sleep(pollInterval)
			continue
		}
		if wpid != pid {
			return TerminationInfo{}, ferrors.ErrPidMismatch
		}
		break
	}

	switch {
	case ws.Exited():
		return TerminationInfo{Kind: Exited, Code: ws.ExitStatus()}, nil
	case ws.Signaled() && ws.CoreDump():
		return TerminationInfo{Kind: Dumped, Code: int(ws.Signal())}, nil
	case ws.Signaled():
		return TerminationInfo{Kind: Killed, Code: int(ws.Signal())}, nil
	default:
		return TerminationInfo{}, ferrors.ErrUnexpectedWaitStatus
	}
}

// rawPipe creates a plain blocking pipe via a raw syscall rather than
// os.Pipe, so the read end stays outside the Go runtime's netpoller: the
// poll loop above needs raw EAGAIN/EINTR semantics on reads, which
// os.File.Fd() would silently undo by forcing the descriptor back into
// blocking mode.
func rawPipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return 0, 0, err
	}
	return fds[0], fds[1], nil
}
