// Package script is the Script Emitter: on each newly observed output key
// during a limit sweep, it appends one shell line to a replay script
// invoking the cmd/runlimit helper with the triggering limit, value,
// command, and stdin path.
//
// Grounded on spec.md §4.G; the line format mirrors
// original_source/runlimit.c's own argv contract, and the shell-quoting
// follows the teacher's container/exec.go shellQuoteArgs idiom (wrap each
// argument in single quotes, escaping embedded single quotes).
package script

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ferrors "limitfuzz/errors"
	"limitfuzz/rlimit"
)

// Emitter owns one open replay script file for the run's lifetime.
type Emitter struct {
	f  *os.File
	w  *bufio.Writer
	dir string
}

// NewEmitter opens path once, truncating any prior content and writing a
// "#!/bin/sh" header, and resolves the
// directory of the currently-executing binary for use in emitted lines.
func NewEmitter(path string) (*Emitter, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0755)
	if err != nil {
		return nil, ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "open script file", path)
	}
	w := bufio.NewWriter(f)
	if _, err := w.WriteString("#!/bin/sh\n"); err != nil {
		f.Close()
		return nil, ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "write script header", path)
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return nil, ferrors.WrapWithDetail(err, ferrors.ErrConfiguration, "flush script header", path)
	}

	self, err := os.Executable()
	if err != nil {
		f.Close()
		return nil, ferrors.Wrap(err, ferrors.ErrConfiguration, "resolve self path for script emitter")
	}

	return &Emitter{f: f, w: w, dir: filepath.Dir(self)}, nil
}

// Emit appends one line invoking <dir>/runlimit with limit, value, the
// replayed command, and its stdin redirection, then flushes so a crash
// during search still yields a usable partial script.
func (e *Emitter) Emit(limit rlimit.ResourceKind, value uint64, argv []string, stdinPath string) error {
	runlimit := filepath.Join(e.dir, "runlimit")
	line := fmt.Sprintf("%s %s %d %s < %s\n",
		shellQuoteArg(runlimit), rlimit.Name(limit), value, shellQuoteArgs(argv), shellQuoteArg(stdinPath))

	if _, err := e.w.WriteString(line); err != nil {
		return ferrors.Wrap(err, ferrors.ErrInternal, "write script line")
	}
	if err := e.w.Flush(); err != nil {
		return ferrors.Wrap(err, ferrors.ErrInternal, "flush script line")
	}
	return nil
}

// Close flushes and closes the underlying file.
func (e *Emitter) Close() error {
	if err := e.w.Flush(); err != nil {
		e.f.Close()
		return ferrors.Wrap(err, ferrors.ErrInternal, "flush script file")
	}
	if err := e.f.Close(); err != nil {
		return ferrors.Wrap(err, ferrors.ErrInternal, "close script file")
	}
	return nil
}

// shellQuoteArg wraps one argument in single quotes, escaping any embedded
// single quote as '\''.
func shellQuoteArg(arg string) string {
	return "'" + strings.ReplaceAll(arg, "'", `'\''`) + "'"
}

// shellQuoteArgs quotes and joins a whole argument list, space-separated.
func shellQuoteArgs(args []string) string {
	quoted := make([]string, len(args))
	for i, arg := range args {
		quoted[i] = shellQuoteArg(arg)
	}
	return strings.Join(quoted, " ")
}
