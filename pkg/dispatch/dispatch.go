// Package dispatch turns a received message into a shell command
// invocation by substituting it into a configured command template.
package dispatch

import (
	"errors"
	"io"
	"os"
	"os/exec"
	"strings"
)

// Placeholder is the literal token in a command template replaced by the
// received message.
const Placeholder = "{}"

// Outcome reports how one command invocation went.
//
// Launched is false when the interpreter itself could not be started, with
// the reason in Err. When Launched is true the interpreter ran to
// completion and Success carries its exit status.
type Outcome struct {
	Command  string
	Launched bool
	Success  bool
	Err      error
}

// Engine invokes a command template through the host shell, synchronously.
// The zero value is not usable; set Template.
type Engine struct {
	Template string

	// Stdout and Stderr default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Substitute replaces every occurrence of the placeholder in template with
// message. The message is inserted verbatim; shell metacharacters it
// contains take effect when the result is run. Callers own that trust
// boundary.
func Substitute(template, message string) string {
	return strings.ReplaceAll(template, Placeholder, message)
}

// Run substitutes message into the engine's template and executes the
// result through the platform shell, blocking until it finishes.
func (e *Engine) Run(message string) Outcome {
	cmdline := Substitute(e.Template, message)

	name, args := shellCommand(cmdline)
	cmd := exec.Command(name, args...)
	cmd.Stdout = e.stdout()
	cmd.Stderr = e.stderr()

	err := cmd.Run()
	var exitErr *exec.ExitError
	switch {
	case err == nil:
		return Outcome{Command: cmdline, Launched: true, Success: true}
	case errors.As(err, &exitErr):
		return Outcome{Command: cmdline, Launched: true, Err: err}
	default:
		return Outcome{Command: cmdline, Err: err}
	}
}

func (e *Engine) stdout() io.Writer {
	if e.Stdout != nil {
		return e.Stdout
	}
	return os.Stdout
}

func (e *Engine) stderr() io.Writer {
	if e.Stderr != nil {
		return e.Stderr
	}
	return os.Stderr
}
