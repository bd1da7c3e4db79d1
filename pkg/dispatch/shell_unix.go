//go:build !windows

package dispatch

// shellCommand returns the interpreter invocation for one command line.
func shellCommand(cmdline string) (string, []string) {
	return "sh", []string{"-c", cmdline}
}
