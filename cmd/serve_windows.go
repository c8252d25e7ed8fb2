//go:build windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// setDaemonAttrs is a no-op on Windows (no Setsid equivalent).
func setDaemonAttrs(_ *exec.Cmd) {}

// shutdownSignals end serve, mcp, and timer watch loops.
func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

// sigTERM maps to process termination on Windows; there is no graceful
// signal for a detached process.
func sigTERM() syscall.Signal { return syscall.SIGKILL }

// sigKILL ends a background server.
func sigKILL() syscall.Signal { return syscall.SIGKILL }
