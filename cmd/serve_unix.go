//go:build !windows

package cmd

import (
	"os"
	"os/exec"
	"syscall"
)

// setDaemonAttrs puts the background server in its own session so it
// outlives the shell that ran 'serve start'.
func setDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}

// shutdownSignals end serve, mcp, and timer watch loops.
func shutdownSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP}
}

// sigTERM asks the background server to shut down cleanly.
func sigTERM() syscall.Signal { return syscall.SIGTERM }

// sigKILL ends a background server that ignored sigTERM.
func sigKILL() syscall.Signal { return syscall.SIGKILL }
