//go:build !windows

package daemon

import (
	"fmt"
	"syscall"
)

// alive reports whether pid names a live process. Signal 0 checks existence
// without delivering anything.
func alive(pid int) bool {
	return syscall.Kill(pid, 0) == nil
}

// Signal sends sig to the process in the record.
func (p *PIDFile) Signal(sig syscall.Signal) error {
	rec, err := p.Read()
	if err != nil {
		return fmt.Errorf("read PID file: %w", err)
	}
	return syscall.Kill(rec.PID, sig)
}
