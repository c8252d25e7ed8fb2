// Package daemon tracks the background engine server through a record file
// in the state directory.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrNotRunning is returned when no live server holds the record.
var ErrNotRunning = errors.New("server not running")

// Record describes a running server process.
type Record struct {
	PID       int       `json:"pid"`
	Addr      string    `json:"addr"`
	StartedAt time.Time `json:"started_at"`
}

// PIDFile manages the server record file.
type PIDFile struct {
	Path string
}

// AlreadyRunningError reports the live server holding the record.
type AlreadyRunningError struct {
	Record Record
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("server already running (pid %d, %s)", e.Record.PID, e.Record.Addr)
}

// NewPIDFile creates a PIDFile manager for the given path.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{Path: path}
}

// Acquire writes a record for the current process. It fails with
// *AlreadyRunningError if another live process holds the file; a record
// left by a dead process is replaced.
func (p *PIDFile) Acquire(addr string) error {
	if rec, running := p.IsRunning(); running && rec.PID != os.Getpid() {
		return &AlreadyRunningError{Record: *rec}
	}
	return p.Write(Record{PID: os.Getpid(), Addr: addr, StartedAt: time.Now().UTC()})
}

// Write stores rec, creating the parent directory if needed.
func (p *PIDFile) Write(rec Record) error {
	if err := os.MkdirAll(filepath.Dir(p.Path), 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return os.WriteFile(p.Path, append(data, '\n'), 0o644)
}

// Read loads the record from the file.
func (p *PIDFile) Read() (*Record, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, err
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil || rec.PID <= 0 {
		if err == nil {
			err = errors.New("missing pid")
		}
		return nil, fmt.Errorf("invalid PID file content: %w", err)
	}
	return &rec, nil
}

// Release removes the file if it belongs to the current process.
func (p *PIDFile) Release() error {
	rec, err := p.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if rec.PID != os.Getpid() {
		return nil
	}
	return p.Remove()
}

// Remove deletes the file.
func (p *PIDFile) Remove() error {
	return os.Remove(p.Path)
}

// IsRunning reads the record and reports whether its process is alive.
// The record is nil when the file is missing or unreadable.
func (p *PIDFile) IsRunning() (*Record, bool) {
	rec, err := p.Read()
	if err != nil {
		return nil, false
	}
	return rec, alive(rec.PID)
}
