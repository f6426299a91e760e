// Package pidfile keeps a single worker instance per PID file.
package pidfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrAlreadyRunning is returned when the PID file names a live process.
var ErrAlreadyRunning = errors.New("another instance is already running")

// PIDFile enforces a single running worker per file.
type PIDFile struct {
	path string
}

// New returns a PID file at path.
func New(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Acquire writes the current PID. A stale file left by a dead process is
// replaced.
func (p *PIDFile) Acquire() error {
	if pid, ok := p.read(); ok && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("%w with PID %d", ErrAlreadyRunning, pid)
	}
	if err := os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return fmt.Errorf("write pid file %s: %w", p.path, err)
	}
	return nil
}

// Release removes the file if it still holds our PID.
func (p *PIDFile) Release() error {
	if pid, ok := p.read(); ok && pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(p.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove pid file %s: %w", p.path, err)
	}
	return nil
}

func (p *PIDFile) read() (int, bool) {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || errors.Is(err, syscall.EPERM)
}
