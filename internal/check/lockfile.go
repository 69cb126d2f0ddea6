package check

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// ErrLockHeld is returned when another check run holds the lock file.
var ErrLockHeld = errors.New("another creep run is already in progress")

// ErrNoLockFile is returned when no lock file exists.
var ErrNoLockFile = errors.New("no lock file found")

// AcquireLockFile writes the current process ID to the lock file. A lock
// file left by a dead process is taken over silently.
func AcquireLockFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create lock file directory: %w", err)
	}

	existingPID, err := ReadLockFile(path)
	if err == nil && existingPID > 0 {
		if isProcessRunning(existingPID) {
			return ErrLockHeld
		}
		// Stale lock, overwrite it
	}

	content := fmt.Sprintf("%d\n", os.Getpid())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// ReadLockFile reads the PID from the lock file.
func ReadLockFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, ErrNoLockFile
		}
		return 0, fmt.Errorf("failed to read lock file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid lock file content: %w", err)
	}
	return pid, nil
}

// ReleaseLockFile removes the lock file. A missing file is not an error.
func ReleaseLockFile(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// isProcessRunning checks if a process with the given PID is running.
func isProcessRunning(pid int) bool {
	if pid <= 0 {
		return false
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}

	// On Unix, FindProcess always succeeds, so signal 0 probes liveness
	err = process.Signal(syscall.Signal(0))
	return err == nil
}
