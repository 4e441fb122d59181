package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
	"time"

	"github.com/Iron-Ham/photogram/internal/logging"
)

// LockSuffix is appended to the output path to form the lock file path
const LockSuffix = ".photogram.lock"

// ErrOutputLocked is returned when another live run is writing the same output
var ErrOutputLocked = errors.New("output is locked by another run")

// unreadableLockAge is how long a lock that does not parse is left alone. A
// run writes its lock right after creating it, so only a crashed run leaves
// one behind for longer.
const unreadableLockAge = 2 * time.Second

// Lock guards an output path for the duration of a run
type Lock struct {
	SessionID string    `json:"session_id"`
	Output    string    `json:"output"`
	PID       int       `json:"pid"`
	Hostname  string    `json:"hostname"`
	StartedAt time.Time `json:"started_at"`

	lockFile string
	logger   *logging.Logger
}

// LockPath returns the lock file used for output.
func LockPath(output string) string {
	return output + LockSuffix
}

// AcquireLock takes the lock for output. A lock left by a process that is no
// longer running is replaced, as is an empty or unparseable lock file left by
// a run that crashed while writing it. Returns ErrOutputLocked if a live process holds it.
func AcquireLock(output, sessionID string, logger *logging.Logger) (*Lock, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	lockPath := LockPath(output)

	existing, err := ReadLock(lockPath)
	switch {
	case err == nil:
		if isProcessAlive(existing.PID) {
			logger.Error("failed to acquire lock",
				"output", output,
				"lock", lockPath,
				"holder_pid", existing.PID,
				"holder_session", existing.SessionID,
			)
			return nil, fmt.Errorf("%w: %s held by PID %d on %s", ErrOutputLocked, lockPath, existing.PID, existing.Hostname)
		}
		if err := removeStale(lockPath); err != nil {
			return nil, err
		}
		logger.Warn("stale lock cleaned", "output", output, "old_pid", existing.PID)
	case !os.IsNotExist(err):
		if !unreadableIsStale(lockPath) {
			return nil, fmt.Errorf("%w: %s is unreadable: %w", ErrOutputLocked, lockPath, err)
		}
		if err := removeStale(lockPath); err != nil {
			return nil, err
		}
		logger.Warn("unreadable lock cleaned", "output", output, "lock", lockPath, "error", err)
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	lock := &Lock{
		SessionID: sessionID,
		Output:    output,
		PID:       os.Getpid(),
		Hostname:  hostname,
		StartedAt: time.Now(),
		lockFile:  lockPath,
		logger:    logger,
	}

	data, err := json.MarshalIndent(lock, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lock: %w", err)
	}

	// O_EXCL loses the race to a concurrent run instead of overwriting its lock
	f, err := os.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrOutputLocked, lockPath)
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if _, err := f.Write(data); err != nil {
		_ = os.Remove(lockPath)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}

	logger.Debug("output lock acquired", "lock", lockPath)
	return lock, nil
}

// unreadableIsStale reports whether a lock file that failed to parse was left
// by a crashed run. Empty files qualify at once; others after unreadableLockAge.
func unreadableIsStale(lockPath string) bool {
	info, err := os.Stat(lockPath)
	if err != nil {
		return os.IsNotExist(err)
	}
	return info.Size() == 0 || time.Since(info.ModTime()) > unreadableLockAge
}

func removeStale(lockPath string) error {
	if err := os.Remove(lockPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lock %s: %w", lockPath, err)
	}
	return nil
}

// Release removes the lock file if this process still owns it.
// Safe to call multiple times and on a nil Lock.
func (l *Lock) Release() error {
	if l == nil || l.lockFile == "" {
		return nil
	}

	existing, err := ReadLock(l.lockFile)
	if err != nil || existing.PID != l.PID || existing.SessionID != l.SessionID {
		return nil
	}

	if err := os.Remove(l.lockFile); err != nil && !os.IsNotExist(err) {
		return err
	}
	l.logger.Debug("output lock released", "lock", l.lockFile)
	return nil
}

// ReadLock reads a lock file.
func ReadLock(lockPath string) (*Lock, error) {
	data, err := os.ReadFile(lockPath)
	if err != nil {
		return nil, err
	}

	var lock Lock
	if err := json.Unmarshal(data, &lock); err != nil {
		return nil, fmt.Errorf("failed to parse lock file: %w", err)
	}
	lock.lockFile = lockPath
	return &lock, nil
}

// isProcessAlive checks if a process with the given PID is still running.
func isProcessAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	// Signal 0 checks existence without affecting the process
	return process.Signal(syscall.Signal(0)) == nil
}
