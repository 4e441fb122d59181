package session

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestAcquireLock(t *testing.T) {
	output := filepath.Join(t.TempDir(), "model.usdz")

	lock, err := AcquireLock(output, "s1", nil)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	read, err := ReadLock(LockPath(output))
	if err != nil {
		t.Fatalf("ReadLock() error = %v", err)
	}
	if read.SessionID != "s1" || read.PID != os.Getpid() || read.Output != output {
		t.Errorf("lock = %+v", read)
	}

	if _, err := AcquireLock(output, "s2", nil); !errors.Is(err, ErrOutputLocked) {
		t.Errorf("second AcquireLock() error = %v, want ErrOutputLocked", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(LockPath(output)); !os.IsNotExist(err) {
		t.Error("lock file should be gone after Release")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("second Release() error = %v", err)
	}
}

func TestAcquireLock_Stale(t *testing.T) {
	output := filepath.Join(t.TempDir(), "model.usdz")

	// PIDs above the kernel's pid_max never belong to a live process
	stale := Lock{SessionID: "dead", Output: output, PID: 1 << 30}
	data, _ := json.Marshal(stale)
	if err := os.WriteFile(LockPath(output), data, 0o644); err != nil {
		t.Fatal(err)
	}

	lock, err := AcquireLock(output, "fresh", nil)
	if err != nil {
		t.Fatalf("AcquireLock() over stale lock error = %v", err)
	}
	defer func() { _ = lock.Release() }()

	read, err := ReadLock(LockPath(output))
	if err != nil {
		t.Fatal(err)
	}
	if read.SessionID != "fresh" {
		t.Errorf("SessionID = %q, want fresh", read.SessionID)
	}
}

func TestRelease_NotOwner(t *testing.T) {
	output := filepath.Join(t.TempDir(), "model.usdz")
	lock, err := AcquireLock(output, "mine", nil)
	if err != nil {
		t.Fatal(err)
	}

	// Another run replaced the lock file
	other := Lock{SessionID: "theirs", Output: output, PID: os.Getpid()}
	data, _ := json.Marshal(other)
	if err := os.WriteFile(LockPath(output), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(LockPath(output)); err != nil {
		t.Error("Release() must not remove a lock it does not own")
	}
}

func TestRelease_Nil(t *testing.T) {
	var lock *Lock
	if err := lock.Release(); err != nil {
		t.Errorf("nil Release() error = %v", err)
	}
}

func TestReadLock_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x"+LockSuffix)
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadLock(path); err == nil {
		t.Error("ReadLock() should fail on corrupt data")
	}
}

func TestAcquireLock_Unreadable(t *testing.T) {
	old := time.Now().Add(-time.Minute)
	tests := []struct {
		name     string
		data     string
		modTime  time.Time
		wantLock bool
	}{
		{name: "empty", data: "", modTime: time.Now(), wantLock: true},
		{name: "old corrupt", data: "{not json", modTime: old, wantLock: true},
		{name: "fresh corrupt", data: "{not json", modTime: time.Now()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := filepath.Join(t.TempDir(), "model.usdz")
			path := LockPath(output)
			if err := os.WriteFile(path, []byte(tt.data), 0o644); err != nil {
				t.Fatal(err)
			}
			if err := os.Chtimes(path, tt.modTime, tt.modTime); err != nil {
				t.Fatal(err)
			}

			lock, err := AcquireLock(output, "fresh", nil)
			if !tt.wantLock {
				if !errors.Is(err, ErrOutputLocked) {
					t.Fatalf("AcquireLock() error = %v, want ErrOutputLocked", err)
				}
				if !strings.Contains(err.Error(), path) {
					t.Errorf("error %q should name the lock file", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("AcquireLock() error = %v", err)
			}
			defer func() { _ = lock.Release() }()

			read, err := ReadLock(path)
			if err != nil {
				t.Fatalf("ReadLock() error = %v", err)
			}
			if read.SessionID != "fresh" {
				t.Errorf("SessionID = %q, want fresh", read.SessionID)
			}
		})
	}
}

func TestAcquireLock_ErrorNamesLockFile(t *testing.T) {
	output := filepath.Join(t.TempDir(), "model.usdz")
	lock, err := AcquireLock(output, "s1", nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = lock.Release() }()

	_, err = AcquireLock(output, "s2", nil)
	if !errors.Is(err, ErrOutputLocked) {
		t.Fatalf("AcquireLock() error = %v, want ErrOutputLocked", err)
	}
	if !strings.Contains(err.Error(), LockPath(output)) {
		t.Errorf("error %q should name the lock file", err)
	}
}
