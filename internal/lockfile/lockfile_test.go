package lockfile

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireLockWritesOwner(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	defer lock.Release()

	if lock.Path() != filepath.Join(dir, LockFileName) {
		t.Errorf("unexpected lock path %s", lock.Path())
	}
	content, err := os.ReadFile(lock.Path())
	if err != nil {
		t.Fatalf("Failed to read lock file: %v", err)
	}
	info := parseLockInfo(string(content))
	if info.pid != os.Getpid() {
		t.Errorf("expected pid %d in lock file, got %q", os.Getpid(), content)
	}
	if info.started == "" {
		t.Errorf("expected start time in lock file, got %q", content)
	}
}

func TestLockConflict(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to acquire first lock: %v", err)
	}
	defer first.Release()

	second, err := AcquireLock(dir)
	if err == nil {
		second.Release()
		t.Fatalf("Second lock acquisition should have failed")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Fatalf("Expected LockError, got: %T", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "Another Lantern server") || !strings.Contains(msg, dir) {
		t.Errorf("unexpected error message: %s", msg)
	}
	if !strings.Contains(lockErr.Holder, "PID "+strconv.Itoa(os.Getpid())) {
		t.Errorf("expected holder to name our pid, got %q", lockErr.Holder)
	}

	// The failed attempt must leave the holder's info intact.
	content, _ := os.ReadFile(first.Path())
	if parseLockInfo(string(content)).pid != os.Getpid() {
		t.Errorf("lock info was clobbered: %q", content)
	}
}

func TestLockReleaseAndReacquire(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to acquire lock: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Failed to release lock: %v", err)
	}
	if _, err := os.Stat(lock.Path()); !os.IsNotExist(err) {
		t.Errorf("Lock file should be removed after release")
	}
	if err := lock.Release(); err != nil {
		t.Errorf("Multiple releases should be safe: %v", err)
	}
	var nilLock *Lock
	if err := nilLock.Release(); err != nil {
		t.Errorf("nil lock release should be a no-op: %v", err)
	}

	again, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Failed to reacquire lock after release: %v", err)
	}
	again.Release()
}

func TestAcquireLockCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := AcquireLock(dir)
	if err != nil {
		t.Fatalf("Should create directory and acquire lock: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Directory should have been created: %v", err)
	}
}

func TestParseLockInfo(t *testing.T) {
	tests := []struct {
		name    string
		content string
		pid     int
		started string
	}{
		{"pid and start", "pid=12345\nstarted=2025-01-10T16:00:00Z\n", 12345, "2025-01-10T16:00:00Z"},
		{"pid only", "pid=67890\n", 67890, ""},
		{"unknown keys", "host=lab\npid=42", 42, ""},
		{"no pid", "other=info", 0, ""},
		{"empty", "", 0, ""},
		{"invalid pid", "pid=abc", 0, ""},
		{"negative pid", "pid=-3", 0, ""},
		{"no equals", "pid12345", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLockInfo(tt.content)
			if got.pid != tt.pid || got.started != tt.started {
				t.Errorf("parseLockInfo(%q) = %+v, want pid=%d started=%q", tt.content, got, tt.pid, tt.started)
			}
		})
	}
}

func TestDescribeHolder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, LockFileName)

	if got := describeHolder(path); !strings.Contains(got, "unreadable") {
		t.Errorf("expected unreadable holder, got %q", got)
	}

	os.WriteFile(path, nil, 0644)
	if got := describeHolder(path); !strings.Contains(got, "empty") {
		t.Errorf("expected empty holder, got %q", got)
	}

	os.WriteFile(path, []byte("pid="+strconv.Itoa(os.Getpid())+"\n"), 0644)
	if got := describeHolder(path); !strings.Contains(got, "(running)") {
		t.Errorf("expected running holder, got %q", got)
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Errorf("Our own process should be detected as running")
	}
}
