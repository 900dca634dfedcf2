package lockfile

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFlockExclusiveBlockingAndUnlock(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")
	if err := os.WriteFile(lockPath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create lock file: %v", err)
	}

	f, err := os.OpenFile(lockPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("failed to open lock file: %v", err)
	}
	defer f.Close()

	if err := FlockExclusiveBlocking(f); err != nil {
		t.Errorf("FlockExclusiveBlocking failed: %v", err)
	}
	if err := FlockUnlock(f); err != nil {
		t.Errorf("FlockUnlock failed: %v", err)
	}
}

func TestFlockExclusiveNonBlockingConflict(t *testing.T) {
	tmpDir := t.TempDir()
	lockPath := filepath.Join(tmpDir, "test.lock")
	if err := os.WriteFile(lockPath, []byte("test"), 0644); err != nil {
		t.Fatalf("failed to create lock file: %v", err)
	}

	f1, err := os.OpenFile(lockPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("failed to open first lock file handle: %v", err)
	}
	defer f1.Close()

	if err := FlockExclusiveBlocking(f1); err != nil {
		t.Fatalf("failed to acquire first lock: %v", err)
	}
	defer FlockUnlock(f1)

	f2, err := os.OpenFile(lockPath, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("failed to open second lock file handle: %v", err)
	}
	defer f2.Close()

	err = flockExclusive(f2)
	if !IsLocked(err) {
		t.Errorf("expected errStoreLocked, got %v", err)
	}
}

func TestIsProcessRunning(t *testing.T) {
	t.Run("current process is running", func(t *testing.T) {
		if !isProcessRunning(os.Getpid()) {
			t.Error("expected current process to be running")
		}
	})

	t.Run("non-existent process is not running", func(t *testing.T) {
		if isProcessRunning(99999) {
			t.Error("expected non-existent process to not be running")
		}
	})
}
