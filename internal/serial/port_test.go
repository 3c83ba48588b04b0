package serial

import (
	"path/filepath"
	"testing"
	"time"
)

func TestOpenRejectsZeroTimeout(t *testing.T) {
	if _, err := Open("/dev/null", 115200, 0); err == nil {
		t.Fatalf("expected error for zero read timeout")
	}
}

func TestOpenMissingDevice(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "ttyNOPE"), 115200, 10*time.Millisecond); err == nil {
		t.Fatalf("expected error opening a missing device")
	}
}
