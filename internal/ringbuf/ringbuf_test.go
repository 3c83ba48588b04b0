package ringbuf

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func contents(b *Buffer) []byte {
	out := make([]byte, b.Available())
	b.CopyAt(out, 0)
	return out
}

func TestBufferAppendConsumeWrap(t *testing.T) {
	b := New(8)
	if ev := b.Append([]byte{1, 2, 3, 4, 5, 6}); ev != 0 {
		t.Fatalf("unexpected eviction %d", ev)
	}
	b.Consume(4)
	// wraps physically: start=4, count=2 -> append 5 bytes crosses the end
	if ev := b.Append([]byte{7, 8, 9, 10, 11}); ev != 0 {
		t.Fatalf("unexpected eviction %d", ev)
	}
	if got, want := contents(b), []byte{5, 6, 7, 8, 9, 10, 11}; !bytes.Equal(got, want) {
		t.Fatalf("contents % X want % X", got, want)
	}
	for i, want := range []byte{5, 6, 7, 8, 9, 10, 11} {
		got, err := b.Peek(i)
		if err != nil || got != want {
			t.Fatalf("Peek(%d)=%d,%v want %d", i, got, err, want)
		}
	}
}

func TestBufferEvictsOldest(t *testing.T) {
	b := New(4)
	b.Append([]byte{1, 2, 3})
	if ev := b.Append([]byte{4, 5, 6}); ev != 2 {
		t.Fatalf("evicted=%d want 2", ev)
	}
	if got := contents(b); !bytes.Equal(got, []byte{3, 4, 5, 6}) {
		t.Fatalf("contents % X", got)
	}
	// larger than capacity keeps only the newest bytes
	if ev := b.Append([]byte{10, 11, 12, 13, 14, 15}); ev != 6 {
		t.Fatalf("evicted=%d want 6", ev)
	}
	if got := contents(b); !bytes.Equal(got, []byte{12, 13, 14, 15}) {
		t.Fatalf("contents % X", got)
	}
}

func TestBufferPeekOutOfRange(t *testing.T) {
	b := New(4)
	if _, err := b.Peek(0); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange on empty buffer, got %v", err)
	}
	b.Append([]byte{1})
	if _, err := b.Peek(1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if _, err := b.Peek(-1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for negative index, got %v", err)
	}
}

func TestBufferConsumeMoreThanAvailable(t *testing.T) {
	b := New(4)
	b.Append([]byte{1, 2})
	b.Consume(10)
	if b.Available() != 0 {
		t.Fatalf("available=%d want 0", b.Available())
	}
}

func TestBufferIndexSync(t *testing.T) {
	b := New(6)
	b.Append([]byte{0, 0, 0, 0, 0xB5})
	if i := b.IndexSync(0xB5, 0x62); i != -1 {
		t.Fatalf("half pattern matched at %d", i)
	}
	b.Consume(3)
	// the appended bytes wrap around the physical end of the array
	b.Append([]byte{0x62, 9, 9})
	if i := b.IndexSync(0xB5, 0x62); i != 1 {
		t.Fatalf("IndexSync=%d want 1", i)
	}
	b.Clear()
	if i := b.IndexSync(0xB5, 0x62); i != -1 {
		t.Fatalf("IndexSync on empty=%d", i)
	}
}

// TestBufferRandomOps compares the ring against a plain slice model.
func TestBufferRandomOps(t *testing.T) {
	const capacity = 64
	b := New(capacity)
	var model []byte
	rng := rand.New(rand.NewSource(1))
	for step := 0; step < 5000; step++ {
		if rng.Intn(3) == 0 {
			n := rng.Intn(40)
			b.Consume(n)
			if n > len(model) {
				n = len(model)
			}
			model = model[n:]
		} else {
			p := make([]byte, rng.Intn(90))
			rng.Read(p)
			b.Append(p)
			model = append(model, p...)
			if len(model) > capacity {
				model = model[len(model)-capacity:]
			}
		}
		if b.Available() > b.Cap() {
			t.Fatalf("step %d: available %d exceeds capacity", step, b.Available())
		}
		if b.Available() != len(model) {
			t.Fatalf("step %d: available=%d model=%d", step, b.Available(), len(model))
		}
		if got := contents(b); !bytes.Equal(got, model) {
			t.Fatalf("step %d: contents diverged", step)
		}
	}
}
