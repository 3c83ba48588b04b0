package ringbuf

import "errors"

// DefaultCapacity is the receive window used by the serial ingest path.
const DefaultCapacity = 8192

// ErrOutOfRange is returned by Peek when the logical index is not buffered.
// Callers are expected to check Available first; hitting it is a bug, not a
// protocol event.
var ErrOutOfRange = errors.New("ringbuf: index out of range")

// Buffer is a fixed-capacity circular byte store addressed by logical offset
// from the oldest buffered byte. It never grows: appending into a full buffer
// overwrites the oldest bytes. Not safe for concurrent use.
type Buffer struct {
	data  []byte
	start int
	count int
}

// New allocates a buffer holding at most capacity bytes.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the fixed capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Available returns the number of buffered bytes.
func (b *Buffer) Available() int { return b.count }

// Append copies p into the buffer, evicting the oldest bytes when there is not
// enough free space. It returns how many bytes were lost to make room; when p
// alone exceeds the capacity that includes the leading bytes of p.
func (b *Buffer) Append(p []byte) (evicted int) {
	c := len(b.data)
	if len(p) >= c {
		// only the newest c bytes can survive
		evicted = b.count + len(p) - c
		copy(b.data, p[len(p)-c:])
		b.start = 0
		b.count = c
		return evicted
	}
	if free := c - b.count; len(p) > free {
		evicted = len(p) - free
		b.Consume(evicted)
	}
	end := (b.start + b.count) % c
	n := copy(b.data[end:], p)
	if n < len(p) {
		copy(b.data, p[n:])
	}
	b.count += len(p)
	return evicted
}

// Peek returns the byte at logical index i.
func (b *Buffer) Peek(i int) (byte, error) {
	if i < 0 || i >= b.count {
		return 0, ErrOutOfRange
	}
	return b.at(i), nil
}

func (b *Buffer) at(i int) byte {
	j := b.start + i
	if j >= len(b.data) {
		j -= len(b.data)
	}
	return b.data[j]
}

// CopyAt copies buffered bytes starting at logical index off into dst and
// returns the number copied. It copies nothing when off is out of range.
func (b *Buffer) CopyAt(dst []byte, off int) int {
	if off < 0 || off >= b.count {
		return 0
	}
	n := len(dst)
	if rem := b.count - off; n > rem {
		n = rem
	}
	p := (b.start + off) % len(b.data)
	k := copy(dst[:n], b.data[p:])
	if k < n {
		copy(dst[k:n], b.data)
	}
	return n
}

// Consume drops min(n, Available()) bytes from the front.
func (b *Buffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= b.count {
		b.Clear()
		return
	}
	b.start = (b.start + n) % len(b.data)
	b.count -= n
}

// IndexSync returns the lowest logical offset at which the two-byte pattern
// s0 s1 starts, or -1.
func (b *Buffer) IndexSync(s0, s1 byte) int {
	for i := 0; i+1 < b.count; i++ {
		if b.at(i) == s0 && b.at(i+1) == s1 {
			return i
		}
	}
	return -1
}

// Clear empties the buffer.
func (b *Buffer) Clear() {
	b.start = 0
	b.count = 0
}
