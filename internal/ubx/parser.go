package ubx

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/kstaniek/go-ubx-logger/internal/logging"
	"github.com/kstaniek/go-ubx-logger/internal/metrics"
	"github.com/kstaniek/go-ubx-logger/internal/ringbuf"
)

const (
	// MaxIterations caps one Extract call. Exceeding it clears the buffer.
	MaxIterations = 1000

	diagInterval = time.Second
)

// Handler receives every checksum-valid frame, whatever its class and id.
type Handler func(Frame)

// Stats are the per-parser counters.
type Stats struct {
	ValidFrames      uint64
	ChecksumFailures uint64
	FalseSyncs       uint64
	JunkBytes        uint64
	EvictedBytes     uint64
	Resets           uint64
}

// parserContext is the bookkeeping scoped to one Parser.
type parserContext struct {
	Stats
	lastDiag time.Time
}

// Parser extracts UBX frames from a noisy byte stream held in a bounded ring
// buffer. Every extraction step either drops buffered bytes or stops to wait
// for more input, so Extract always terminates. Not safe for concurrent use;
// one Parser per stream.
type Parser struct {
	buf     *ringbuf.Buffer
	onFrame Handler
	log     *slog.Logger
	now     func() time.Time
	pc      parserContext
	scratch [Overhead + MaxPayload]byte
}

type Option func(*Parser)

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides time.Now for diagnostic rate limiting.
func WithClock(now func() time.Time) Option {
	return func(p *Parser) {
		if now != nil {
			p.now = now
		}
	}
}

// WithBufferSize sets the receive buffer capacity (default ringbuf.DefaultCapacity).
func WithBufferSize(n int) Option { return func(p *Parser) { p.buf = ringbuf.New(n) } }

func NewParser(onFrame Handler, opts ...Option) *Parser {
	p := &Parser{
		onFrame: onFrame,
		log:     logging.L(),
		now:     time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.buf == nil {
		p.buf = ringbuf.New(ringbuf.DefaultCapacity)
	}
	return p
}

// Feed appends raw bytes. When the buffer is full the oldest bytes are lost;
// the number lost is returned.
func (p *Parser) Feed(b []byte) int {
	ev := p.buf.Append(b)
	if ev > 0 {
		p.pc.EvictedBytes += uint64(ev)
		metrics.AddEvicted(ev)
	}
	return ev
}

// Buffered returns the number of bytes awaiting extraction.
func (p *Parser) Buffered() int { return p.buf.Available() }

// Stats returns a copy of the parser counters.
func (p *Parser) Stats() Stats { return p.pc.Stats }

// Extract runs the state machine until it needs more input. It returns
// ctx.Err() if cancelled between steps and nil otherwise. The buffer is
// cleared only when the step after the last allowed one still progresses.
func (p *Parser) Extract(ctx context.Context) error {
	for i := 0; i <= MaxIterations; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !p.step() {
			return nil
		}
	}
	p.log.Warn("ubx_starvation", "iterations", MaxIterations, "dropped", p.buf.Available())
	p.buf.Clear()
	p.pc.Resets++
	metrics.IncStarvation()
	return nil
}

// step performs one extraction attempt and reports whether buffered bytes
// were consumed. false means "wait for more input".
func (p *Parser) step() bool {
	avail := p.buf.Available()
	if avail < 2 {
		return false
	}
	off := p.buf.IndexSync(Sync1, Sync2)
	if off < 0 {
		// keep last byte in case it is the first half of a sync pattern
		p.discardJunk(avail - 1)
		return false
	}
	if off > 0 {
		p.discardJunk(off)
		return true
	}
	if avail < HeaderLen {
		p.waiting("header", avail, HeaderLen)
		return false
	}

	p.buf.CopyAt(p.scratch[:HeaderLen], 0)
	h := Header{
		Class:      p.scratch[2],
		ID:         p.scratch[3],
		PayloadLen: binary.LittleEndian.Uint16(p.scratch[4:HeaderLen]),
	}
	if h.PayloadLen > MaxPayload {
		p.pc.FalseSyncs++
		metrics.IncFalseSync()
		p.buf.Consume(2)
		return true
	}

	frameLen := Overhead + int(h.PayloadLen)
	if avail < frameLen {
		p.waiting("payload", avail, frameLen)
		return false
	}
	frame := p.scratch[:frameLen]
	p.buf.CopyAt(frame, 0)
	end := HeaderLen + int(h.PayloadLen)
	ckA, ckB := Checksum(frame[2:end])
	if ckA != frame[end] || ckB != frame[end+1] {
		// drop only the sync so a frame starting inside this span is not lost
		p.pc.ChecksumFailures++
		metrics.IncChecksumFailure()
		p.buf.Consume(2)
		return true
	}

	p.pc.ValidFrames++
	metrics.IncValidFrame()
	if p.onFrame != nil {
		p.onFrame(Frame{Header: h, Payload: frame[HeaderLen:end]})
	}
	p.buf.Consume(frameLen)
	return true
}

func (p *Parser) discardJunk(n int) {
	if n <= 0 {
		return
	}
	p.buf.Consume(n)
	p.pc.JunkBytes += uint64(n)
	metrics.AddJunk(n)
}

func (p *Parser) waiting(what string, have, need int) {
	now := p.now()
	if now.Sub(p.pc.lastDiag) < diagInterval {
		return
	}
	p.pc.lastDiag = now
	p.log.Debug("ubx_waiting", "for", what, "have", have, "need", need, "valid_frames", p.pc.ValidFrames)
}
