package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kstaniek/go-ubx-logger/internal/logging"
	"github.com/kstaniek/go-ubx-logger/internal/metrics"
)

// ErrSourceClosed is returned when the byte source disappears (device
// unplugged, port closed underneath us).
var ErrSourceClosed = errors.New("ingest: source closed")

const (
	DefaultReadBufSize = 1024
	DefaultBackoffMin  = 20 * time.Millisecond
	DefaultBackoffMax  = 500 * time.Millisecond
)

// Source is a byte source whose Read returns within a bounded timeout.
type Source interface {
	Read(p []byte) (int, error)
}

// Extractor consumes raw bytes and runs frame extraction to quiescence.
type Extractor interface {
	Feed(p []byte) int
	Extract(ctx context.Context) error
}

// Config tunes Run. Zero values pick the defaults.
type Config struct {
	ReadBufSize int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
	Logger      *slog.Logger
	// Sleep is used for error backoff; tests intercept it.
	Sleep func(time.Duration)
}

func (c *Config) defaults() {
	if c.ReadBufSize <= 0 {
		c.ReadBufSize = DefaultReadBufSize
	}
	if c.BackoffMin <= 0 {
		c.BackoffMin = DefaultBackoffMin
	}
	if c.BackoffMax < c.BackoffMin {
		c.BackoffMax = DefaultBackoffMax
	}
	if c.Logger == nil {
		c.Logger = logging.L()
	}
	if c.Sleep == nil {
		c.Sleep = time.Sleep
	}
}

// Run reads from src and drives ex until ctx is cancelled or the source fails
// fatally. One read per cycle is the only blocking point; empty reads and EOF
// are timeouts and simply loop. It returns nil on cancellation.
func Run(ctx context.Context, src Source, ex Extractor, cfg Config) error {
	cfg.defaults()
	l := cfg.Logger
	buf := make([]byte, cfg.ReadBufSize)
	backoff := cfg.BackoffMin
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := src.Read(buf)
		if n > 0 {
			metrics.AddRxBytes(n)
			ex.Feed(buf[:n])
			if xerr := ex.Extract(ctx); xerr != nil {
				return nil // only cancellation
			}
			backoff = cfg.BackoffMin
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil { // shutting down
			return nil
		}
		var perr *os.PathError
		if errors.As(err, &perr) || errors.Is(err, os.ErrClosed) {
			return fmt.Errorf("%w: %w", ErrSourceClosed, err)
		}
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			continue // read timeout
		}
		metrics.IncError(metrics.ErrSerialRead)
		l.Warn("serial_read_error", "error", err, "backoff", backoff)
		cfg.Sleep(backoff)
		backoff *= 2
		if backoff > cfg.BackoffMax {
			backoff = cfg.BackoffMax
		}
	}
}
