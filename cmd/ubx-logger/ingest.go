package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kstaniek/go-ubx-logger/internal/ingest"
	"github.com/kstaniek/go-ubx-logger/internal/pvt"
	"github.com/kstaniek/go-ubx-logger/internal/serial"
	"github.com/kstaniek/go-ubx-logger/internal/sink"
	"github.com/kstaniek/go-ubx-logger/internal/ubx"
)

// sleepFn allows tests to intercept backoff sleeps.
var sleepFn = time.Sleep

// openSerialPort is a hook for tests (overridden in unit tests).
var openSerialPort = serial.Open

// openSinks opens the configured sample destinations.
func openSinks(cfg *appConfig, l *slog.Logger) (sink.Multi, error) {
	var out sink.Multi
	if cfg.outCSV != "" {
		c, err := sink.OpenCSV(cfg.outCSV)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
		l.Info("sink_open", "kind", "csv", "path", cfg.outCSV)
	}
	if cfg.sqlitePath != "" {
		s, err := sink.OpenSQLite(cfg.sqlitePath)
		if err != nil {
			_ = out.Close()
			return nil, err
		}
		out = append(out, s)
		l.Info("sink_open", "kind", "sqlite", "path", cfg.sqlitePath, "session", s.Session())
	}
	return out, nil
}

// runIngest opens the receiver and blocks in the read/extract loop until ctx
// is cancelled or the device fails. Failing to open the device is fatal.
func runIngest(ctx context.Context, cfg *appConfig, out pvt.SampleWriter, l *slog.Logger, running *atomic.Bool) error {
	sp, err := openSerialPort(cfg.serialDev, cfg.baud, cfg.serialReadTO)
	if err != nil {
		return fmt.Errorf("open serial: %w", err)
	}
	defer func() { _ = sp.Close() }()
	l.Info("serial_open", "device", cfg.serialDev, "baud", cfg.baud, "read_timeout", cfg.serialReadTO)

	pl := pvt.NewPipeline(pvt.Decoder{RequireFullyResolved: cfg.requireFullyResolved}, out, l)
	parser := ubx.NewParser(pl.HandleFrame, ubx.WithLogger(l))

	running.Store(true)
	defer running.Store(false)
	err = ingest.Run(ctx, sp, parser, ingest.Config{
		ReadBufSize: serialReadBufSize,
		BackoffMin:  rxBackoffMin,
		BackoffMax:  rxBackoffMax,
		Logger:      l,
		Sleep:       sleepFn,
	})
	st := parser.Stats()
	l.Info("serial_rx_end",
		"valid_frames", st.ValidFrames,
		"checksum_failures", st.ChecksumFailures,
		"false_syncs", st.FalseSyncs,
		"junk_bytes", st.JunkBytes,
		"evicted_bytes", st.EvictedBytes,
		"resets", st.Resets,
	)
	return err
}
