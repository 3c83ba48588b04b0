package main

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/kstaniek/go-ubx-logger/internal/metrics"
)

func startMetricsLogger(ctx context.Context, interval time.Duration, l *slog.Logger, wg *sync.WaitGroup) {
	if interval <= 0 {
		return
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				snap := metrics.Snap()
				l.Info("metrics_snapshot",
					"rx_bytes", snap.RxBytes,
					"valid_frames", snap.ValidFrames,
					"checksum_failures", snap.ChecksumFailures,
					"false_syncs", snap.FalseSyncs,
					"junk_bytes", snap.JunkBytes,
					"evicted_bytes", snap.EvictedBytes,
					"starvations", snap.Starvations,
					"decoded", snap.Decoded,
					"dropped", snap.Dropped,
					"duplicates", snap.Duplicates,
					"emitted", snap.Emitted,
					"errors", snap.Errors,
				)
			case <-ctx.Done():
				return
			}
		}
	}()
}
