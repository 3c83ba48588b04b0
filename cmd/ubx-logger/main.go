package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/kstaniek/go-ubx-logger/internal/metrics"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	cfg, showVersion, err := parseFlags(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "ubx-logger: %v\n", err)
		return 2
	}
	if showVersion {
		fmt.Printf("ubx-logger %s (commit %s, built %s)\n", version, commit, date)
		return 0
	}
	l := setupLogger(cfg.logFormat, cfg.logLevel)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case s := <-sigCh:
			l.Info("shutdown_signal", "signal", s.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	out, err := openSinks(cfg, l)
	if err != nil {
		l.Error("sink_open_error", "error", err)
		return 1
	}
	defer func() {
		if cerr := out.Close(); cerr != nil {
			l.Warn("sink_close_error", "error", cerr)
		}
	}()

	var wg sync.WaitGroup
	startMetricsLogger(ctx, cfg.logMetricsEvery, l, &wg)

	var running atomic.Bool
	metrics.SetReadinessFunc(func() bool { return running.Load() && ctx.Err() == nil })
	if cfg.metricsAddr != "" {
		metrics.InitBuildInfo(version, commit, date)
		srvHTTP := metrics.StartHTTP(cfg.metricsAddr)
		defer func() { _ = srvHTTP.Shutdown(context.Background()) }()
		if cfg.mdnsEnable {
			if port, perr := metricsPort(cfg.metricsAddr); perr != nil {
				l.Warn("mdns_start_failed", "error", perr)
			} else if cleanupMDNS, merr := startMDNS(ctx, cfg, port); merr != nil {
				l.Warn("mdns_start_failed", "error", merr)
			} else {
				l.Info("mdns_started", "service", mdnsServiceType, "name", mdnsInstance(cfg), "port", port)
				defer cleanupMDNS()
			}
		}
	}

	err = runIngest(ctx, cfg, out, l, &running)
	cancel()
	wg.Wait()
	if err != nil {
		l.Error("ingest_error", "error", err)
		return 1
	}
	l.Info("shutdown_complete")
	return 0
}
