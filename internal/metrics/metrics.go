package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/kstaniek/go-ubx-logger/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	SerialRxBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_rx_bytes_total",
		Help: "Total bytes read from the serial link.",
	})
	ValidFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ubx_valid_frames_total",
		Help: "Total UBX frames that passed the checksum (any class/id).",
	})
	ChecksumFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ubx_checksum_failures_total",
		Help: "Total candidate frames rejected by checksum.",
	})
	FalseSyncs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ubx_false_syncs_total",
		Help: "Total sync patterns followed by an implausible payload length.",
	})
	JunkBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ubx_junk_bytes_total",
		Help: "Total bytes discarded while hunting for a sync pattern.",
	})
	EvictedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ubx_evicted_bytes_total",
		Help: "Total bytes overwritten because the receive buffer was full.",
	})
	Starvations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ubx_starvation_resets_total",
		Help: "Total receive buffer resets after hitting the per-cycle iteration cap.",
	})
	SamplesDecoded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvt_samples_decoded_total",
		Help: "Total NAV-PVT payloads decoded into samples.",
	})
	SamplesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvt_samples_dropped_total",
		Help: "Total NAV-PVT payloads dropped (invalid or unresolved time).",
	})
	SamplesDuplicate = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvt_samples_duplicate_total",
		Help: "Total decoded samples suppressed because their timestamp was already emitted.",
	})
	SamplesEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pvt_samples_emitted_total",
		Help: "Total samples handed to the sinks.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrSerialRead = "serial_read"
	ErrSinkWrite  = "sink_write"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localRxBytes    uint64
	localValid      uint64
	localChecksum   uint64
	localFalseSync  uint64
	localJunk       uint64
	localEvicted    uint64
	localStarvation uint64
	localDecoded    uint64
	localDropped    uint64
	localDuplicate  uint64
	localEmitted    uint64
	localErrors     uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	RxBytes          uint64
	ValidFrames      uint64
	ChecksumFailures uint64
	FalseSyncs       uint64
	JunkBytes        uint64
	EvictedBytes     uint64
	Starvations      uint64
	Decoded          uint64
	Dropped          uint64
	Duplicates       uint64
	Emitted          uint64
	Errors           uint64 // sum across error labels
}

func Snap() Snapshot {
	return Snapshot{
		RxBytes:          atomic.LoadUint64(&localRxBytes),
		ValidFrames:      atomic.LoadUint64(&localValid),
		ChecksumFailures: atomic.LoadUint64(&localChecksum),
		FalseSyncs:       atomic.LoadUint64(&localFalseSync),
		JunkBytes:        atomic.LoadUint64(&localJunk),
		EvictedBytes:     atomic.LoadUint64(&localEvicted),
		Starvations:      atomic.LoadUint64(&localStarvation),
		Decoded:          atomic.LoadUint64(&localDecoded),
		Dropped:          atomic.LoadUint64(&localDropped),
		Duplicates:       atomic.LoadUint64(&localDuplicate),
		Emitted:          atomic.LoadUint64(&localEmitted),
		Errors:           atomic.LoadUint64(&localErrors),
	}
}

// Wrapper helpers to keep call sites simple.
func AddRxBytes(n int) {
	SerialRxBytes.Add(float64(n))
	atomic.AddUint64(&localRxBytes, uint64(n))
}

func IncValidFrame() {
	ValidFrames.Inc()
	atomic.AddUint64(&localValid, 1)
}

func IncChecksumFailure() {
	ChecksumFailures.Inc()
	atomic.AddUint64(&localChecksum, 1)
}

func IncFalseSync() {
	FalseSyncs.Inc()
	atomic.AddUint64(&localFalseSync, 1)
}

func AddJunk(n int) {
	if n <= 0 {
		return
	}
	JunkBytes.Add(float64(n))
	atomic.AddUint64(&localJunk, uint64(n))
}

func AddEvicted(n int) {
	if n <= 0 {
		return
	}
	EvictedBytes.Add(float64(n))
	atomic.AddUint64(&localEvicted, uint64(n))
}

func IncStarvation() {
	Starvations.Inc()
	atomic.AddUint64(&localStarvation, 1)
}

func IncDecoded() {
	SamplesDecoded.Inc()
	atomic.AddUint64(&localDecoded, 1)
}

func IncDropped() {
	SamplesDropped.Inc()
	atomic.AddUint64(&localDropped, 1)
}

func IncDuplicate() {
	SamplesDuplicate.Inc()
	atomic.AddUint64(&localDuplicate, 1)
}

func IncEmitted() {
	SamplesEmitted.Inc()
	atomic.AddUint64(&localEmitted, 1)
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrSerialRead, ErrSinkWrite} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}
