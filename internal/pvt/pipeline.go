package pvt

import (
	"log/slog"

	"github.com/kstaniek/go-ubx-logger/internal/logging"
	"github.com/kstaniek/go-ubx-logger/internal/metrics"
	"github.com/kstaniek/go-ubx-logger/internal/ubx"
)

// SampleWriter persists samples. Implementations are called synchronously
// from the ingest loop and should flush before returning.
type SampleWriter interface {
	WriteSample(Sample) error
}

// Pipeline routes validated frames: NAV-PVT frames are decoded, deduplicated
// by timestamp and written; everything else is ignored.
type Pipeline struct {
	dec   Decoder
	dedup Dedup
	out   SampleWriter
	log   *slog.Logger
}

func NewPipeline(dec Decoder, out SampleWriter, l *slog.Logger) *Pipeline {
	if l == nil {
		l = logging.L()
	}
	return &Pipeline{dec: dec, out: out, log: l}
}

// IsTarget reports whether h carries a NAV-PVT payload.
func IsTarget(h ubx.Header) bool {
	return h.Class == ClassNAV && h.ID == IDPVT && h.PayloadLen == PayloadLen
}

// HandleFrame is a ubx.Handler.
func (p *Pipeline) HandleFrame(f ubx.Frame) {
	if !IsTarget(f.Header) {
		return
	}
	s, err := p.dec.Decode(f.Payload)
	if err != nil {
		metrics.IncDropped()
		p.log.Debug("pvt_dropped", "error", err)
		return
	}
	metrics.IncDecoded()
	if !p.dedup.Admit(s) {
		metrics.IncDuplicate()
		return
	}
	if err := p.out.WriteSample(s); err != nil {
		metrics.IncError(metrics.ErrSinkWrite)
		p.log.Error("sample_sink_error", "error", err, "time", s.Time)
		return
	}
	metrics.IncEmitted()
}
