package pvt

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kstaniek/go-ubx-logger/internal/logging"
	"github.com/kstaniek/go-ubx-logger/internal/metrics"
	"github.com/kstaniek/go-ubx-logger/internal/ubx"
)

type memWriter struct {
	got []Sample
	err error
}

func (m *memWriter) WriteSample(s Sample) error {
	if m.err != nil {
		return m.err
	}
	m.got = append(m.got, s)
	return nil
}

func navFrame(p []byte) ubx.Frame {
	return ubx.Frame{Header: ubx.Header{Class: ClassNAV, ID: IDPVT, PayloadLen: uint16(len(p))}, Payload: p}
}

func TestDedupAdmit(t *testing.T) {
	var d Dedup
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !d.Admit(Sample{Time: t0}) {
		t.Fatalf("first sample rejected")
	}
	if d.Admit(Sample{Time: t0, LatitudeDeg: 1}) {
		t.Fatalf("equal timestamp admitted")
	}
	if !d.Admit(Sample{Time: t0.Add(time.Nanosecond)}) {
		t.Fatalf("different timestamp rejected")
	}
	if last, ok := d.Last(); !ok || !last.Equal(t0.Add(time.Nanosecond)) {
		t.Fatalf("Last()=%v,%v", last, ok)
	}
}

func TestPipelineDedupAndFilter(t *testing.T) {
	w := &memWriter{}
	p := NewPipeline(Decoder{}, w, logging.Discard())
	f := goodFields()
	p.HandleFrame(navFrame(f.payload()))
	p.HandleFrame(navFrame(f.payload())) // same epoch
	f.sec++
	p.HandleFrame(navFrame(f.payload()))

	// wrong id and wrong length are ignored
	other := navFrame(f.payload())
	other.ID = 0x35
	p.HandleFrame(other)
	p.HandleFrame(navFrame(f.payload()[:60]))

	if len(w.got) != 2 {
		t.Fatalf("emitted=%d want 2", len(w.got))
	}
	want := Sample{
		Time:          time.Date(2024, 5, 17, 8, 30, 13, 0, time.UTC),
		LatitudeDeg:   51.3456789,
		LongitudeDeg:  22.818517,
		SpeedMps:      0.05,
		NumSatellites: 6,
		Fix:           Fix3D,
	}
	approx := cmp.Comparer(func(a, b float64) bool { d := a - b; return d < 1e-7 && d > -1e-7 })
	if diff := cmp.Diff(want, w.got[1], approx); diff != "" {
		t.Fatalf("sample mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineDropsInvalidTime(t *testing.T) {
	w := &memWriter{}
	p := NewPipeline(Decoder{}, w, logging.Discard())
	before := metrics.Snap().Dropped
	f := goodFields()
	f.valid = 0
	p.HandleFrame(navFrame(f.payload()))
	if len(w.got) != 0 {
		t.Fatalf("invalid sample emitted")
	}
	if metrics.Snap().Dropped <= before {
		t.Fatalf("dropped metric not incremented")
	}
}

func TestPipelineSinkErrorCounted(t *testing.T) {
	w := &memWriter{err: errors.New("disk full")}
	p := NewPipeline(Decoder{}, w, logging.Discard())
	before := metrics.Snap().Errors
	p.HandleFrame(navFrame(goodFields().payload()))
	if metrics.Snap().Errors <= before {
		t.Fatalf("sink error not counted")
	}
}

func TestPipelineEndToEndWithParser(t *testing.T) {
	w := &memWriter{}
	p := NewPipeline(Decoder{}, w, logging.Discard())
	parser := ubx.NewParser(p.HandleFrame, ubx.WithLogger(logging.Discard()))
	f := goodFields()
	f.valid = validDate | validTime
	stream := append([]byte{0x00}, ubx.Encode(ClassNAV, IDPVT, f.payload())...)
	parser.Feed(stream)
	if err := parser.Extract(context.Background()); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(w.got) != 1 {
		t.Fatalf("emitted=%d want 1", len(w.got))
	}
	if s := w.got[0]; s.Fix.String() != "3D" || s.NumSatellites != 6 {
		t.Fatalf("unexpected sample %+v", s)
	}
	if st := parser.Stats(); st.ValidFrames != 1 || st.JunkBytes != 1 {
		t.Fatalf("stats %+v", st)
	}
}
