package ubx

import (
	"context"
	"testing"

	"github.com/kstaniek/go-ubx-logger/internal/logging"
)

func BenchmarkParser_NavPvtStream(b *testing.B) {
	frame := Encode(0x01, 0x07, make([]byte, 92))
	chunk := make([]byte, 0, 10*len(frame)+20)
	for i := 0; i < 10; i++ {
		chunk = append(chunk, frame...)
		chunk = append(chunk, '$', 'G')
	}
	p := NewParser(func(Frame) {}, WithLogger(logging.Discard()))
	ctx := context.Background()
	b.ReportAllocs()
	b.SetBytes(int64(len(chunk)))
	for i := 0; i < b.N; i++ {
		p.Feed(chunk)
		_ = p.Extract(ctx)
	}
}
