package sink

import (
	"errors"

	"github.com/kstaniek/go-ubx-logger/internal/pvt"
)

// Writer is a closable sample destination.
type Writer interface {
	pvt.SampleWriter
	Close() error
}

var (
	_ Writer = (*CSV)(nil)
	_ Writer = (*SQLite)(nil)
	_ Writer = Multi(nil)
)

// Multi writes every sample to all writers. A failing writer does not stop
// the others; the errors are joined.
type Multi []Writer

func (m Multi) WriteSample(s pvt.Sample) error {
	var errs []error
	for _, w := range m {
		if err := w.WriteSample(s); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, w := range m {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
