package serial

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// Port abstracts tarm/serial for testability. Reads return after at most the
// configured timeout; a timeout surfaces as (0, nil) or (0, io.EOF).
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// Open opens a receiver at 8N1 with the given read timeout. A zero timeout
// would block forever, so it is rejected.
func Open(name string, baud int, readTimeout time.Duration) (Port, error) {
	if readTimeout <= 0 {
		return nil, fmt.Errorf("serial %s: read timeout must be > 0", name)
	}
	cfg := &serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: readTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	}
	p, err := serial.OpenPort(cfg)
	if err != nil {
		return nil, fmt.Errorf("serial %s: %w", name, err)
	}
	return p, nil
}
