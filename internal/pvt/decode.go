package pvt

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"
)

// UBX-NAV-PVT signature.
const (
	ClassNAV   = 0x01
	IDPVT      = 0x07
	PayloadLen = 92
)

// Payload offsets (little-endian).
const (
	offYear    = 4
	offMonth   = 6
	offDay     = 7
	offHour    = 8
	offMin     = 9
	offSec     = 10
	offValid   = 11
	offFixType = 20
	offNumSV   = 23
	offLon     = 24
	offLat     = 28
	offGSpeed  = 60
)

// Validity flag bits at offValid.
const (
	validDate     = 1 << 0
	validTime     = 1 << 1
	fullyResolved = 1 << 2
)

var (
	ErrShortPayload    = errors.New("nav-pvt: short payload")
	ErrTimeNotValid    = errors.New("nav-pvt: date/time not valid")
	ErrTimeNotResolved = errors.New("nav-pvt: time not fully resolved")
	ErrBadDate         = errors.New("nav-pvt: calendar field out of range")
)

// Decoder turns NAV-PVT payloads into samples. It is a pure function of the
// payload and its settings.
type Decoder struct {
	// RequireFullyResolved additionally demands the fully-resolved flag.
	// Date-valid and time-valid are always required.
	RequireFullyResolved bool
}

// Decode parses a NAV-PVT payload. Only the first PayloadLen bytes are read.
func (d Decoder) Decode(p []byte) (Sample, error) {
	if len(p) < PayloadLen {
		return Sample{}, fmt.Errorf("%w: %d bytes", ErrShortPayload, len(p))
	}
	valid := p[offValid]
	if valid&validDate == 0 || valid&validTime == 0 {
		return Sample{}, fmt.Errorf("%w (flags 0x%02X)", ErrTimeNotValid, valid)
	}
	if d.RequireFullyResolved && valid&fullyResolved == 0 {
		return Sample{}, fmt.Errorf("%w (flags 0x%02X)", ErrTimeNotResolved, valid)
	}
	ts, err := calendarTime(
		int(binary.LittleEndian.Uint16(p[offYear:])),
		int(p[offMonth]), int(p[offDay]),
		int(p[offHour]), int(p[offMin]), int(p[offSec]),
	)
	if err != nil {
		return Sample{}, err
	}
	return Sample{
		Time:          ts,
		LatitudeDeg:   float64(int32(binary.LittleEndian.Uint32(p[offLat:]))) / 1e7,
		LongitudeDeg:  float64(int32(binary.LittleEndian.Uint32(p[offLon:]))) / 1e7,
		SpeedMps:      float64(int32(binary.LittleEndian.Uint32(p[offGSpeed:]))) / 1000.0,
		NumSatellites: p[offNumSV],
		Fix:           fixTypeFromCode(p[offFixType]),
	}, nil
}

// calendarTime rejects out-of-range fields instead of letting time.Date
// normalize them.
func calendarTime(year, month, day, hour, min, sec int) (time.Time, error) {
	if year < 1 || year > 9999 || month < 1 || month > 12 ||
		hour > 23 || min > 59 || sec > 59 || day < 1 {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d %02d:%02d:%02d", ErrBadDate, year, month, day, hour, min, sec)
	}
	// day 0 of the next month is the last day of this one
	if last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day(); day > last {
		return time.Time{}, fmt.Errorf("%w: %04d-%02d-%02d", ErrBadDate, year, month, day)
	}
	return time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC), nil
}
