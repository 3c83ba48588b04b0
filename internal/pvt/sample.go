package pvt

import (
	"strconv"
	"time"
)

// FixType classifies the receiver's navigation solution.
type FixType uint8

const (
	FixNone FixType = iota
	FixDeadReckoning
	Fix2D
	Fix3D
	FixGNSSDeadReckoning
	FixTimeOnly
	// FixUnrecognized stands in for any code the receiver may add later.
	FixUnrecognized
)

var fixNames = [...]string{
	FixNone:              "NoFix",
	FixDeadReckoning:     "DR",
	Fix2D:                "2D",
	Fix3D:                "3D",
	FixGNSSDeadReckoning: "GNSS+DR",
	FixTimeOnly:          "TimeOnly",
	FixUnrecognized:      "Unknown",
}

// fixTypeFromCode never fails: unknown codes map to FixUnrecognized.
func fixTypeFromCode(code byte) FixType {
	if code < byte(FixUnrecognized) {
		return FixType(code)
	}
	return FixUnrecognized
}

func (f FixType) String() string {
	if int(f) < len(fixNames) {
		return fixNames[f]
	}
	return "FixType(" + strconv.Itoa(int(f)) + ")"
}

// Sample is one decoded position/velocity/time solution.
type Sample struct {
	Time          time.Time // UTC, whole seconds
	LatitudeDeg   float64
	LongitudeDeg  float64
	SpeedMps      float64
	NumSatellites uint8
	Fix           FixType
}
