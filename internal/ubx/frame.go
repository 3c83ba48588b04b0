package ubx

import "encoding/binary"

// Wire layout:
//
//	B5 62 | class | id | len (LE u16) | payload[len] | ckA | ckB
const (
	Sync1 = 0xB5
	Sync2 = 0x62

	// HeaderLen covers sync, class, id and the length field.
	HeaderLen = 6
	// Overhead is the framing cost around a payload: header plus checksum.
	Overhead = HeaderLen + 2
	// MaxPayload is a sanity bound; larger lengths are treated as a false sync.
	MaxPayload = 4096
)

// Header is the part of a frame between the sync pattern and the payload.
type Header struct {
	Class      byte
	ID         byte
	PayloadLen uint16
}

// Frame is a checksum-validated message. Payload aliases the parser's scratch
// space and is only valid for the duration of the handler call.
type Frame struct {
	Header
	Payload []byte
}

// Checksum computes the 8-bit Fletcher pair over data (class through the last
// payload byte).
func Checksum(data []byte) (ckA, ckB byte) {
	for _, b := range data {
		ckA += b
		ckB += ckA
	}
	return ckA, ckB
}

// Encode builds a complete frame around payload.
func Encode(class, id byte, payload []byte) []byte {
	buf := make([]byte, 0, Overhead+len(payload))
	buf = append(buf, Sync1, Sync2, class, id)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(payload)))
	buf = append(buf, payload...)
	ckA, ckB := Checksum(buf[2:])
	return append(buf, ckA, ckB)
}
