package pvt

import "time"

// Dedup passes at most one sample per distinct timestamp.
type Dedup struct {
	last time.Time
	seen bool
}

// Admit reports whether s should be emitted and, if so, records its timestamp.
// The first sample is always admitted; any timestamp difference counts.
func (d *Dedup) Admit(s Sample) bool {
	if d.seen && s.Time.Equal(d.last) {
		return false
	}
	d.last = s.Time
	d.seen = true
	return true
}

// Last returns the most recently admitted timestamp, if any.
func (d *Dedup) Last() (time.Time, bool) { return d.last, d.seen }
