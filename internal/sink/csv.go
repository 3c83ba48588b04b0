package sink

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/kstaniek/go-ubx-logger/internal/pvt"
)

// TimeLayout renders UTC timestamps with seven fractional digits.
const TimeLayout = "2006-01-02T15:04:05.0000000Z"

// Header is the CSV column row.
var Header = []string{"timestamp", "lat", "lon", "speed_mps", "num_sv", "fix_type"}

// CSV writes one row per sample and flushes after every row.
type CSV struct {
	w *csv.Writer
	c io.Closer
}

// NewCSV wraps w. The header row is written first when withHeader is set.
func NewCSV(w io.Writer, withHeader bool) (*CSV, error) {
	c := &CSV{w: csv.NewWriter(w)}
	if closer, ok := w.(io.Closer); ok {
		c.c = closer
	}
	if withHeader {
		if err := c.write(Header); err != nil {
			return nil, fmt.Errorf("csv header: %w", err)
		}
	}
	return c, nil
}

// OpenCSV appends to path, creating it if needed. The header is written only
// when the file is empty so restarts continue the same log.
func OpenCSV(path string) (*CSV, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	st, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat csv: %w", err)
	}
	c, err := NewCSV(f, st.Size() == 0)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return c, nil
}

// Record formats s as a CSV row.
func Record(s pvt.Sample) []string {
	return []string{
		s.Time.UTC().Format(TimeLayout),
		strconv.FormatFloat(s.LatitudeDeg, 'f', 7, 64),
		strconv.FormatFloat(s.LongitudeDeg, 'f', 7, 64),
		strconv.FormatFloat(s.SpeedMps, 'f', 2, 64),
		strconv.Itoa(int(s.NumSatellites)),
		s.Fix.String(),
	}
}

func (c *CSV) WriteSample(s pvt.Sample) error {
	if err := c.write(Record(s)); err != nil {
		return fmt.Errorf("csv write: %w", err)
	}
	return nil
}

func (c *CSV) write(rec []string) error {
	if err := c.w.Write(rec); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Close() error {
	c.w.Flush()
	if c.c == nil {
		return c.w.Error()
	}
	return c.c.Close()
}
