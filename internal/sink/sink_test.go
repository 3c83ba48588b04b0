package sink

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kstaniek/go-ubx-logger/internal/pvt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(sec int) pvt.Sample {
	return pvt.Sample{
		Time:          time.Date(2024, 5, 17, 8, 30, sec, 0, time.UTC),
		LatitudeDeg:   51.3456789,
		LongitudeDeg:  22.818517,
		SpeedMps:      0.05,
		NumSatellites: 6,
		Fix:           pvt.Fix3D,
	}
}

func TestRecordFormat(t *testing.T) {
	got := Record(sample(12))
	want := []string{"2024-05-17T08:30:12.0000000Z", "51.3456789", "22.8185170", "0.05", "6", "3D"}
	assert.Equal(t, want, got)
}

func TestCSVWritesHeaderAndRows(t *testing.T) {
	var buf bytes.Buffer
	c, err := NewCSV(&buf, true)
	require.NoError(t, err)
	require.NoError(t, c.WriteSample(sample(1)))
	// flushed immediately, no Close needed
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "timestamp,lat,lon,speed_mps,num_sv,fix_type", lines[0])
	assert.Equal(t, "2024-05-17T08:30:01.0000000Z,51.3456789,22.8185170,0.05,6,3D", lines[1])
}

func TestOpenCSVHeaderOnlyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "log.csv")
	for i := 0; i < 2; i++ {
		c, err := OpenCSV(path)
		require.NoError(t, err)
		require.NoError(t, c.WriteSample(sample(i)))
		require.NoError(t, c.Close())
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "timestamp,lat"))
	assert.Equal(t, 3, strings.Count(string(data), "\n"))
}

func TestOpenCSVBadPath(t *testing.T) {
	_, err := OpenCSV(filepath.Join(t.TempDir(), "missing", "log.csv"))
	require.Error(t, err)
}

func TestSQLiteWriteSample(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "log.db"))
	require.NoError(t, err)
	defer s.Close()
	require.NotEmpty(t, s.Session())

	require.NoError(t, s.WriteSample(sample(1)))
	require.NoError(t, s.WriteSample(sample(2)))

	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM samples WHERE session_id = ?`, s.Session()).Scan(&n))
	assert.Equal(t, 2, n)

	var ts, fix string
	var lat float64
	var numSV int
	row := s.DB().QueryRow(`SELECT timestamp, lat, num_sv, fix_type FROM samples ORDER BY timestamp DESC LIMIT 1`)
	require.NoError(t, row.Scan(&ts, &lat, &numSV, &fix))
	assert.Equal(t, "2024-05-17T08:30:02.0000000Z", ts)
	assert.InDelta(t, 51.3456789, lat, 1e-9)
	assert.Equal(t, 6, numSV)
	assert.Equal(t, "3D", fix)
}

type failWriter struct{ closed bool }

func (f *failWriter) WriteSample(pvt.Sample) error { return errors.New("boom") }
func (f *failWriter) Close() error                 { f.closed = true; return nil }

func TestMultiContinuesPastFailure(t *testing.T) {
	var buf bytes.Buffer
	c, err := NewCSV(&buf, false)
	require.NoError(t, err)
	fw := &failWriter{}
	m := Multi{fw, c}
	err = m.WriteSample(sample(3))
	require.Error(t, err)
	assert.Contains(t, buf.String(), "2024-05-17T08:30:03.0000000Z")
	require.NoError(t, m.Close())
	assert.True(t, fw.closed)
}
