package sink

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/kstaniek/go-ubx-logger/internal/pvt"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS samples (
		session_id        TEXT NOT NULL,
		timestamp         TEXT NOT NULL,
		lat               DOUBLE,
		lon               DOUBLE,
		speed_mps         DOUBLE,
		num_sv            INTEGER,
		fix_type          TEXT
	);
	CREATE INDEX IF NOT EXISTS samples_timestamp ON samples (timestamp);
`

// SQLite stores samples in a local database. Each process run gets its own
// session id so restarts can be told apart.
type SQLite struct {
	db      *sql.DB
	insert  *sql.Stmt
	session string
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	stmt, err := db.Prepare(`INSERT INTO samples
		(session_id, timestamp, lat, lon, speed_mps, num_sv, fix_type)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite prepare: %w", err)
	}
	return &SQLite{db: db, insert: stmt, session: uuid.NewString()}, nil
}

// Session returns the id stamped on every row written by this instance.
func (s *SQLite) Session() string { return s.session }

// DB exposes the underlying handle for read-side queries.
func (s *SQLite) DB() *sql.DB { return s.db }

func (s *SQLite) WriteSample(p pvt.Sample) error {
	_, err := s.insert.Exec(
		s.session,
		p.Time.UTC().Format(TimeLayout),
		p.LatitudeDeg,
		p.LongitudeDeg,
		p.SpeedMps,
		int(p.NumSatellites),
		p.Fix.String(),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error {
	_ = s.insert.Close()
	return s.db.Close()
}
