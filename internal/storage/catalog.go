package storage

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// CatalogFile is the index database kept in the run directory.
const CatalogFile = "index.db"

// Catalog is a SQLite index over run metadata so runs can be filtered and
// ranked by metric without opening every metadata.json. The run directories
// stay the source of truth; the catalog can always be rebuilt from them.
type Catalog struct {
	db *sql.DB
}

func OpenCatalog(path string) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// one writer at a time keeps SQLite out of SQLITE_BUSY
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init catalog schema: %w", err)
	}
	return c, nil
}

func (c *Catalog) Close() error { return c.db.Close() }

func (c *Catalog) initSchema() error {
	_, err := c.db.Exec(`
	CREATE TABLE IF NOT EXISTS runs (
		id            TEXT PRIMARY KEY,
		uuid          TEXT,
		name          TEXT,
		scene         TEXT NOT NULL,
		contact_model TEXT NOT NULL,
		created_ns    INTEGER NOT NULL,
		dt            REAL,
		t_end         REAL,
		segments      INTEGER,
		steps         INTEGER,
		samples       INTEGER
	);
	CREATE TABLE IF NOT EXISTS metrics (
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		name   TEXT NOT NULL,
		value  REAL NOT NULL,
		PRIMARY KEY (run_id, name)
	);
	CREATE INDEX IF NOT EXISTS idx_runs_scene ON runs(scene, contact_model);
	`)
	return err
}

// Put inserts or replaces one run and its metrics.
func (c *Catalog) Put(ctx context.Context, meta RunMetadata) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, uuid, name, scene, contact_model, created_ns, dt, t_end, segments, steps, samples)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			uuid = excluded.uuid, name = excluded.name, scene = excluded.scene,
			contact_model = excluded.contact_model, created_ns = excluded.created_ns,
			dt = excluded.dt, t_end = excluded.t_end, segments = excluded.segments,
			steps = excluded.steps, samples = excluded.samples`,
		meta.ID, meta.UUID, meta.Name, meta.Scene, meta.ContactModel, meta.Timestamp.UnixNano(),
		meta.Dt, meta.TEnd, meta.SegmentCount, meta.StepsTaken, meta.Samples)
	if err != nil {
		return fmt.Errorf("index run %s: %w", meta.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM metrics WHERE run_id = ?`, meta.ID); err != nil {
		return err
	}
	for name, v := range meta.Metrics {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO metrics (run_id, name, value) VALUES (?, ?, ?)`, meta.ID, name, v); err != nil {
			return fmt.Errorf("index metric %s of %s: %w", name, meta.ID, err)
		}
	}
	return tx.Commit()
}

// Sync indexes every run in st and drops catalog rows whose run directory
// is gone. It returns the number of runs indexed.
func (c *Catalog) Sync(ctx context.Context, st *Store) (int, error) {
	runs, err := st.List()
	if err != nil {
		return 0, err
	}
	keep := make(map[string]bool, len(runs))
	for _, r := range runs {
		if err := c.Put(ctx, r); err != nil {
			return 0, err
		}
		keep[r.ID] = true
	}

	rows, err := c.db.QueryContext(ctx, `SELECT id FROM runs`)
	if err != nil {
		return 0, err
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		if !keep[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}
	for _, id := range stale {
		if _, err := c.db.ExecContext(ctx, `DELETE FROM metrics WHERE run_id = ?`, id); err != nil {
			return 0, err
		}
		if _, err := c.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
			return 0, err
		}
	}
	return len(runs), nil
}

// Query selects runs from the catalog. Empty filters match everything.
type Query struct {
	Scene        string
	ContactModel string
	// Metric ranks the result by that metric's value; runs without it
	// sort last. Without a metric runs come back newest first.
	Metric string
	Desc   bool
	Limit  int
}

type Entry struct {
	ID           string
	Scene        string
	ContactModel string
	Created      time.Time
	Steps        int
	// Value is the ranked metric, NaN when the run lacks it or no metric
	// was asked for.
	Value float64
}

func (c *Catalog) Find(ctx context.Context, q Query) ([]Entry, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT r.id, r.scene, r.contact_model, r.created_ns, r.steps, m.value
		FROM runs r LEFT JOIN metrics m ON m.run_id = r.id AND m.name = ?`)
	args = append(args, q.Metric)

	var where []string
	if q.Scene != "" {
		where = append(where, "r.scene = ?")
		args = append(args, q.Scene)
	}
	if q.ContactModel != "" {
		where = append(where, "r.contact_model = ?")
		args = append(args, strings.ToUpper(q.ContactModel))
	}
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}

	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}
	if q.Metric != "" {
		sb.WriteString(" ORDER BY m.value IS NULL, m.value " + dir + ", r.created_ns DESC")
	} else {
		sb.WriteString(" ORDER BY r.created_ns DESC")
	}
	if q.Limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, q.Limit)
	}

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e       Entry
			created int64
			value   sql.NullFloat64
		)
		if err := rows.Scan(&e.ID, &e.Scene, &e.ContactModel, &created, &e.Steps, &value); err != nil {
			return nil, err
		}
		e.Created = time.Unix(0, created)
		e.Value = math.NaN()
		if value.Valid {
			e.Value = value.Float64
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
