package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	statex "github.com/tanpawarit/clinic-scheduling-assistant/agent/state"
	_ "modernc.org/sqlite"
)

type SQLiteConfig struct {
	DSN  string `envconfig:"DSN" split_words:"true" default:"file:directory.db?_pragma=busy_timeout(5000)"`
	Seed bool   `envconfig:"SEED" split_words:"true" default:"true"`
}

// SQLiteDirectory keeps patient profiles in a SQLite database.
type SQLiteDirectory struct {
	db *sql.DB
}

var _ contractx.Directory = (*SQLiteDirectory)(nil)

func NewSQLiteDirectory(ctx context.Context, cfg SQLiteConfig) (*SQLiteDirectory, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("sqlite dsn is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writes.
	db.SetMaxOpenConns(1)

	d := &SQLiteDirectory{db: db}
	if err := d.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if cfg.Seed {
		if err := d.seedIfEmpty(ctx, DemoPatients()); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return d, nil
}

func (d *SQLiteDirectory) Close() error {
	return d.db.Close()
}

func (d *SQLiteDirectory) initSchema(ctx context.Context) error {
	const schema = `CREATE TABLE IF NOT EXISTS patients (
		id        TEXT PRIMARY KEY,
		name      TEXT NOT NULL,
		name_norm TEXT NOT NULL,
		phone     TEXT NOT NULL DEFAULT '',
		dob       TEXT NOT NULL,
		ssn_last4 TEXT NOT NULL DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS patients_name_dob ON patients (name_norm, dob);`
	if _, err := d.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create patients schema: %w", err)
	}
	return nil
}

func (d *SQLiteDirectory) seedIfEmpty(ctx context.Context, patients []statex.Profile) error {
	var n int
	if err := d.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return fmt.Errorf("count patients: %w", err)
	}
	if n > 0 {
		return nil
	}
	for _, p := range patients {
		if err := d.Register(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Register upserts a profile by id.
func (d *SQLiteDirectory) Register(ctx context.Context, p statex.Profile) error {
	const upsert = `INSERT INTO patients (id, name, name_norm, phone, dob, ssn_last4)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			name_norm = excluded.name_norm,
			phone = excluded.phone,
			dob = excluded.dob,
			ssn_last4 = excluded.ssn_last4`
	_, err := d.db.ExecContext(ctx, upsert, p.ID, p.Name, normalizeName(p.Name), p.Phone, p.DOB, p.SSNLast4)
	if err != nil {
		return fmt.Errorf("register patient %s: %w", p.ID, err)
	}
	return nil
}

func (d *SQLiteDirectory) Lookup(ctx context.Context, fields statex.IdentityFields) (statex.Profile, bool, error) {
	q, ok := normalize(fields)
	if !ok {
		return statex.Profile{}, false, nil
	}

	rows, err := d.db.QueryContext(ctx,
		`SELECT id, name, phone, dob, ssn_last4 FROM patients WHERE name_norm = ? AND dob = ? ORDER BY id`,
		q.name, q.dob)
	if err != nil {
		return statex.Profile{}, false, fmt.Errorf("%w: lookup patient: %v", contractx.ErrInternal, err)
	}
	defer rows.Close()

	var candidates []statex.Profile
	for rows.Next() {
		var p statex.Profile
		if err := rows.Scan(&p.ID, &p.Name, &p.Phone, &p.DOB, &p.SSNLast4); err != nil {
			return statex.Profile{}, false, fmt.Errorf("%w: scan patient: %v", contractx.ErrInternal, err)
		}
		candidates = append(candidates, p)
	}
	if err := rows.Err(); err != nil {
		return statex.Profile{}, false, fmt.Errorf("%w: lookup patient: %v", contractx.ErrInternal, err)
	}

	p, found := match(candidates, q)
	return p, found, nil
}
