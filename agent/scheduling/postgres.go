package scheduling

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	contractx "github.com/tanpawarit/clinic-scheduling-assistant/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"5s"`
	Seed    bool          `envconfig:"SEED" split_words:"true" default:"false"`
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID        string    `bun:"id,pk"`
	PatientID string    `bun:"patient_id,notnull"`
	Date      string    `bun:"date,notnull"`
	Time      string    `bun:"time,notnull"`
	Location  string    `bun:"location"`
	Provider  string    `bun:"provider,notnull"`
	Reason    string    `bun:"reason"`
	Status    string    `bun:"status,notnull"`
	Key       string    `bun:"idem_key,nullzero,unique"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (r appointmentRow) toAppointment() Appointment {
	return Appointment{
		ID:        r.ID,
		PatientID: r.PatientID,
		Date:      r.Date,
		Time:      r.Time,
		Location:  r.Location,
		Provider:  r.Provider,
		Reason:    r.Reason,
		Status:    Status(r.Status),
		Key:       r.Key,
		CreatedAt: r.CreatedAt,
	}
}

func rowFromAppointment(a Appointment) appointmentRow {
	return appointmentRow{
		ID:        a.ID,
		PatientID: a.PatientID,
		Date:      a.Date,
		Time:      a.Time,
		Location:  a.Location,
		Provider:  a.Provider,
		Reason:    a.Reason,
		Status:    string(a.Status),
		Key:       a.Key,
		CreatedAt: a.CreatedAt,
	}
}

// PostgresStore is a Store on PostgreSQL. Mutations run in serializable
// transactions and a partial unique index backs the one-active-booking-per-slot
// rule.
type PostgresStore struct {
	db       *bun.DB
	roster   []Provider
	grid     SlotGrid
	fallback string
}

var _ Store = (*PostgresStore)(nil)

func OpenPostgres(cfg PostgresConfig) (*bun.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, errors.New("postgres dsn is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(cfg.DSN),
		pgdriver.WithTimeout(timeout),
	))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewPostgresStore(ctx context.Context, db *bun.DB, roster []Provider) (*PostgresStore, error) {
	if db == nil {
		return nil, errors.New("bun db is required")
	}
	s := &PostgresStore{db: db, roster: roster, grid: DefaultGrid, fallback: DefaultLocation}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*appointmentRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create appointments table: %w", err)
	}
	const slotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS appointments_active_slot
		ON appointments (lower(provider), date, time) WHERE status = 'confirmed'`
	if _, err := s.db.ExecContext(ctx, slotIndex); err != nil {
		return fmt.Errorf("create slot index: %w", err)
	}
	return nil
}

// Seed inserts appts unless the table already has rows.
func (s *PostgresStore) Seed(ctx context.Context, appts []Appointment) error {
	n, err := s.db.NewSelect().Model((*appointmentRow)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count appointments: %w", err)
	}
	if n > 0 || len(appts) == 0 {
		return nil
	}
	rows := make([]appointmentRow, 0, len(appts))
	for _, a := range appts {
		rows = append(rows, rowFromAppointment(a))
	}
	if _, err := s.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("seed appointments: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetByPatient(ctx context.Context, patientID string) ([]Appointment, error) {
	var rows []appointmentRow
	err := s.db.NewSelect().Model(&rows).
		Where("patient_id = ?", patientID).
		Where("status = ?", StatusConfirmed).
		Order("date ASC", "time ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %v", contractx.ErrInternal, err)
	}
	return toAppointments(rows), nil
}

func (s *PostgresStore) FindByPatientAndDate(ctx context.Context, patientID, date, clock string) (Appointment, error) {
	var rows []appointmentRow
	q := s.db.NewSelect().Model(&rows).
		Where("patient_id = ?", patientID).
		Where("date = ?", date).
		Where("status = ?", StatusConfirmed)
	if clock != "" {
		q = q.Where("time = ?", clock)
	}
	if err := q.Scan(ctx); err != nil {
		return Appointment{}, fmt.Errorf("%w: find appointments: %v", contractx.ErrInternal, err)
	}
	return singleMatch(toAppointments(rows), date, clock)
}

func (s *PostgresStore) Add(ctx context.Context, req NewAppointment) (Appointment, error) {
	if err := req.validate(); err != nil {
		return Appointment{}, err
	}

	var out Appointment
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		if req.Key != "" {
			var existing appointmentRow
			err := tx.NewSelect().Model(&existing).Where("idem_key = ?", req.Key).Limit(1).Scan(ctx)
			if err == nil {
				out = existing.toAppointment()
				return nil
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}

		if taken, err := s.slotTaken(ctx, tx, req.Provider, req.Date, req.Time, ""); err != nil {
			return err
		} else if taken {
			return s.conflict(ctx, tx, req.Provider, req.Date, req.Time, "")
		}

		location, err := s.location(ctx, tx, req.Provider)
		if err != nil {
			return err
		}
		row := appointmentRow{
			ID:        uuid.NewString(),
			PatientID: req.PatientID,
			Date:      req.Date,
			Time:      req.Time,
			Location:  location,
			Provider:  req.Provider,
			Reason:    req.Reason,
			Status:    string(StatusConfirmed),
			Key:       req.Key,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := tx.NewInsert().Model(&row).Exec(ctx); err != nil {
			return err
		}
		out = row.toAppointment()
		return nil
	})
	if err != nil {
		return Appointment{}, s.mapErr(ctx, err, req.Provider, req.Date, req.Time)
	}
	return out, nil
}

func (s *PostgresStore) CancelByID(ctx context.Context, id string) (Appointment, error) {
	var out Appointment
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		row, err := activeRow(ctx, tx, id)
		if err != nil {
			return err
		}
		row.Status = string(StatusCancelled)
		if _, err := tx.NewUpdate().Model(&row).Column("status").WherePK().Exec(ctx); err != nil {
			return err
		}
		out = row.toAppointment()
		return nil
	})
	if err != nil {
		return Appointment{}, s.mapErr(ctx, err, "", "", "")
	}
	return out, nil
}

func (s *PostgresStore) Reschedule(ctx context.Context, id, newDate, newClock string) (Appointment, error) {
	if _, err := ParseDate(newDate, time.Time{}); err != nil {
		return Appointment{}, err
	}
	if _, err := ParseClock(newClock); err != nil {
		return Appointment{}, err
	}

	var out Appointment
	var provider string
	err := s.db.RunInTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable}, func(ctx context.Context, tx bun.Tx) error {
		row, err := activeRow(ctx, tx, id)
		if err != nil {
			return err
		}
		provider = row.Provider
		if taken, err := s.slotTaken(ctx, tx, row.Provider, newDate, newClock, id); err != nil {
			return err
		} else if taken {
			return s.conflict(ctx, tx, row.Provider, newDate, newClock, id)
		}
		row.Date, row.Time = newDate, newClock
		if _, err := tx.NewUpdate().Model(&row).Column("date", "time").WherePK().Exec(ctx); err != nil {
			return err
		}
		out = row.toAppointment()
		return nil
	})
	if err != nil {
		return Appointment{}, s.mapErr(ctx, err, provider, newDate, newClock)
	}
	return out, nil
}

func (s *PostgresStore) AvailabilityFor(ctx context.Context, provider, date string) ([]string, error) {
	booked, err := s.booked(ctx, s.db, provider, date, "")
	if err != nil {
		return nil, fmt.Errorf("%w: availability: %v", contractx.ErrInternal, err)
	}
	return s.grid.Open(booked), nil
}

func (s *PostgresStore) Providers(ctx context.Context) ([]Provider, error) {
	out := append([]Provider(nil), s.roster...)
	var names []string
	if err := s.db.NewSelect().Model((*appointmentRow)(nil)).Distinct().Column("provider").Scan(ctx, &names); err != nil {
		return nil, fmt.Errorf("%w: list providers: %v", contractx.ErrInternal, err)
	}
	seen := make(map[string]struct{}, len(out))
	for _, p := range out {
		seen[strings.ToLower(p.Name)] = struct{}{}
	}
	for _, n := range names {
		if _, ok := seen[strings.ToLower(n)]; ok {
			continue
		}
		seen[strings.ToLower(n)] = struct{}{}
		loc, err := s.LocationFor(ctx, n)
		if err != nil {
			return nil, err
		}
		out = append(out, Provider{Name: n, Location: loc})
	}
	return out, nil
}

func (s *PostgresStore) ProvidersForPatient(ctx context.Context, patientID string) ([]string, error) {
	var names []string
	err := s.db.NewSelect().Model((*appointmentRow)(nil)).
		Distinct().Column("provider").
		Where("patient_id = ?", patientID).
		Scan(ctx, &names)
	if err != nil {
		return nil, fmt.Errorf("%w: patient providers: %v", contractx.ErrInternal, err)
	}
	return names, nil
}

func (s *PostgresStore) LocationFor(ctx context.Context, provider string) (string, error) {
	loc, err := s.location(ctx, s.db, provider)
	if err != nil {
		return "", fmt.Errorf("%w: provider location: %v", contractx.ErrInternal, err)
	}
	return loc, nil
}

/* ------------------------------ internals ------------------------------ */

func activeRow(ctx context.Context, db bun.IDB, id string) (appointmentRow, error) {
	var row appointmentRow
	err := db.NewSelect().Model(&row).
		Where("id = ?", id).
		Where("status = ?", StatusConfirmed).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return row, &contractx.NotFoundError{What: "appointment", Key: id}
	}
	return row, err
}

func (s *PostgresStore) slotTaken(ctx context.Context, db bun.IDB, provider, date, clock, ignoreID string) (bool, error) {
	q := db.NewSelect().Model((*appointmentRow)(nil)).
		Where("lower(provider) = lower(?)", provider).
		Where("date = ?", date).
		Where("time = ?", clock).
		Where("status = ?", StatusConfirmed)
	if ignoreID != "" {
		q = q.Where("id <> ?", ignoreID)
	}
	return q.Exists(ctx)
}

func (s *PostgresStore) booked(ctx context.Context, db bun.IDB, provider, date, ignoreID string) ([]string, error) {
	var times []string
	q := db.NewSelect().Model((*appointmentRow)(nil)).
		Column("time").
		Where("lower(provider) = lower(?)", provider).
		Where("date = ?", date).
		Where("status = ?", StatusConfirmed)
	if ignoreID != "" {
		q = q.Where("id <> ?", ignoreID)
	}
	if err := q.Scan(ctx, &times); err != nil {
		return nil, err
	}
	return times, nil
}

func (s *PostgresStore) conflict(ctx context.Context, db bun.IDB, provider, date, clock, ignoreID string) error {
	booked, err := s.booked(ctx, db, provider, date, ignoreID)
	if err != nil {
		return err
	}
	return &contractx.ConflictError{Provider: provider, Date: date, Time: clock, OpenSlots: s.grid.Open(booked)}
}

func (s *PostgresStore) location(ctx context.Context, db bun.IDB, provider string) (string, error) {
	var row appointmentRow
	err := db.NewSelect().Model(&row).
		Where("lower(provider) = lower(?)", provider).
		Where("status = ?", StatusConfirmed).
		Where("location <> ''").
		Order("created_at ASC").
		Limit(1).
		Scan(ctx)
	if err == nil {
		return row.Location, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}
	for _, p := range s.roster {
		if strings.EqualFold(p.Name, provider) && p.Location != "" {
			return p.Location, nil
		}
	}
	return s.fallback, nil
}

// mapErr keeps domain errors and turns unique-index races into conflicts.
func (s *PostgresStore) mapErr(ctx context.Context, err error, provider, date, clock string) error {
	switch contractx.KindOf(err) {
	case contractx.KindValidation, contractx.KindConflict, contractx.KindNotFound, contractx.KindAmbiguity:
		return err
	}
	var pgErr pgdriver.Error
	if errors.As(err, &pgErr) && pgErr.IntegrityViolation() && provider != "" {
		open, availErr := s.AvailabilityFor(ctx, provider, date)
		if availErr != nil {
			open = nil
		}
		return &contractx.ConflictError{Provider: provider, Date: date, Time: clock, OpenSlots: open}
	}
	return fmt.Errorf("%w: %v", contractx.ErrInternal, err)
}

func toAppointments(rows []appointmentRow) []Appointment {
	out := make([]Appointment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toAppointment())
	}
	sortAppointments(out)
	return out
}
