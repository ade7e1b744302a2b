package schedule

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	contractx "github.com/careline/clinic-agent/agent/contract"
)

// PostgresStore persists the schedule in PostgreSQL through bun. The unique
// index on (doctor_id, start_at) makes the conflict check atomic with the
// insert.
type PostgresStore struct {
	db *bun.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	return &PostgresStore{db: db}, nil
}

// Init creates the schema and installs the seed roster into an empty doctors
// table.
func (s *PostgresStore) Init(ctx context.Context) error {
	if _, err := s.db.NewCreateTable().Model((*Doctor)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create doctors table: %w", err)
	}
	if _, err := s.db.NewCreateTable().Model((*Appointment)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create appointments table: %w", err)
	}
	if _, err := s.db.NewCreateIndex().
		Model((*Appointment)(nil)).
		Index("appointments_doctor_start_uniq").
		Unique().
		IfNotExists().
		Column("doctor_id", "start_at").
		Exec(ctx); err != nil {
		return fmt.Errorf("create slot index: %w", err)
	}

	count, err := s.db.NewSelect().Model((*Doctor)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count doctors: %w", err)
	}
	if count > 0 {
		return nil
	}

	seed := make([]Doctor, len(SeedDoctors))
	copy(seed, SeedDoctors)
	if _, err := s.db.NewInsert().Model(&seed).Exec(ctx); err != nil {
		return fmt.Errorf("seed doctors: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) FindDoctorByName(ctx context.Context, name string) (*Doctor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrDoctorNotFound
	}

	doc := new(Doctor)
	err := s.db.NewSelect().
		Model(doc).
		Where("name ILIKE ?", "%"+name+"%").
		OrderExpr("id ASC").
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find doctor: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return doc, nil
}

func (s *PostgresStore) AppointmentsOn(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error) {
	from, to := dayBounds(day)

	var out []Appointment
	err := s.db.NewSelect().
		Model(&out).
		Where("doctor_id = ?", doctorID).
		Where("start_at >= ? AND start_at < ?", from, to).
		OrderExpr("start_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list appointments: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return out, nil
}

func (s *PostgresStore) CreateAppointment(ctx context.Context, appt *Appointment) error {
	_, err := s.db.NewInsert().Model(appt).Exec(ctx)
	if err != nil {
		var pgErr pgdriver.Error
		if errors.As(err, &pgErr) && pgErr.IntegrityViolation() {
			return ErrSlotTaken
		}
		return fmt.Errorf("%w: insert appointment: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) CountOn(ctx context.Context, doctorID int64, day time.Time) (int, error) {
	from, to := dayBounds(day)

	count, err := s.db.NewSelect().
		Model((*Appointment)(nil)).
		Where("doctor_id = ?", doctorID).
		Where("start_at >= ? AND start_at < ?", from, to).
		Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: count appointments: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return count, nil
}

func (s *PostgresStore) ReasonCounts(ctx context.Context, doctorID int64) ([]ReasonCount, error) {
	var out []ReasonCount
	err := s.db.NewSelect().
		Model((*Appointment)(nil)).
		ColumnExpr("lower(reason) AS reason").
		ColumnExpr("count(*) AS count").
		Where("doctor_id = ?", doctorID).
		Where("reason <> ''").
		GroupExpr("lower(reason)").
		OrderExpr("count DESC, min(id) ASC").
		Scan(ctx, &out)
	if err != nil {
		return nil, fmt.Errorf("%w: reason counts: %v", contractx.ErrUpstreamUnavailable, err)
	}
	return out, nil
}
