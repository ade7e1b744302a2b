// Package schedule is the persistence collaborator behind the scheduling
// tools: doctor lookup, appointment queries, and conflict-checked booking.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"

	contractx "github.com/careline/clinic-agent/agent/contract"
)

// Both sentinels wrap the shared taxonomy so callers can match either the
// specific failure or its class.
var (
	ErrDoctorNotFound = fmt.Errorf("doctor %w", contractx.ErrNotFound)
	ErrSlotTaken      = fmt.Errorf("slot already booked: %w", contractx.ErrConflict)
)

type Doctor struct {
	bun.BaseModel `bun:"table:doctors,alias:d"`

	ID        int64  `bun:"id,pk,autoincrement" json:"id"`
	Name      string `bun:"name,notnull" json:"name"`
	Specialty string `bun:"specialty" json:"specialty,omitempty"`
}

type Appointment struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	DoctorID     int64     `bun:"doctor_id,notnull" json:"doctor_id"`
	PatientName  string    `bun:"patient_name,notnull" json:"patient_name"`
	PatientEmail string    `bun:"patient_email" json:"patient_email,omitempty"`
	StartAt      time.Time `bun:"start_at,notnull" json:"start_at"`
	EndAt        time.Time `bun:"end_at,notnull" json:"end_at"`
	Reason       string    `bun:"reason" json:"reason,omitempty"`
}

// ReasonCount is one entry of the ranked visit-reason breakdown, ordered by
// count descending with ties in first-seen order.
type ReasonCount struct {
	Reason string `json:"reason"`
	Count  int    `json:"count"`
}

// Store is the contract the tools depend on. Implementations must make the
// conflict check atomic with the insert, and must report a missing doctor as
// ErrDoctorNotFound rather than failing generically.
type Store interface {
	FindDoctorByName(ctx context.Context, name string) (*Doctor, error)
	AppointmentsOn(ctx context.Context, doctorID int64, day time.Time) ([]Appointment, error)
	CreateAppointment(ctx context.Context, appt *Appointment) error
	CountOn(ctx context.Context, doctorID int64, day time.Time) (int, error)
	ReasonCounts(ctx context.Context, doctorID int64) ([]ReasonCount, error)
}

// SeedDoctors is the default roster installed into empty stores.
var SeedDoctors = []Doctor{
	{Name: "Dr. Ahuja", Specialty: "General Physician"},
	{Name: "Dr. Mehta", Specialty: "General Physician"},
	{Name: "Dr. Sharma", Specialty: "General Physician"},
	{Name: "Dr. Roy", Specialty: "General Physician"},
	{Name: "Dr. Joy", Specialty: "General Physician"},
	{Name: "Dr. Joshi", Specialty: "General Physician"},
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 1)
}
