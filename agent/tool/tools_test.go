package tool

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/schedule"
	"github.com/careline/clinic-agent/pkg/notify"
)

func mustBook(t *testing.T, store *schedule.MemoryStore, doctor string, start time.Time, reason string) {
	t.Helper()
	doc, err := store.FindDoctorByName(context.Background(), doctor)
	if err != nil {
		t.Fatalf("seed doctor lookup: %v", err)
	}
	err = store.CreateAppointment(context.Background(), &schedule.Appointment{
		DoctorID:    doc.ID,
		PatientName: "Seed",
		StartAt:     start,
		EndAt:       start.Add(time.Hour),
		Reason:      reason,
	})
	if err != nil {
		t.Fatalf("seed booking: %v", err)
	}
}

func TestAvailabilityExcludesBookedSlots(t *testing.T) {
	t.Parallel()

	store := schedule.NewMemoryStore()
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC), "")
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 2, 13, 0, 0, 0, time.UTC), "")

	d := newTestDispatcher(store)
	result := d.Dispatch(context.Background(), ToolDoctorAvailability,
		map[string]any{"doctor_name": "Dr. Ahuja", "start_date": "2025-12-02"},
		contractx.CallerContext{Role: contractx.RolePatient})

	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	payload, ok := result.Result.(AvailabilityResult)
	if !ok {
		t.Fatalf("unexpected payload type: %T", result.Result)
	}
	if payload.Doctor != "Dr. Ahuja" {
		t.Fatalf("unexpected doctor: %s", payload.Doctor)
	}
	// 8 clinic-hour slots minus 2 booked.
	if len(payload.Slots) != 6 {
		t.Fatalf("expected 6 free slots, got %d", len(payload.Slots))
	}
	for _, slot := range payload.Slots {
		if slot.StartISO == "2025-12-02T09:00:00" || slot.StartISO == "2025-12-02T13:00:00" {
			t.Fatalf("booked slot leaked into availability: %s", slot.StartISO)
		}
	}
}

func TestAvailabilityTimeOfDayFilter(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(schedule.NewMemoryStore())
	result := d.Dispatch(context.Background(), ToolDoctorAvailability,
		map[string]any{"doctor_name": "Ahuja", "start_date": "2025-12-02", "time_of_day": "morning"},
		contractx.CallerContext{Role: contractx.RolePatient})

	payload := result.Result.(AvailabilityResult)
	if len(payload.Slots) != 3 {
		t.Fatalf("morning window should have 3 slots, got %d", len(payload.Slots))
	}
	if payload.Slots[0].StartTime != "09:00:00" {
		t.Fatalf("unexpected first slot: %s", payload.Slots[0].StartTime)
	}
}

func TestAvailabilitySpansDateRange(t *testing.T) {
	t.Parallel()

	store := schedule.NewMemoryStore()
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC), "")

	d := newTestDispatcher(store)
	result := d.Dispatch(context.Background(), ToolDoctorAvailability,
		map[string]any{"doctor_name": "Ahuja", "start_date": "2025-12-02", "end_date": "2025-12-03"},
		contractx.CallerContext{Role: contractx.RolePatient})

	payload := result.Result.(AvailabilityResult)
	// 8 slots on each of the two days, minus the one booked on the 3rd.
	if len(payload.Slots) != 15 {
		t.Fatalf("expected 15 slots across the range, got %d", len(payload.Slots))
	}
	if payload.Slots[0].Date != "2025-12-02" || payload.Slots[len(payload.Slots)-1].Date != "2025-12-03" {
		t.Fatalf("range boundaries wrong: %s .. %s", payload.Slots[0].Date, payload.Slots[len(payload.Slots)-1].Date)
	}
	if payload.StartDate != "2025-12-02" || payload.EndDate != "2025-12-03" {
		t.Fatalf("queried window not reported: %s .. %s", payload.StartDate, payload.EndDate)
	}
	for _, slot := range payload.Slots {
		if slot.Date == "2025-12-03" && slot.StartTime == "09:00:00" {
			t.Fatal("booked slot leaked into the second day")
		}
	}
}

func TestAvailabilityOffGridBookingKeepsHourSlots(t *testing.T) {
	t.Parallel()

	store := schedule.NewMemoryStore()
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 2, 9, 30, 0, 0, time.UTC), "")

	d := newTestDispatcher(store)
	result := d.Dispatch(context.Background(), ToolDoctorAvailability,
		map[string]any{"doctor_name": "Ahuja", "start_date": "2025-12-02"},
		contractx.CallerContext{Role: contractx.RolePatient})

	payload := result.Result.(AvailabilityResult)
	// Only exact start-time matches take a slot; 09:30 does not claim 09:00.
	if len(payload.Slots) != 8 {
		t.Fatalf("expected all 8 hourly slots, got %d", len(payload.Slots))
	}
	if payload.Slots[0].StartTime != "09:00:00" {
		t.Fatalf("09:00 slot missing: %+v", payload.Slots[0])
	}
}

func TestAvailabilityDefaultsToToday(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(schedule.NewMemoryStore())
	result := d.Dispatch(context.Background(), ToolDoctorAvailability,
		map[string]any{"doctor_name": "Ahuja"},
		contractx.CallerContext{Role: contractx.RolePatient})

	payload := result.Result.(AvailabilityResult)
	if len(payload.Slots) == 0 {
		t.Fatal("expected slots for today")
	}
	if payload.Slots[0].Date != "2025-12-02" {
		t.Fatalf("expected today's date from the injected clock, got %s", payload.Slots[0].Date)
	}
}

func TestBookingCreatesAppointmentWithDefaultEnd(t *testing.T) {
	t.Parallel()

	store := schedule.NewMemoryStore()
	d := newTestDispatcher(store)
	result := d.Dispatch(context.Background(), ToolCreateAppointment, map[string]any{
		"doctor_name":   "Dr. Ahuja",
		"patient_name":  "John",
		"patient_email": "john@example.com",
		"start_iso":     "2025-12-02T09:00",
	}, contractx.CallerContext{Role: contractx.RolePatient})

	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	payload := result.Result.(BookingResult)
	if payload.AppointmentID == 0 {
		t.Fatal("expected an appointment id")
	}
	if payload.StartISO != "2025-12-02T09:00:00" || payload.EndISO != "2025-12-02T10:00:00" {
		t.Fatalf("unexpected window: %s - %s", payload.StartISO, payload.EndISO)
	}
	if !payload.Calendar.OK || !payload.Email.OK {
		t.Fatalf("unconfigured notifications must simulate success: %+v", payload)
	}
}

func TestBookingConflictReturnsError(t *testing.T) {
	t.Parallel()

	store := schedule.NewMemoryStore()
	d := newTestDispatcher(store)
	args := map[string]any{
		"doctor_name":   "Dr. Ahuja",
		"patient_name":  "John",
		"patient_email": "john@example.com",
		"start_iso":     "2025-12-02T09:00:00",
	}
	caller := contractx.CallerContext{Role: contractx.RolePatient}

	first := d.Dispatch(context.Background(), ToolCreateAppointment, args, caller)
	if !first.OK {
		t.Fatalf("first booking failed: %s", first.Error)
	}

	second := d.Dispatch(context.Background(), ToolCreateAppointment, args, caller)
	if second.OK {
		t.Fatal("second booking for the same slot must fail")
	}
	if !strings.Contains(second.Error, "already booked") {
		t.Fatalf("unexpected conflict error: %s", second.Error)
	}

	doc, _ := store.FindDoctorByName(context.Background(), "Ahuja")
	appts, _ := store.AppointmentsOn(context.Background(), doc.ID, time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC))
	if len(appts) != 1 {
		t.Fatalf("conflict must not create a second row, got %d", len(appts))
	}
}

func TestBookingUnknownDoctor(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(schedule.NewMemoryStore())
	result := d.Dispatch(context.Background(), ToolCreateAppointment, map[string]any{
		"doctor_name":   "Dr. Nobody",
		"patient_name":  "John",
		"patient_email": "john@example.com",
		"start_iso":     "2025-12-02T09:00",
	}, contractx.CallerContext{Role: contractx.RolePatient})

	if result.OK {
		t.Fatal("expected not-found failure")
	}
	if !strings.Contains(result.Error, "not found") {
		t.Fatalf("unexpected error: %s", result.Error)
	}
}

func TestReportCountsAndBreakdown(t *testing.T) {
	t.Parallel()

	store := schedule.NewMemoryStore()
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 1, 9, 0, 0, 0, time.UTC), "fever")
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 2, 9, 0, 0, 0, time.UTC), "fever")
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 2, 10, 0, 0, 0, time.UTC), "checkup")
	mustBook(t, store, "Ahuja", time.Date(2025, 12, 3, 9, 0, 0, 0, time.UTC), "")

	d := newTestDispatcher(store)
	result := d.Dispatch(context.Background(), ToolDoctorReport, map[string]any{
		"doctor_name": "Dr. Ahuja",
		"ref_date":    "2025-12-02",
	}, contractx.CallerContext{Role: contractx.RoleDoctor})

	if !result.OK {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	payload := result.Result.(ReportResult)
	stats := payload.RawStats
	if stats.PatientsYesterday != 1 || stats.PatientsToday != 2 || stats.PatientsTomorrow != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if len(stats.TopReasons) != 2 || stats.TopReasons[0].Reason != "fever" {
		t.Fatalf("unexpected breakdown: %+v", stats.TopReasons)
	}
	if !strings.Contains(payload.SummaryText, "Patients today: 2") {
		t.Fatalf("summary text missing counts: %s", payload.SummaryText)
	}
	if !strings.Contains(payload.SummaryText, "Fever: 2") {
		t.Fatalf("summary text missing breakdown: %s", payload.SummaryText)
	}
	// Webhook is unconfigured, so the outcome simulates but nothing was sent.
	if payload.NotificationSent {
		t.Fatal("simulated webhook must not count as sent")
	}
}

func TestReportDefaultRefDateUsesClock(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(schedule.NewMemoryStore())
	result := d.Dispatch(context.Background(), ToolDoctorReport, map[string]any{
		"doctor_name": "Dr. Mehta",
	}, contractx.CallerContext{Role: contractx.RoleDoctor})

	payload := result.Result.(ReportResult)
	if payload.RefDate != "2025-12-02" {
		t.Fatalf("expected injected today, got %s", payload.RefDate)
	}
}

func TestReportSendNotificationFalseSkipsWebhook(t *testing.T) {
	t.Parallel()

	registry := NewRegistry(Deps{
		Store:    schedule.NewMemoryStore(),
		Notifier: notify.NewServiceWith(nil, nil, zerolog.Nop()),
		Now:      fixedNow,
	})
	d := NewDispatcher(registry, zerolog.Nop(), nil)

	result := d.Dispatch(context.Background(), ToolDoctorReport, map[string]any{
		"doctor_name":       "Dr. Mehta",
		"send_notification": false,
	}, contractx.CallerContext{Role: contractx.RoleDoctor})

	payload := result.Result.(ReportResult)
	if payload.Notification.Source != "" {
		t.Fatalf("webhook should not have been attempted: %+v", payload.Notification)
	}
}

func TestArgsCoercion(t *testing.T) {
	t.Parallel()

	args := Args{
		"s":    "  padded  ",
		"n":    float64(42),
		"b":    true,
		"bstr": "true",
	}
	if got := args.String("s"); got != "padded" {
		t.Fatalf("unexpected string: %q", got)
	}
	if got := args.String("n"); got != "42" {
		t.Fatalf("unexpected number coercion: %q", got)
	}
	if !args.Bool("b", false) || !args.Bool("bstr", false) {
		t.Fatal("bool coercion failed")
	}
	if !args.Bool("missing", true) {
		t.Fatal("missing bool must fall back")
	}
	if got := args.String("missing"); got != "" {
		t.Fatalf("missing key must read empty: %q", got)
	}
}
