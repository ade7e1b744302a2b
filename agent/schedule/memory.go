package schedule

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-process Store used when no database is configured and
// by tests. The conflict check and insert share one lock, so double booking
// cannot slip through concurrent calls.
type MemoryStore struct {
	mu           sync.Mutex
	doctors      []Doctor
	appointments []Appointment
	nextDoctorID int64
	nextApptID   int64
}

func NewMemoryStore(doctors ...Doctor) *MemoryStore {
	if len(doctors) == 0 {
		doctors = SeedDoctors
	}
	s := &MemoryStore{nextDoctorID: 1, nextApptID: 1}
	for _, d := range doctors {
		d.ID = s.nextDoctorID
		s.nextDoctorID++
		s.doctors = append(s.doctors, d)
	}
	return s
}

func (s *MemoryStore) FindDoctorByName(_ context.Context, name string) (*Doctor, error) {
	needle := strings.ToLower(strings.TrimSpace(name))
	if needle == "" {
		return nil, ErrDoctorNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.doctors {
		if strings.Contains(strings.ToLower(s.doctors[i].Name), needle) {
			d := s.doctors[i]
			return &d, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (s *MemoryStore) AppointmentsOn(_ context.Context, doctorID int64, day time.Time) ([]Appointment, error) {
	from, to := dayBounds(day)

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Appointment
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && !a.StartAt.Before(from) && a.StartAt.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *MemoryStore) CreateAppointment(_ context.Context, appt *Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.appointments {
		if existing.DoctorID == appt.DoctorID && existing.StartAt.Equal(appt.StartAt) {
			return ErrSlotTaken
		}
	}

	appt.ID = s.nextApptID
	s.nextApptID++
	s.appointments = append(s.appointments, *appt)
	return nil
}

func (s *MemoryStore) CountOn(_ context.Context, doctorID int64, day time.Time) (int, error) {
	from, to := dayBounds(day)

	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, a := range s.appointments {
		if a.DoctorID == doctorID && !a.StartAt.Before(from) && a.StartAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) ReasonCounts(_ context.Context, doctorID int64) ([]ReasonCount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	counts := make(map[string]int)
	var order []string
	for _, a := range s.appointments {
		if a.DoctorID != doctorID {
			continue
		}
		reason := strings.ToLower(strings.TrimSpace(a.Reason))
		if reason == "" {
			continue
		}
		if _, seen := counts[reason]; !seen {
			order = append(order, reason)
		}
		counts[reason]++
	}

	out := make([]ReasonCount, 0, len(order))
	for _, reason := range order {
		out = append(out, ReasonCount{Reason: reason, Count: counts[reason]})
	}
	// Stable sort keeps first-seen order among equal counts.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	return out, nil
}
