// Package intent implements the rule-based understanding used when no
// language model is configured or a model exchange fails mid-turn.
package intent

import (
	"regexp"
	"strings"
	"time"
)

// Kind labels what the patient or doctor appears to be asking for.
type Kind string

const (
	KindUnknown      Kind = "unknown"
	KindAvailability Kind = "availability"
	KindBooking      Kind = "booking"
	KindReport       Kind = "report"
)

// Intent is the structured reading of a single free-text message. Zero
// values mean the message did not mention that piece of information.
type Intent struct {
	Kind     Kind
	Doctor   string
	Patient  string
	Date     string // YYYY-MM-DD
	StartISO string // YYYY-MM-DDTHH:MM:SS
}

var (
	doctorTitleRe = regexp.MustCompile(`(?i)\bdr\.?\s+([a-zA-Z]+)`)
	doctorWordRe  = regexp.MustCompile(`(?i)\bdoctor\s+([a-zA-Z]+)`)
	timestampRe   = regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2})?`)
	dateRe        = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)
	patientRe     = regexp.MustCompile(`(?i)\bfor\s+([A-Za-z]+(?:\s+[A-Za-z]+)?)`)
)

var reportWords = []string{"report", "summary", "how many patients", "stats"}

var availabilityWords = []string{"available", "availability", "free slot", "free time", "opening", "schedule for"}

var bookingWords = []string{"book", "appointment", "reserve", "schedule an", "schedule me"}

// Classify reads a message into an Intent. It is total: any input yields a
// valid Intent, with KindUnknown when nothing matched. Relative day words
// are resolved against now.
func Classify(message string, now time.Time) Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	it := Intent{Kind: KindUnknown}
	if text == "" {
		return it
	}

	it.Doctor = extractDoctor(message)
	it.Patient = extractPatient(message)
	it.Date = extractDate(text, now)

	if ts := timestampRe.FindString(message); ts != "" {
		if len(ts) == len("2006-01-02T15:04") {
			ts += ":00"
		}
		it.StartISO = ts
		it.Date = ts[:10]
	}

	switch {
	case containsAny(text, reportWords):
		it.Kind = KindReport
	case it.StartISO != "" && containsAny(text, bookingWords):
		it.Kind = KindBooking
	case containsAny(text, availabilityWords):
		it.Kind = KindAvailability
	case containsAny(text, bookingWords):
		// A booking request without a concrete time is answered by
		// offering slots, so it routes through availability.
		it.Kind = KindBooking
	}
	return it
}

func extractDoctor(message string) string {
	if m := doctorTitleRe.FindStringSubmatch(message); m != nil {
		return "Dr. " + capitalize(m[1])
	}
	if m := doctorWordRe.FindStringSubmatch(message); m != nil {
		return "Dr. " + capitalize(m[1])
	}
	return ""
}

func extractPatient(message string) string {
	m := patientRe.FindStringSubmatch(message)
	if m == nil {
		return ""
	}
	name := strings.TrimSpace(m[1])
	// "for tomorrow" and similar are time phrases, not patients.
	switch strings.ToLower(strings.Fields(name)[0]) {
	case "today", "tomorrow", "yesterday", "me", "an", "a", "the", "next", "dr":
		return ""
	}
	return name
}

func extractDate(text string, now time.Time) string {
	switch {
	case strings.Contains(text, "tomorrow"):
		return now.AddDate(0, 0, 1).Format("2006-01-02")
	case strings.Contains(text, "yesterday"):
		return now.AddDate(0, 0, -1).Format("2006-01-02")
	case strings.Contains(text, "today"):
		return now.Format("2006-01-02")
	}
	return dateRe.FindString(text)
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}
