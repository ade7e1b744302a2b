package notify

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmail struct {
	err   error
	calls int
}

func (s *stubEmail) Send(ctx context.Context, to, subject, body string) error {
	s.calls++
	return s.err
}

func TestUnconfiguredSendersSimulateSuccess(t *testing.T) {
	t.Parallel()

	svc := NewServiceWith(nil, nil, zerolog.Nop())
	ctx := context.Background()

	out := svc.EmailConfirmation(ctx, "p@example.com", "subject", "body")
	assert.True(t, out.OK)
	assert.Equal(t, "simulated_email", out.Source)

	out = svc.DoctorWebhook(ctx, "report")
	assert.True(t, out.OK)
	assert.Equal(t, "simulated_webhook", out.Source)

	out = svc.CalendarInvite(ctx, "Dr. Ahuja", "John", "2025-12-02T09:00:00", "2025-12-02T10:00:00")
	assert.True(t, out.OK)
	assert.Equal(t, "simulated_calendar", out.Source)
	assert.Contains(t, out.Detail, "Dr. Ahuja")
}

func TestEmailConfirmationReportsSenderFailure(t *testing.T) {
	t.Parallel()

	sender := &stubEmail{err: errors.New("boom")}
	svc := NewServiceWith(sender, nil, zerolog.Nop())

	out := svc.EmailConfirmation(context.Background(), "p@example.com", "s", "b")
	assert.False(t, out.OK)
	assert.Equal(t, "email", out.Source)
	assert.Contains(t, out.Detail, "boom")
	assert.Equal(t, 1, sender.calls)
}

func TestWebhookClientPostsJSON(t *testing.T) {
	t.Parallel()

	var gotBody string
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, r.ContentLength)
		_, _ = r.Body.Read(buf)
		gotBody = string(buf)
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, "secret", 0)
	require.NotNil(t, client)
	require.NoError(t, client.Post(context.Background(), "hello doctor"))
	assert.Contains(t, gotBody, "hello doctor")
	assert.Equal(t, "Bearer secret", gotAuth)
}

func TestWebhookClientRejectsErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewWebhookClient(srv.URL, "", 0)
	err := client.Post(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestNewWebhookClientEmptyURL(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewWebhookClient("  ", "tok", 0))
}

func TestNewSendGridSenderEmptyKey(t *testing.T) {
	t.Parallel()

	assert.Nil(t, NewSendGridSender("", "Clinic", "clinic@example.com"))
}
