package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contractx "github.com/careline/clinic-agent/agent/contract"
	"github.com/careline/clinic-agent/agent/driver"
	"github.com/careline/clinic-agent/agent/intent"
	"github.com/careline/clinic-agent/agent/schedule"
	"github.com/careline/clinic-agent/agent/session"
	"github.com/careline/clinic-agent/agent/tool"
	"github.com/careline/clinic-agent/pkg/notify"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	now := func() time.Time { return time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC) }
	registry := tool.NewRegistry(tool.Deps{
		Store:    schedule.NewMemoryStore(),
		Notifier: notify.NewServiceWith(nil, nil, zerolog.Nop()),
		Now:      now,
	})
	dispatcher := tool.NewDispatcher(registry, zerolog.Nop(), nil)
	responder := intent.NewResponder(dispatcher, "", now)
	sessions := session.NewStore(session.WithClock(now))
	d := driver.New(sessions, dispatcher, responder, zerolog.Nop())
	return Router(NewHandler(d, zerolog.Nop()), nil)
}

func postAI(t *testing.T, router http.Handler, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/ai", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestConverseCreatesSession(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := postAI(t, router, `{"message":"Is Dr. Ahuja available today?"}`,
		map[string]string{HeaderCallerRole: "patient"})

	require.Equal(t, http.StatusOK, rec.Code)
	var result contractx.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, contractx.ModeFallback, result.Mode)
	assert.Contains(t, result.Reply, "Dr. Ahuja")
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, tool.ToolDoctorAvailability, result.ToolCalls[0].Tool)
}

func TestConverseReusesSession(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	first := postAI(t, router, `{"message":"hello"}`, map[string]string{HeaderCallerRole: "patient"})
	require.Equal(t, http.StatusOK, first.Code)

	var started contractx.TurnResult
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &started))

	second := postAI(t, router, `{"session_id":"`+started.SessionID+`","message":"anything free with Dr. Roy today?"}`,
		map[string]string{HeaderCallerRole: "patient"})
	require.Equal(t, http.StatusOK, second.Code)

	var followup contractx.TurnResult
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &followup))
	assert.Equal(t, started.SessionID, followup.SessionID)
}

func TestConverseRejectsEmptyMessage(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := postAI(t, router, `{"message":"   "}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "message is required")
}

func TestConverseRejectsBadJSON(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := postAI(t, router, `{"message":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDoctorRoleHeaderReachesRoleGate(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)

	asPatient := postAI(t, router, `{"message":"summary report for Dr. Sharma"}`,
		map[string]string{HeaderCallerRole: "patient"})
	require.Equal(t, http.StatusOK, asPatient.Code)
	assert.Contains(t, asPatient.Body.String(), "only available to doctors")

	asDoctor := postAI(t, router, `{"message":"summary report for Dr. Sharma"}`,
		map[string]string{HeaderCallerRole: "Doctor", HeaderCallerIdentity: "Dr. Sharma"})
	require.Equal(t, http.StatusOK, asDoctor.Code)
	assert.Contains(t, asDoctor.Body.String(), "Summary report for Dr. Sharma")
}

func TestUnknownRoleTreatedAsUnauthenticated(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := postAI(t, router, `{"message":"summary report for Dr. Sharma"}`,
		map[string]string{HeaderCallerRole: "superuser"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "only available to doctors")
}

func TestTranscriptRoundTrip(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	rec := postAI(t, router, `{"message":"hello there"}`, map[string]string{HeaderCallerRole: "patient"})
	require.Equal(t, http.StatusOK, rec.Code)

	var result contractx.TurnResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	req := httptest.NewRequest(http.MethodGet, "/api/session/"+result.SessionID, nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	require.Equal(t, http.StatusOK, res.Code)
	var transcript transcriptResponse
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &transcript))
	assert.Equal(t, result.SessionID, transcript.SessionID)
	require.Len(t, transcript.Turns, 2)
	assert.Equal(t, contractx.TurnUser, transcript.Turns[0].Role)
	assert.Equal(t, "hello there", transcript.Turns[0].Content)
}

func TestTranscriptUnknownSession(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/session/does-not-exist", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "session not found")
}

func TestHealth(t *testing.T) {
	t.Parallel()

	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}
