package httpadapter_test

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"

	httpadapter "github.com/PabloGalante/practerview-agent/internal/adapters/http"
	"github.com/PabloGalante/practerview-agent/internal/adapters/llm"
	"github.com/PabloGalante/practerview-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/practerview-agent/internal/app/dispatch"
	"github.com/PabloGalante/practerview-agent/internal/app/report"
	"github.com/PabloGalante/practerview-agent/internal/domain"
)

type fakeSessions struct {
	mu         sync.Mutex
	dispatched []domain.RoomName
	active     map[domain.RoomName]domain.SessionInfo
}

func (f *fakeSessions) Dispatch(_ context.Context, room domain.RoomName) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if room == "lobby" {
		return false, fmt.Errorf("%w: %s", dispatch.ErrRoomRejected, room)
	}
	for _, r := range f.dispatched {
		if r == room {
			return false, nil
		}
	}
	f.dispatched = append(f.dispatched, room)
	return true, nil
}

func (f *fakeSessions) Active() []domain.SessionInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.SessionInfo, 0, len(f.active))
	for _, info := range f.active {
		out = append(out, info)
	}
	return out
}

func (f *fakeSessions) Info(room domain.RoomName) (domain.SessionInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	info, ok := f.active[room]
	return info, ok
}

type agentFixture struct {
	srv         http.Handler
	sessions    *fakeSessions
	transcripts *memory.TranscriptStore
}

func newAgentFixture(t *testing.T, verify bool) *agentFixture {
	t.Helper()

	f := &agentFixture{
		sessions:    &fakeSessions{active: map[domain.RoomName]domain.SessionInfo{}},
		transcripts: memory.NewTranscriptStore(),
	}
	opts := httpadapter.AgentServerOptions{
		Sessions:    f.sessions,
		Transcripts: f.transcripts,
		Reports:     report.NewService(llm.NewMockLLM(), f.transcripts, memory.NewReportStore()),
	}
	if verify {
		opts.Keys = auth.NewSimpleKeyProvider("key", "secret")
	}
	f.srv = httpadapter.NewAgentServer(opts)
	return f
}

func (f *agentFixture) webhook(t *testing.T, body string, sign bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	if sign {
		req.Header.Set("Authorization", signWebhook(t, "secret", body))
	}
	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	return w
}

// signWebhook builds the Authorization value LiveKit sends with a webhook.
func signWebhook(t *testing.T, secret, body string) string {
	t.Helper()
	sum := sha256.Sum256([]byte(body))
	raw, err := auth.NewAccessToken("key", secret).
		SetValidFor(time.Minute).
		SetSha256(base64.StdEncoding.EncodeToString(sum[:])).
		ToJWT()
	require.NoError(t, err)
	return raw
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestWebhookDispatchesRoom(t *testing.T) {
	f := newAgentFixture(t, true)

	w := f.webhook(t, `{"event":"room_started","room":{"name":"hr-interview"}}`, true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["dispatched"])

	// duplicate notification
	w = f.webhook(t, `{"event":"participant_joined","room":{"name":"hr-interview"},"participant":{"identity":"user-1"}}`, true)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["dispatched"])

	assert.Equal(t, []domain.RoomName{"hr-interview"}, f.sessions.dispatched)
}

func TestWebhookIgnoresOtherEventsAndRooms(t *testing.T) {
	f := newAgentFixture(t, true)

	cases := []struct {
		body   string
		reason string
	}{
		{body: `{"event":"room_finished","room":{"name":"hr-interview"}}`, reason: "event"},
		{body: `{"event":"room_started","room":{"name":"lobby"}}`, reason: "room"},
		{body: `{"event":"room_started"}`, reason: "no room"},
		{body: `{"event":"participant_joined","room":{"name":"hr-interview"},"participant":{"kind":"AGENT"}}`, reason: "agent participant"},
	}
	for _, tc := range cases {
		w := f.webhook(t, tc.body, true)
		require.Equal(t, http.StatusOK, w.Code, tc.body)
		assert.Equal(t, tc.reason, decode(t, w)["ignored"], tc.body)
	}
	assert.Empty(t, f.sessions.dispatched)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	f := newAgentFixture(t, true)
	body := `{"event":"room_started","room":{"name":"hr-interview"}}`

	w := f.webhook(t, body, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// signed with another secret
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Authorization", signWebhook(t, "other", body))
	w = httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// hash of a different body
	req = httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	req.Header.Set("Authorization", signWebhook(t, "secret", `{"event":"room_finished"}`))
	w = httptest.NewRecorder()
	f.srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Empty(t, f.sessions.dispatched)
}

func TestWebhookDecodesLiveKitEvent(t *testing.T) {
	f := newAgentFixture(t, true)

	body, err := protojson.Marshal(&livekit.WebhookEvent{
		Event:       "participant_joined",
		Room:        &livekit.Room{Name: "backend-interview"},
		Participant: &livekit.ParticipantInfo{Identity: "tavus-avatar-agent", Kind: livekit.ParticipantInfo_AGENT},
		CreatedAt:   time.Now().Unix(),
	})
	require.NoError(t, err)

	w := f.webhook(t, string(body), true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "agent participant", decode(t, w)["ignored"])

	body, err = protojson.Marshal(&livekit.WebhookEvent{
		Event:       "participant_joined",
		Room:        &livekit.Room{Name: "backend-interview"},
		Participant: &livekit.ParticipantInfo{Identity: "user-1", Kind: livekit.ParticipantInfo_STANDARD},
	})
	require.NoError(t, err)

	w = f.webhook(t, string(body), true)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, true, decode(t, w)["dispatched"])
	assert.Equal(t, []domain.RoomName{"backend-interview"}, f.sessions.dispatched)
}

func TestWebhookWithoutVerifier(t *testing.T) {
	f := newAgentFixture(t, false)

	w := f.webhook(t, `{"event":"room_started","room":{"name":"hr-interview"}}`, false)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["dispatched"])

	w = f.webhook(t, `not json`, false)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetSessionWithTranscript(t *testing.T) {
	f := newAgentFixture(t, false)
	f.sessions.active["backend-interview"] = domain.SessionInfo{
		Room:          "backend-interview",
		InterviewType: "backend",
		State:         domain.StateGreetingSent,
		StartedAt:     time.Now(),
	}
	require.NoError(t, f.transcripts.AppendItem(domain.TranscriptItem{
		Room: "backend-interview", Author: domain.RoleAgent, Text: "Welcome.",
	}))

	w := get(f.srv, "/sessions/backend-interview")
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	session := body["session"].(map[string]any)
	assert.Equal(t, "backend", session["type"])
	assert.Equal(t, "greeting_sent", session["state"])
	transcript := body["transcript"].([]any)
	require.Len(t, transcript, 1)
	assert.Equal(t, "agent", transcript[0].(map[string]any)["author"])

	list := decode(t, get(f.srv, "/sessions"))
	assert.Len(t, list["sessions"].([]any), 1)
}

func TestGetUnknownSession(t *testing.T) {
	f := newAgentFixture(t, false)

	assert.Equal(t, http.StatusNotFound, get(f.srv, "/sessions/missing").Code)
	assert.Equal(t, http.StatusNotFound, get(f.srv, "/sessions/missing/other").Code)
}

func TestGenerateAndListReports(t *testing.T) {
	f := newAgentFixture(t, false)
	f.sessions.active["hr-interview"] = domain.SessionInfo{Room: "hr-interview", InterviewType: "hr"}
	for _, it := range []domain.TranscriptItem{
		{Room: "hr-interview", Author: domain.RoleAgent, Text: "Tell me about a conflict."},
		{Room: "hr-interview", Author: domain.RoleUser, Text: "I mediated a release dispute."},
	} {
		require.NoError(t, f.transcripts.AppendItem(it))
	}

	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/hr-interview/report", nil))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	created := decode(t, w)
	assert.Equal(t, "hr", created["type"])
	assert.Equal(t, "mixed", created["rating"])

	list := decode(t, get(f.srv, "/sessions/hr-interview/report"))
	reports := list["reports"].([]any)
	require.Len(t, reports, 1)
	assert.Equal(t, created["id"], reports[0].(map[string]any)["id"])
}

func TestGenerateReportWithoutTranscript(t *testing.T) {
	f := newAgentFixture(t, false)

	w := httptest.NewRecorder()
	f.srv.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions/hr-interview/report",
		bytes.NewBufferString(`{"type":"hr"}`)))
	assert.Equal(t, http.StatusNotFound, w.Code)
}
