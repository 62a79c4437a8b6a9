package avatar_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/practerview-agent/internal/adapters/avatar"
	"github.com/PabloGalante/practerview-agent/internal/domain"
)

type stubSigner struct {
	err error
	req domain.AccessRequest
}

func (s *stubSigner) Sign(req domain.AccessRequest) (string, error) {
	s.req = req
	if s.err != nil {
		return "", s.err
	}
	return "avatar-token", nil
}

type stubRoom struct{}

func (stubRoom) Name() domain.RoomName                           { return "hr-interview" }
func (stubRoom) LocalIdentity() domain.ParticipantIdentity       { return "practerview-agent" }
func (stubRoom) RemoteParticipants() []domain.Participant        { return nil }
func (stubRoom) OnParticipantJoined(fn func(domain.Participant)) {}
func (stubRoom) Disconnect()                                     {}

func (stubRoom) OpenAudio(context.Context, domain.AudioOptions) (domain.AudioStream, error) {
	return nil, errors.New("not used")
}

type recorded struct {
	method string
	path   string
	apiKey string
	body   map[string]any
}

type tavusServer struct {
	*httptest.Server

	mu       sync.Mutex
	requests []recorded
	status   int
}

func newTavusServer(t *testing.T) *tavusServer {
	t.Helper()
	ts := &tavusServer{status: http.StatusOK}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path, apiKey: r.Header.Get("x-api-key")}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)

		ts.mu.Lock()
		ts.requests = append(ts.requests, rec)
		status := ts.status
		ts.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"message":"replica not found"}`))
			return
		}
		if r.URL.Path == "/v2/conversations" {
			_, _ = w.Write([]byte(`{"conversation_id":"c123","status":"active"}`))
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func (ts *tavusServer) recorded() []recorded {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return append([]recorded(nil), ts.requests...)
}

func newClient(t *testing.T, ts *tavusServer, signer *stubSigner) *avatar.Client {
	t.Helper()
	return avatar.NewClient(avatar.Options{
		APIKey:     "tvs-key",
		BaseURL:    ts.URL + "/",
		ReplicaID:  "r1",
		PersonaID:  "p1",
		LiveKitURL: "wss://lk.example.com",
		Signer:     signer,
	})
}

func TestAttachReportsMissingSettings(t *testing.T) {
	ts := newTavusServer(t)
	signer := &stubSigner{}

	_, err := avatar.NewClient(avatar.Options{BaseURL: ts.URL, ReplicaID: "r1", Signer: signer}).
		Attach(context.Background(), stubRoom{})
	assert.ErrorIs(t, err, avatar.ErrMissingAPIKey)

	_, err = avatar.NewClient(avatar.Options{BaseURL: ts.URL, APIKey: "k", Signer: signer}).
		Attach(context.Background(), stubRoom{})
	assert.ErrorIs(t, err, avatar.ErrMissingReplica)

	assert.Empty(t, ts.recorded())
	assert.Empty(t, signer.req.Identity)
}

func TestAttachCreatesConversation(t *testing.T) {
	ts := newTavusServer(t)
	signer := &stubSigner{}

	h, err := newClient(t, ts, signer).Attach(context.Background(), stubRoom{})
	require.NoError(t, err)
	require.NotNil(t, h)
	assert.Equal(t, domain.ParticipantIdentity(avatar.Identity), h.Identity())

	assert.Equal(t, domain.ParticipantIdentity(avatar.Identity), signer.req.Identity)
	assert.Equal(t, domain.RoomName("hr-interview"), signer.req.Room)
	assert.Equal(t, domain.KindAgent, signer.req.Kind)
	assert.True(t, signer.req.Agent)
	assert.Equal(t, "practerview-agent", signer.req.Attributes[avatar.PublishOnBehalfAttribute])

	reqs := ts.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].method)
	assert.Equal(t, "/v2/conversations", reqs[0].path)
	assert.Equal(t, "tvs-key", reqs[0].apiKey)
	assert.Equal(t, "r1", reqs[0].body["replica_id"])
	assert.Equal(t, "p1", reqs[0].body["persona_id"])

	props, ok := reqs[0].body["properties"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "wss://lk.example.com", props["livekit_ws_url"])
	assert.Equal(t, "avatar-token", props["livekit_room_token"])
}

func TestCloseEndsConversation(t *testing.T) {
	ts := newTavusServer(t)

	h, err := newClient(t, ts, &stubSigner{}).Attach(context.Background(), stubRoom{})
	require.NoError(t, err)
	require.NoError(t, h.Close(context.Background()))

	reqs := ts.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/v2/conversations/c123/end", reqs[1].path)
	assert.Equal(t, "tvs-key", reqs[1].apiKey)
}

func TestAttachAPIError(t *testing.T) {
	ts := newTavusServer(t)
	ts.status = http.StatusNotFound

	_, err := newClient(t, ts, &stubSigner{}).Attach(context.Background(), stubRoom{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "replica not found")
}

func TestAttachSignerError(t *testing.T) {
	ts := newTavusServer(t)
	signer := &stubSigner{err: errors.New("no secret")}

	_, err := newClient(t, ts, signer).Attach(context.Background(), stubRoom{})
	require.ErrorIs(t, err, signer.err)
	assert.Empty(t, ts.recorded())
}
