package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/livekit/protocol/auth"
	"github.com/livekit/protocol/livekit"
	"github.com/livekit/protocol/webhook"
	"google.golang.org/protobuf/encoding/protojson"

	"github.com/PabloGalante/practerview-agent/internal/app/dispatch"
	"github.com/PabloGalante/practerview-agent/internal/app/report"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

const maxWebhookBody = 1 << 20

// Sessions is the part of the dispatcher the agent API needs.
type Sessions interface {
	Dispatch(ctx context.Context, room domain.RoomName) (bool, error)
	Active() []domain.SessionInfo
	Info(room domain.RoomName) (domain.SessionInfo, bool)
}

type AgentServerOptions struct {
	Sessions    Sessions
	Transcripts domain.TranscriptStore
	Reports     *report.Service
	// Keys may be nil to accept unsigned webhooks (local development).
	Keys    auth.KeyProvider
	Metrics *observability.Metrics
}

type AgentServer struct {
	sessions    Sessions
	transcripts domain.TranscriptStore
	reports     *report.Service
	keys        auth.KeyProvider
}

func NewAgentServer(opts AgentServerOptions) http.Handler {
	s := &AgentServer{
		sessions:    opts.Sessions,
		transcripts: opts.Transcripts,
		reports:     opts.Reports,
		keys:        opts.Keys,
	}
	mux := http.NewServeMux()

	// /webhook → LiveKit room events (POST)
	mux.HandleFunc("/webhook", s.handleWebhook)

	// /sessions → running sessions (GET)
	mux.HandleFunc("/sessions", s.handleSessions)

	// /sessions/{room}         → GET: session info + transcript
	// /sessions/{room}/report  → GET: saved reports, POST: generate a new one
	mux.HandleFunc("/sessions/", s.handleSessionWithRoom)

	mux.HandleFunc("/healthz", handleHealthz)
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	return chainMiddlewares(mux, withRecover, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type webhookResponse struct {
	Event      string `json:"event"`
	Room       string `json:"room,omitempty"`
	Dispatched bool   `json:"dispatched"`
	Ignored    string `json:"ignored,omitempty"`
}

type sessionResponse struct {
	Room      string    `json:"room"`
	Type      string    `json:"type"`
	State     string    `json:"state"`
	StartedAt time.Time `json:"started_at"`
}

type itemResponse struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type getSessionResponse struct {
	Room       string           `json:"room"`
	Session    *sessionResponse `json:"session,omitempty"`
	Transcript []itemResponse   `json:"transcript"`
}

type generateReportRequest struct {
	Type  string `json:"type,omitempty"`
	Focus string `json:"focus,omitempty"`
}

type reportResponse struct {
	ID         string    `json:"id"`
	Room       string    `json:"room"`
	Type       string    `json:"type"`
	Rating     string    `json:"rating"`
	Summary    string    `json:"summary"`
	Assessment string    `json:"assessment"`
	Items      int       `json:"items"`
	CreatedAt  time.Time `json:"created_at"`
}

// ─────────────────────────────────────────────
// Basic routing
// ─────────────────────────────────────────────

// /sessions
func (s *AgentServer) handleSessions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		active := s.sessions.Active()
		out := make([]sessionResponse, 0, len(active))
		for _, info := range active {
			out = append(out, toSessionResponse(info))
		}
		writeJSON(w, http.StatusOK, map[string]any{"sessions": out})
	default:
		methodNotAllowed(w)
	}
}

// /sessions/{room} or /sessions/{room}/report
func (s *AgentServer) handleSessionWithRoom(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/sessions/")
	parts := strings.Split(path, "/")
	room := domain.RoomName(parts[0])
	if room == "" {
		http.NotFound(w, r)
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			s.handleGetSession(w, r, room)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "report" {
		switch r.Method {
		case http.MethodGet:
			s.handleListReports(w, r, room)
		case http.MethodPost:
			s.handleGenerateReport(w, r, room)
		default:
			methodNotAllowed(w)
		}
		return
	}

	http.NotFound(w, r)
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *AgentServer) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	ev, err := s.readWebhook(w, r)
	if err != nil {
		if errors.Is(err, errUnverified) {
			observability.LoggerFromContext(r.Context()).Warn("webhook rejected", "error", err)
			unauthorized(w, "invalid webhook signature")
			return
		}
		badRequest(w, "invalid webhook body")
		return
	}

	resp := webhookResponse{Event: ev.GetEvent(), Room: ev.GetRoom().GetName()}

	switch {
	case resp.Event != webhook.EventRoomStarted && resp.Event != webhook.EventParticipantJoined:
		resp.Ignored = "event"
	case resp.Room == "":
		resp.Ignored = "no room"
	case ev.GetParticipant().GetKind() == livekit.ParticipantInfo_AGENT:
		resp.Ignored = "agent participant"
	default:
		started, err := s.sessions.Dispatch(r.Context(), domain.RoomName(resp.Room))
		switch {
		case errors.Is(err, dispatch.ErrRoomRejected):
			resp.Ignored = "room"
		case err != nil:
			internalError(w, r, err)
			return
		default:
			resp.Dispatched = started
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *AgentServer) handleGetSession(w http.ResponseWriter, r *http.Request, room domain.RoomName) {
	items, err := s.transcripts.ItemsByRoom(room, queryLimit(r))
	if err != nil {
		internalError(w, r, err)
		return
	}

	info, active := s.sessions.Info(room)
	if !active && len(items) == 0 {
		notFound(w, "session not found")
		return
	}

	resp := getSessionResponse{
		Room:       string(room),
		Transcript: toItemsResponse(items),
	}
	if active {
		sr := toSessionResponse(info)
		resp.Session = &sr
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *AgentServer) handleListReports(w http.ResponseWriter, r *http.Request, room domain.RoomName) {
	reports, err := s.reports.History(r.Context(), room, queryLimit(r))
	if err != nil {
		internalError(w, r, err)
		return
	}

	out := make([]reportResponse, 0, len(reports))
	for _, rep := range reports {
		out = append(out, toReportResponse(rep))
	}
	writeJSON(w, http.StatusOK, map[string]any{"reports": out})
}

func (s *AgentServer) handleGenerateReport(w http.ResponseWriter, r *http.Request, room domain.RoomName) {
	var req generateReportRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(w, "invalid JSON body")
			return
		}
	}

	t := domain.InterviewType(strings.TrimSpace(req.Type))
	if t == "" {
		if info, ok := s.sessions.Info(room); ok {
			t = info.InterviewType
		}
	}

	rep, err := s.reports.Generate(r.Context(), report.GenerateInput{
		Room:          room,
		InterviewType: t,
		Focus:         req.Focus,
	})
	if err != nil {
		if errors.Is(err, report.ErrNoTranscript) {
			notFound(w, err.Error())
			return
		}
		internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toReportResponse(rep))
}

var errUnverified = errors.New("webhook not verified")

// readWebhook decodes a LiveKit webhook body, checking its signed body hash
// when keys are configured.
func (s *AgentServer) readWebhook(w http.ResponseWriter, r *http.Request) (*livekit.WebhookEvent, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBody)

	var (
		body []byte
		err  error
	)
	if s.keys != nil {
		body, err = webhook.Receive(r, s.keys)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", errUnverified, err)
		}
	} else {
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, err
		}
	}

	ev := &livekit.WebhookEvent{}
	opts := protojson.UnmarshalOptions{DiscardUnknown: true, AllowPartial: true}
	if err := opts.Unmarshal(body, ev); err != nil {
		return nil, err
	}
	return ev, nil
}

// ─────────────────────────────────────────────
// Session Helpers
// ─────────────────────────────────────────────

func queryLimit(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func toSessionResponse(info domain.SessionInfo) sessionResponse {
	return sessionResponse{
		Room:      string(info.Room),
		Type:      string(info.InterviewType),
		State:     string(info.State),
		StartedAt: info.StartedAt,
	}
}

func toItemsResponse(items []domain.TranscriptItem) []itemResponse {
	out := make([]itemResponse, 0, len(items))
	for _, it := range items {
		out = append(out, itemResponse{
			Author:    string(it.Author),
			Text:      it.Text,
			CreatedAt: it.CreatedAt,
		})
	}
	return out
}

func toReportResponse(r *domain.Report) reportResponse {
	return reportResponse{
		ID:         string(r.ID),
		Room:       string(r.Room),
		Type:       string(r.InterviewType),
		Rating:     string(r.Rating),
		Summary:    r.Summary,
		Assessment: r.Assessment,
		Items:      r.Items,
		CreatedAt:  r.CreatedAt,
	}
}
