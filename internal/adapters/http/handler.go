package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PabloGalante/practerview-agent/internal/app/credentials"
	"github.com/PabloGalante/practerview-agent/internal/domain"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

type IssuerServer struct {
	svc     *credentials.Service
	metrics *observability.Metrics
}

// NewIssuerServer serves candidate credentials. Every response is open to
// any origin. A type label outside [A-Za-z0-9_-]{1,64} cannot name a room
// and gets a 400 instead of a credential.
func NewIssuerServer(svc *credentials.Service, metrics *observability.Metrics) http.Handler {
	s := &IssuerServer{svc: svc, metrics: metrics}
	mux := http.NewServeMux()

	// /getToken?type=<label> → signed room credential (GET)
	mux.HandleFunc("/getToken", s.handleGetToken)
	mux.HandleFunc("/healthz", handleHealthz)
	if metrics != nil {
		mux.Handle("/metrics", metrics.Handler())
	}

	return chainMiddlewares(mux, withRecover, withLogging, withRequestID, withCORS)
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type tokenResponse struct {
	Token    string `json:"token"`
	URL      string `json:"url"`
	Identity string `json:"identity"`
	Type     string `json:"type"`
	Room     string `json:"room,omitempty"`
}

// ─────────────────────────────────────────────
// Concrete handlers
// ─────────────────────────────────────────────

func (s *IssuerServer) handleGetToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}

	log := observability.LoggerFromContext(r.Context())

	cred, err := s.svc.Issue(r.Context(), credentials.IssueInput{
		Type: r.URL.Query().Get("type"),
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.CredentialsFailed.Inc()
		}
		if errors.Is(err, credentials.ErrInvalidType) {
			badRequest(w, err.Error())
			return
		}
		log.Error("error generating token", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error": err.Error(),
		})
		return
	}

	log.Info("generated token", "room", cred.Room, "type", cred.Type, "identity", cred.Identity)
	if s.metrics != nil {
		s.metrics.CredentialsIssued.WithLabelValues(string(cred.Type)).Inc()
	}

	writeJSON(w, http.StatusOK, toTokenResponse(cred))
}

func toTokenResponse(c *domain.Credential) tokenResponse {
	resp := tokenResponse{
		Token:    c.Token,
		URL:      c.URL,
		Identity: string(c.Identity),
		Type:     string(c.Type),
	}
	if !c.FixedRoom {
		resp.Room = string(c.Room)
	}
	return resp
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ─────────────────────────────────────────────
// HTTP Helpers
// ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": msg,
	})
}

func notFound(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": msg,
	})
}

func unauthorized(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusUnauthorized, map[string]string{
		"error": msg,
	})
}

func internalError(w http.ResponseWriter, r *http.Request, err error) {
	observability.LoggerFromContext(r.Context()).Error("request failed", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": "internal server error",
	})
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{
		"error": "method not allowed",
	})
}
