package httpadapter_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/PabloGalante/practerview-agent/internal/adapters/http"
	"github.com/PabloGalante/practerview-agent/internal/adapters/token"
	"github.com/PabloGalante/practerview-agent/internal/app/credentials"
	"github.com/PabloGalante/practerview-agent/internal/observability"
)

func newIssuer(t *testing.T, key, secret, fixedRoom string) (http.Handler, *token.Signer) {
	t.Helper()

	signer := token.NewSigner(key, secret, 0)
	svc := credentials.NewService(credentials.Options{
		Signer:    signer,
		URL:       "wss://lk.example",
		FixedRoom: fixedRoom,
	})
	return httpadapter.NewIssuerServer(svc, observability.NewMetrics("test")), signer
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestGetTokenReturnsCredential(t *testing.T) {
	srv, signer := newIssuer(t, "key", "secret", "")

	w := get(srv, "/getToken?type=backend")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "wss://lk.example", body["url"])
	assert.Equal(t, "backend", body["type"])
	assert.Equal(t, "backend-interview", body["room"])
	assert.True(t, strings.HasPrefix(body["identity"], "user-"))

	claims, err := signer.Parse(body["token"])
	require.NoError(t, err)
	assert.Equal(t, body["identity"], claims.Subject)
	assert.Equal(t, "Candidate", claims.Name)
	assert.JSONEq(t, `{"type":"backend"}`, claims.Metadata)
	assert.Equal(t, "backend-interview", claims.Video.Room)
	assert.True(t, claims.Video.RoomJoin)
}

func TestGetTokenDefaultsType(t *testing.T) {
	srv, _ := newIssuer(t, "key", "secret", "")

	for _, target := range []string{"/getToken", "/getToken?type="} {
		w := get(srv, target)
		require.Equal(t, http.StatusOK, w.Code)

		var body map[string]string
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "default", body["type"])
		assert.Equal(t, "default-interview", body["room"])
	}
}

func TestGetTokenFixedRoomOmitsRoom(t *testing.T) {
	srv, signer := newIssuer(t, "key", "secret", "interview-room")

	w := get(srv, "/getToken?type=hr")
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	_, hasRoom := body["room"]
	assert.False(t, hasRoom)

	claims, err := signer.Parse(body["token"].(string))
	require.NoError(t, err)
	assert.Equal(t, "interview-room", claims.Video.Room)
}

func TestGetTokenSigningFailure(t *testing.T) {
	srv, _ := newIssuer(t, "", "", "")

	w := get(srv, "/getToken?type=hr")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, token.ErrMissingCredentials.Error(), body["error"])
}

func TestGetTokenInvalidLabel(t *testing.T) {
	srv, _ := newIssuer(t, "key", "secret", "")

	w := get(srv, "/getToken?type=a%20b")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOptionsOnAnyPath(t *testing.T) {
	srv, _ := newIssuer(t, "key", "secret", "")

	for _, target := range []string{"/getToken", "/anything/else", "/"} {
		w := httptest.NewRecorder()
		srv.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, target, nil))

		assert.Equal(t, http.StatusOK, w.Code, target)
		assert.Empty(t, w.Body.String(), target)
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "GET")
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv, _ := newIssuer(t, "key", "secret", "")

	w := get(srv, "/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthzAndMetrics(t *testing.T) {
	srv, _ := newIssuer(t, "key", "secret", "")

	assert.Equal(t, http.StatusOK, get(srv, "/healthz").Code)

	_ = get(srv, "/getToken?type=hr")
	w := get(srv, "/metrics")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `test_credentials_issued_total{type="hr"} 1`)
}
