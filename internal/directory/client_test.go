package directory

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-chat/internal/config"
	"github.com/spec-kit/ticket-chat/internal/domain"
	apperrors "github.com/spec-kit/ticket-chat/pkg/util/errorutil"
)

type stubAPI struct {
	logins    atomic.Int32
	validTok  atomic.Value
	lastBody  atomic.Value
	expiresIn time.Duration
}

func (s *stubAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	writeJSON := func(w http.ResponseWriter, status int, v any) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(v))
	}
	unauthorized := func(w http.ResponseWriter) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": map[string]any{"code": "UNAUTHORIZED", "message": "invalid token"}})
	}
	authed := func(r *http.Request) bool {
		tok, _ := s.validTok.Load().(string)
		return tok != "" && r.Header.Get("Authorization") == "Bearer "+tok
	}

	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req["password"] != "password1" {
			unauthorized(w)
			return
		}
		n := s.logins.Add(1)
		tok := "tok-" + string(rune('0'+n))
		s.validTok.Store(tok)
		writeJSON(w, http.StatusOK, map[string]any{"data": map[string]any{
			"access_token": tok,
			"expires_at":   time.Now().Add(s.expiresIn),
		}})
	})
	mux.HandleFunc("GET /api/v1/companies", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			unauthorized(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "c1", "name": "Acme"}}})
	})
	mux.HandleFunc("GET /api/v1/companies/{id}/tickets", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			unauthorized(w)
			return
		}
		if r.PathValue("id") != "c1" {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": map[string]any{"code": "NOT_FOUND", "message": "company not found"}})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{{"id": "t1", "name": "Login issue", "company_id": "c1"}}})
	})
	mux.HandleFunc("GET /api/v1/tickets/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			unauthorized(w)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": []map[string]any{
			{"id": "m1", "ticket_id": r.PathValue("id"), "body": "hello", "direction": "incoming", "created_at": "2024-01-01T00:00:00Z"},
		}})
	})
	mux.HandleFunc("POST /api/v1/tickets/{id}/messages", func(w http.ResponseWriter, r *http.Request) {
		if !authed(r) {
			unauthorized(w)
			return
		}
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		s.lastBody.Store(req)
		writeJSON(w, http.StatusCreated, map[string]any{"data": map[string]any{"id": "m2", "created_at": time.Now()}})
	})
	mux.HandleFunc("GET /broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	})
	return mux
}

func newTestClient(t *testing.T, password string, ttl time.Duration) (*Client, *stubAPI) {
	t.Helper()
	api := &stubAPI{expiresIn: ttl}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	cfg := config.ClientConfig{APIURL: srv.URL, Email: "agent@example.com", Password: password}
	return NewClientWithHTTP(cfg, srv.Client(), zap.NewNop()), api
}

func TestClient_ListingsLogInOnce(t *testing.T) {
	req := require.New(t)
	c, api := newTestClient(t, "password1", time.Hour)
	ctx := context.Background()

	companies, err := c.ListCompanies(ctx)
	req.NoError(err)
	req.Equal([]domain.Company{{ID: "c1", Name: "Acme"}}, companies)

	tickets, err := c.ListTickets(ctx, "c1")
	req.NoError(err)
	req.Equal("Login issue", tickets[0].Name)

	msgs, err := c.ListMessages(ctx, "t1")
	req.NoError(err)
	req.Equal(domain.DirectionIncoming, msgs[0].Direction)
	req.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), msgs[0].CreatedAt.UTC())

	req.Equal(int32(1), api.logins.Load())
}

func TestClient_SendMessage(t *testing.T) {
	c, api := newTestClient(t, "password1", time.Hour)
	id, err := c.SendMessage(context.Background(), "t1", "hi", domain.DirectionOutgoing)
	require.NoError(t, err)
	require.Equal(t, "m2", id)
	require.Equal(t, map[string]string{"body": "hi", "direction": "outgoing"}, api.lastBody.Load())
}

func TestClient_RetriesAfterRejectedToken(t *testing.T) {
	c, api := newTestClient(t, "password1", time.Hour)
	ctx := context.Background()
	_, err := c.ListCompanies(ctx)
	require.NoError(t, err)

	api.validTok.Store("rotated")
	_, err = c.ListCompanies(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), api.logins.Load())
}

func TestClient_RenewsExpiringToken(t *testing.T) {
	c, api := newTestClient(t, "password1", 10*time.Second)
	ctx := context.Background()

	_, err := c.ListCompanies(ctx)
	require.NoError(t, err)
	_, err = c.ListCompanies(ctx)
	require.NoError(t, err)
	require.Equal(t, int32(2), api.logins.Load())
}

func TestClient_DecodesErrorEnvelope(t *testing.T) {
	c, _ := newTestClient(t, "password1", time.Hour)
	_, err := c.ListTickets(context.Background(), "c404")
	require.Error(t, err)
	derr := apperrors.ToDomainError(err)
	require.Equal(t, "NOT_FOUND", derr.Code)
	require.Equal(t, http.StatusNotFound, derr.HTTPStatus)
	require.Equal(t, "company not found", derr.Message)
}

func TestClient_NonJSONError(t *testing.T) {
	c, _ := newTestClient(t, "password1", time.Hour)
	err := c.send(context.Background(), http.MethodGet, "/broken", nil, nil, "")
	require.True(t, apperrors.IsCode(err, "REQUEST_FAILED"))
}

func TestClient_BadCredentials(t *testing.T) {
	c, _ := newTestClient(t, "wrong", time.Hour)
	_, err := c.ListCompanies(context.Background())
	require.True(t, apperrors.IsCode(err, "UNAUTHORIZED"))
}

func TestClient_NoCredentials(t *testing.T) {
	c := NewClientWithHTTP(config.ClientConfig{APIURL: "http://127.0.0.1:1"}, http.DefaultClient, nil)
	_, err := c.ListCompanies(context.Background())
	require.ErrorIs(t, err, ErrNoCredentials)
}
