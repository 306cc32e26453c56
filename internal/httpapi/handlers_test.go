package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/auth"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/calllog"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/config"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/usage"
)

type stubUsage struct {
	summary usage.Summary
}

func (s stubUsage) Current(ctx context.Context, userID string, at time.Time) (usage.Summary, error) {
	out := s.summary
	out.UserID = userID
	return out, nil
}

func testAuthManager(t *testing.T) *auth.Manager {
	t.Helper()
	m, err := auth.NewManager(config.AuthConfig{
		JWTSecret:       "test-secret-test-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func testRouter(t *testing.T, h Handlers) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.POST("/v1/auth/register", h.Register)
	r.POST("/v1/auth/login", h.Login)
	r.POST("/v1/auth/refresh", h.Refresh)

	v1 := r.Group("/v1")
	v1.Use(auth.RequireAccessToken(h.Auth))
	{
		v1.GET("/me", h.Me)
		v1.GET("/call-logs", h.ListCallLogs)
		v1.GET("/call-logs/:id", h.GetCallLog)
		v1.PATCH("/call-logs/:id", h.PatchCallLog)
		v1.GET("/usage", h.GetUsage)
	}
	return r
}

func seedAccount(t *testing.T, store *profiles.MemoryStore, email string) profiles.Profile {
	t.Helper()
	hash, err := profiles.HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	p, err := store.Create(context.Background(), profiles.Profile{Email: email, PasswordHash: hash})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return p
}

func doJSON(t *testing.T, r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginAndMe(t *testing.T) {
	store := profiles.NewMemoryStore()
	p := seedAccount(t, store, "owner@example.com")
	h := Handlers{Auth: testAuthManager(t), Profiles: store}
	r := testRouter(t, h)

	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "owner@example.com", "password": "hunter2hunter2",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body %s", w.Code, w.Body.String())
	}
	var tokens struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
		t.Fatalf("decode tokens: %v", err)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/me", tokens.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("me status = %d, body %s", w.Code, w.Body.String())
	}
	var me profiles.Profile
	if err := json.Unmarshal(w.Body.Bytes(), &me); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if me.ID != p.ID {
		t.Fatalf("me.id = %q, want %q", me.ID, p.ID)
	}

	// Refresh must rotate into a usable pair.
	w = doJSON(t, r, http.MethodPost, "/v1/auth/refresh", "", gin.H{"refresh_token": tokens.RefreshToken})
	if w.Code != http.StatusOK {
		t.Fatalf("refresh status = %d, body %s", w.Code, w.Body.String())
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	store := profiles.NewMemoryStore()
	seedAccount(t, store, "owner@example.com")
	r := testRouter(t, Handlers{Auth: testAuthManager(t), Profiles: store})

	w := doJSON(t, r, http.MethodPost, "/v1/auth/login", "", gin.H{
		"email": "owner@example.com", "password": "wrong password",
	})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestRegisterConflict(t *testing.T) {
	store := profiles.NewMemoryStore()
	seedAccount(t, store, "owner@example.com")
	r := testRouter(t, Handlers{Auth: testAuthManager(t), Profiles: store})

	w := doJSON(t, r, http.MethodPost, "/v1/auth/register", "", gin.H{
		"email": "owner@example.com", "password": "hunter2hunter2",
	})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", w.Code)
	}
}

func TestCallLogEndpointsAreTenantScoped(t *testing.T) {
	store := profiles.NewMemoryStore()
	owner := seedAccount(t, store, "owner@example.com")
	other := seedAccount(t, store, "other@example.com")

	logs := calllog.NewMemoryStore()
	seedLog := func(userID, callID string, outcome calllog.Outcome) string {
		id, _, err := logs.RecordCall(context.Background(), calllog.CallLog{
			UserID:     userID,
			AgentID:    "agent-1",
			VapiCallID: callID,
			CallStart:  time.Now().UTC(),
			Outcome:    outcome,
		})
		if err != nil {
			t.Fatalf("RecordCall: %v", err)
		}
		return id
	}
	ownID := seedLog(owner.ID, "c1", calllog.OutcomeAppointmentBooked)
	seedLog(owner.ID, "c2", calllog.OutcomeOther)
	otherID := seedLog(other.ID, "c3", calllog.OutcomeOther)

	mgr := testAuthManager(t)
	r := testRouter(t, Handlers{Auth: mgr, Profiles: store, CallLogs: logs})

	pair, err := mgr.IssuePair(time.Now(), owner.ID, owner.Role)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}

	w := doJSON(t, r, http.MethodGet, "/v1/call-logs?outcome=appointment_booked", pair.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d, body %s", w.Code, w.Body.String())
	}
	var listResp struct {
		CallLogs []calllog.CallLog `json:"call_logs"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listResp); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(listResp.CallLogs) != 1 || listResp.CallLogs[0].ID != ownID {
		t.Fatalf("filtered list = %+v", listResp.CallLogs)
	}

	// Another tenant's record must look like it does not exist.
	w = doJSON(t, r, http.MethodGet, "/v1/call-logs/"+otherID, pair.AccessToken, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("cross-tenant get status = %d, want 404", w.Code)
	}

	w = doJSON(t, r, http.MethodPatch, "/v1/call-logs/"+ownID, pair.AccessToken, gin.H{"is_read": true})
	if w.Code != http.StatusOK {
		t.Fatalf("patch status = %d, body %s", w.Code, w.Body.String())
	}
	var patched calllog.CallLog
	if err := json.Unmarshal(w.Body.Bytes(), &patched); err != nil {
		t.Fatalf("decode patched: %v", err)
	}
	if !patched.IsRead {
		t.Fatal("is_read not applied")
	}
}

func TestPatchCallLogRejectsInvalidOutcome(t *testing.T) {
	store := profiles.NewMemoryStore()
	owner := seedAccount(t, store, "owner@example.com")
	mgr := testAuthManager(t)
	r := testRouter(t, Handlers{Auth: mgr, Profiles: store, CallLogs: calllog.NewMemoryStore()})

	pair, _ := mgr.IssuePair(time.Now(), owner.ID, owner.Role)
	w := doJSON(t, r, http.MethodPatch, "/v1/call-logs/some-id", pair.AccessToken, gin.H{"outcome": "victory"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestGetUsage(t *testing.T) {
	store := profiles.NewMemoryStore()
	owner := seedAccount(t, store, "owner@example.com")
	mgr := testAuthManager(t)
	r := testRouter(t, Handlers{
		Auth:     mgr,
		Profiles: store,
		Usage:    stubUsage{summary: usage.Summary{TotalCalls: 12, TotalMinutes: 90}},
	})

	pair, _ := mgr.IssuePair(time.Now(), owner.ID, owner.Role)
	w := doJSON(t, r, http.MethodGet, "/v1/usage", pair.AccessToken, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var s usage.Summary
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if s.TotalCalls != 12 || s.UserID != owner.ID {
		t.Fatalf("summary = %+v", s)
	}

	w = doJSON(t, r, http.MethodGet, "/v1/usage", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status = %d, want 401", w.Code)
	}
}
