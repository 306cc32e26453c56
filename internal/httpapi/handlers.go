package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/agents"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/auth"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/billing"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/calllog"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/profiles"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/realtime"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/usage"
	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

// Store slices consumed by the handlers. Narrow on purpose: memory stores
// satisfy them in tests.

type ProfileStore interface {
	Create(ctx context.Context, p profiles.Profile) (profiles.Profile, error)
	GetByID(ctx context.Context, id string) (profiles.Profile, error)
	VerifyCredentials(ctx context.Context, email, password string) (profiles.Profile, error)
	List(ctx context.Context, limit int) ([]profiles.Profile, error)
}

type CallLogStore interface {
	List(ctx context.Context, userID string, f calllog.ListFilter) ([]calllog.CallLog, error)
	Get(ctx context.Context, userID, id string) (calllog.CallLog, error)
	ApplyUpdate(ctx context.Context, userID, id string, upd calllog.Update) (calllog.CallLog, error)
}

type UsageReader interface {
	Current(ctx context.Context, userID string, at time.Time) (usage.Summary, error)
}

type AgentStore interface {
	GetByUser(ctx context.Context, userID string) (agents.Agent, error)
	ApplyConfigUpdate(ctx context.Context, userID string, upd agents.ConfigUpdate) (agents.Agent, error)
}

type AgentProvisioner interface {
	Provision(ctx context.Context, req agents.ProvisionRequest) (agents.ProvisionResult, error)
}

type BillingService interface {
	CreateCheckoutSession(ctx context.Context, userID string, tier profiles.SubscriptionTier, successURL, cancelURL string) (billing.CheckoutSession, error)
	CreatePortalSession(ctx context.Context, userID, returnURL string) (string, error)
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth        *auth.Manager
	Profiles    ProfileStore
	CallLogs    CallLogStore
	Usage       UsageReader
	Agents      AgentStore
	Provisioner AgentProvisioner
	Billing     BillingService

	// Redis is used only by the realtime stream endpoint.
	Redis *redis.Client
}

// --- Auth ---

type registerRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name,omitempty"`
	BusinessName string `json:"business_name,omitempty"`
}

func (h Handlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.Email == "" || req.Password == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "email and password required"})
		return
	}

	hash, err := profiles.HashPassword(req.Password)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.Profiles.Create(c.Request.Context(), profiles.Profile{
		Email:        req.Email,
		PasswordHash: hash,
		FullName:     req.FullName,
		BusinessName: req.BusinessName,
	})
	if errors.Is(err, profiles.ErrEmailTaken) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "email already registered"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), p.ID, p.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"profile":       p,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h Handlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	p, err := h.Profiles.VerifyCredentials(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, profiles.ErrBadCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
		return
	}

	pair, err := h.Auth.IssuePair(time.Now(), p.ID, p.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h Handlers) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	claims, err := h.Auth.Verify(req.RefreshToken, auth.TokenTypeRefresh, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	// Refresh tokens carry no role; re-read it so revoked/changed roles take
	// effect at rotation time.
	p, err := h.Profiles.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account not found"})
		return
	}
	pair, err := h.Auth.IssuePair(time.Now(), p.ID, p.Role)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "token issuance failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

func (h Handlers) Me(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	p, err := h.Profiles.GetByID(c.Request.Context(), userID)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "profile not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// --- Call logs ---

func (h Handlers) ListCallLogs(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var f calllog.ListFilter
	if v := c.Query("outcome"); v != "" {
		o := calllog.Outcome(v)
		if !calllog.ValidOutcome(o) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
			return
		}
		f.Outcome = o
	}
	f.Limit = intQuery(c, "limit", 50)

	logs, err := h.CallLogs.List(c.Request.Context(), userID, f)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"call_logs": logs})
}

func (h Handlers) GetCallLog(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	rec, err := h.CallLogs.Get(c.Request.Context(), userID, c.Param("id"))
	if errors.Is(err, calllog.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type patchCallLogRequest struct {
	IsRead       *bool   `json:"is_read,omitempty"`
	IsStarred    *bool   `json:"is_starred,omitempty"`
	Outcome      *string `json:"outcome,omitempty"`
	OutcomeNotes *string `json:"outcome_notes,omitempty"`
}

func (h Handlers) PatchCallLog(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req patchCallLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	upd := calllog.Update{
		IsRead:       req.IsRead,
		IsStarred:    req.IsStarred,
		OutcomeNotes: req.OutcomeNotes,
	}
	if req.Outcome != nil {
		o := calllog.Outcome(*req.Outcome)
		if !calllog.ValidOutcome(o) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid outcome"})
			return
		}
		upd.Outcome = &o
	}

	rec, err := h.CallLogs.ApplyUpdate(c.Request.Context(), userID, c.Param("id"), upd)
	if errors.Is(err, calllog.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	if errors.Is(err, calllog.ErrInvalidArgument) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid update"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

// StreamCallLogs pushes freshly recorded call logs over SSE until the client
// disconnects.
func (h Handlers) StreamCallLogs(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	if h.Redis == nil {
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime not configured"})
		return
	}

	events, err := realtime.Subscribe(c.Request.Context(), h.Redis, userID)
	if err != nil {
		logger.FromGin(c).Error("realtime subscribe failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "realtime unavailable"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		payload, err := json.Marshal(ev)
		if err != nil {
			return true
		}
		c.SSEvent(ev.Kind, string(payload))
		return true
	})
}

// --- Usage ---

func (h Handlers) GetUsage(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	s, err := h.Usage.Current(c.Request.Context(), userID, time.Now())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "usage lookup failed"})
		return
	}
	c.JSON(http.StatusOK, s)
}

// --- Agent ---

func (h Handlers) GetAgent(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	a, err := h.Agents.GetByUser(c.Request.Context(), userID)
	if errors.Is(err, agents.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no agent provisioned"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	c.JSON(http.StatusOK, a)
}

type provisionAgentRequest struct {
	Vertical        string `json:"vertical"`
	AgentName       string `json:"agent_name,omitempty"`
	GreetingMessage string `json:"greeting_message,omitempty"`
}

func (h Handlers) ProvisionAgent(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req provisionAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	res, err := h.Provisioner.Provision(c.Request.Context(), agents.ProvisionRequest{
		UserID:          userID,
		Vertical:        agents.Vertical(req.Vertical),
		AgentName:       req.AgentName,
		GreetingMessage: req.GreetingMessage,
	})
	if errors.Is(err, agents.ErrInvalidArgument) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("agent provisioning failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "provisioning failed"})
		return
	}
	c.JSON(http.StatusCreated, res)
}

type patchAgentRequest struct {
	AgentName         *string `json:"agent_name,omitempty"`
	GreetingMessage   *string `json:"greeting_message,omitempty"`
	AfterHoursMessage *string `json:"after_hours_message,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
	Timezone          *string `json:"timezone,omitempty"`
	OpenTime          *string `json:"open_time,omitempty"`
	CloseTime         *string `json:"close_time,omitempty"`
	OpenWeekends      *bool   `json:"open_weekends,omitempty"`
}

func (h Handlers) PatchAgent(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req patchAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	a, err := h.Agents.ApplyConfigUpdate(c.Request.Context(), userID, agents.ConfigUpdate{
		AgentName:         req.AgentName,
		GreetingMessage:   req.GreetingMessage,
		AfterHoursMessage: req.AfterHoursMessage,
		IsActive:          req.IsActive,
		Timezone:          req.Timezone,
		OpenTime:          req.OpenTime,
		CloseTime:         req.CloseTime,
		OpenWeekends:      req.OpenWeekends,
	})
	if errors.Is(err, agents.ErrNotFound) {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no agent provisioned"})
		return
	}
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, a)
}

// --- Billing ---

type checkoutRequest struct {
	Tier       string `json:"tier"`
	SuccessURL string `json:"success_url"`
	CancelURL  string `json:"cancel_url"`
}

func (h Handlers) CreateCheckout(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.SuccessURL == "" || req.CancelURL == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "success_url and cancel_url required"})
		return
	}

	sess, err := h.Billing.CreateCheckoutSession(c.Request.Context(), userID, profiles.SubscriptionTier(req.Tier), req.SuccessURL, req.CancelURL)
	if errors.Is(err, billing.ErrInvalidTier) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid tier"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("checkout session failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "checkout failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

type portalRequest struct {
	ReturnURL string `json:"return_url"`
}

func (h Handlers) CreatePortal(c *gin.Context) {
	userID, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var req portalRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ReturnURL == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "return_url required"})
		return
	}

	url, err := h.Billing.CreatePortalSession(c.Request.Context(), userID, req.ReturnURL)
	if errors.Is(err, billing.ErrNoCustomer) {
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "no billing customer; subscribe first"})
		return
	}
	if err != nil {
		logger.FromGin(c).Error("portal session failed", "user_id", userID, "err", err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "portal failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// --- Admin ---

func (h Handlers) AdminListProfiles(c *gin.Context) {
	list, err := h.Profiles.List(c.Request.Context(), intQuery(c, "limit", 100))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"profiles": list})
}

func intQuery(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
