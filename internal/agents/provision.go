package agents

import (
	"context"
	"fmt"

	"github.com/OperationSweep/lynqai-voice-solutions/pkg/logger"
)

// AssistantProvider is the voice-AI provider boundary used during onboarding.
// Implemented by the vapi adapter; no provider SDK calls happen outside it.
type AssistantProvider interface {
	// CreateAssistant creates a receptionist assistant from the vertical's
	// template. Empty name/greeting fall back to template defaults; the
	// resolved values come back so the agent row matches the provider state.
	CreateAssistant(ctx context.Context, vertical Vertical, agentName, greeting string) (AssistantInfo, error)

	// BuyPhoneNumber provisions an inbound number routed to the assistant.
	BuyPhoneNumber(ctx context.Context, assistantID string) (string, error)
}

// AssistantInfo is the provider's view of a created assistant.
type AssistantInfo struct {
	ID       string
	Name     string
	Greeting string
}

// OnboardingMarker advances the tenant's onboarding state after a
// successful provisioning pass.
type OnboardingMarker interface {
	MarkOnboardingComplete(ctx context.Context, userID string) error
}

type agentUpserter interface {
	Upsert(ctx context.Context, a Agent) (Agent, error)
}

// Provisioner orchestrates onboarding: create the assistant at the provider,
// buy a number, persist the agent row, and mark onboarding done.
type Provisioner struct {
	provider   AssistantProvider
	store      agentUpserter
	onboarding OnboardingMarker
}

func NewProvisioner(provider AssistantProvider, store agentUpserter, onboarding OnboardingMarker) *Provisioner {
	return &Provisioner{provider: provider, store: store, onboarding: onboarding}
}

type ProvisionRequest struct {
	UserID          string   `json:"user_id"`
	Vertical        Vertical `json:"vertical"`
	AgentName       string   `json:"agent_name,omitempty"`
	GreetingMessage string   `json:"greeting_message,omitempty"`
}

type ProvisionResult struct {
	Agent Agent `json:"agent"`

	// PhoneNumberPending is set when assistant creation succeeded but number
	// provisioning did not; the tenant can retry or attach a number later.
	PhoneNumberPending bool `json:"phone_number_pending"`
}

func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (ProvisionResult, error) {
	if req.UserID == "" {
		return ProvisionResult{}, ErrInvalidArgument
	}
	if !ValidVertical(req.Vertical) {
		return ProvisionResult{}, fmt.Errorf("%w: vertical must be one of real_estate, beauty_aesthetics, dental", ErrInvalidArgument)
	}

	log := logger.From(ctx)

	assistant, err := p.provider.CreateAssistant(ctx, req.Vertical, req.AgentName, req.GreetingMessage)
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("create assistant: %w", err)
	}
	log.Info("assistant created", "user_id", req.UserID, "assistant_id", assistant.ID)

	// Number provisioning failure is not fatal: the assistant exists and can
	// be attached to a number later.
	number, numErr := p.provider.BuyPhoneNumber(ctx, assistant.ID)
	if numErr != nil {
		log.Error("phone number provisioning failed", "user_id", req.UserID, "err", numErr)
	}

	agent, err := p.store.Upsert(ctx, Agent{
		UserID:          req.UserID,
		AgentName:       assistant.Name,
		Vertical:        req.Vertical,
		GreetingMessage: assistant.Greeting,
		VapiAssistantID: assistant.ID,
		PhoneNumber:     number,
		IsActive:        true,
	})
	if err != nil {
		return ProvisionResult{}, fmt.Errorf("persist agent: %w", err)
	}

	if p.onboarding != nil {
		if err := p.onboarding.MarkOnboardingComplete(ctx, req.UserID); err != nil {
			// Onboarding state is cosmetic relative to the agent row; log and move on.
			log.Error("onboarding update failed", "user_id", req.UserID, "err", err)
		}
	}

	return ProvisionResult{Agent: agent, PhoneNumberPending: number == ""}, nil
}
