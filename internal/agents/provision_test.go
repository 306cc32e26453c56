package agents

import (
	"context"
	"errors"
	"testing"
)

type stubProvider struct {
	assistantID string
	numberErr   error

	lastName     string
	lastGreeting string
}

func (s *stubProvider) CreateAssistant(ctx context.Context, vertical Vertical, agentName, greeting string) (AssistantInfo, error) {
	if agentName == "" {
		agentName = "Template " + string(vertical)
	}
	if greeting == "" {
		greeting = "Template greeting"
	}
	s.lastName, s.lastGreeting = agentName, greeting
	return AssistantInfo{ID: s.assistantID, Name: agentName, Greeting: greeting}, nil
}

func (s *stubProvider) BuyPhoneNumber(ctx context.Context, assistantID string) (string, error) {
	if s.numberErr != nil {
		return "", s.numberErr
	}
	return "+14155550100", nil
}

type stubOnboarding struct {
	completed []string
}

func (s *stubOnboarding) MarkOnboardingComplete(ctx context.Context, userID string) error {
	s.completed = append(s.completed, userID)
	return nil
}

func TestProvisionHappyPath(t *testing.T) {
	provider := &stubProvider{assistantID: "asst-1"}
	store := NewMemoryDirectory()
	onboarding := &stubOnboarding{}
	p := NewProvisioner(provider, store, onboarding)

	res, err := p.Provision(context.Background(), ProvisionRequest{
		UserID:   "user-1",
		Vertical: VerticalDental,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if res.PhoneNumberPending {
		t.Fatal("number was provisioned; pending flag must be false")
	}
	if res.Agent.VapiAssistantID != "asst-1" || res.Agent.PhoneNumber != "+14155550100" {
		t.Fatalf("agent = %+v", res.Agent)
	}
	// Template-resolved values must be persisted, not the empty request fields.
	if res.Agent.AgentName != provider.lastName || res.Agent.GreetingMessage != provider.lastGreeting {
		t.Fatalf("persisted %q/%q, provider resolved %q/%q",
			res.Agent.AgentName, res.Agent.GreetingMessage, provider.lastName, provider.lastGreeting)
	}
	if len(onboarding.completed) != 1 || onboarding.completed[0] != "user-1" {
		t.Fatalf("onboarding completions = %v", onboarding.completed)
	}

	stored, err := store.GetByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("GetByUser: %v", err)
	}
	if !stored.IsActive {
		t.Fatal("provisioned agent must be active")
	}
}

func TestProvisionNumberFailureIsNotFatal(t *testing.T) {
	provider := &stubProvider{assistantID: "asst-1", numberErr: errors.New("no inventory")}
	store := NewMemoryDirectory()
	p := NewProvisioner(provider, store, nil)

	res, err := p.Provision(context.Background(), ProvisionRequest{
		UserID:   "user-1",
		Vertical: VerticalRealEstate,
	})
	if err != nil {
		t.Fatalf("Provision: %v", err)
	}
	if !res.PhoneNumberPending {
		t.Fatal("expected phone_number_pending")
	}
	if res.Agent.VapiAssistantID != "asst-1" || res.Agent.PhoneNumber != "" {
		t.Fatalf("agent = %+v", res.Agent)
	}
}

func TestProvisionRejectsUnknownVertical(t *testing.T) {
	p := NewProvisioner(&stubProvider{assistantID: "asst-1"}, NewMemoryDirectory(), nil)

	_, err := p.Provision(context.Background(), ProvisionRequest{
		UserID:   "user-1",
		Vertical: "locksmith",
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestProvisionIsRerunnable(t *testing.T) {
	provider := &stubProvider{assistantID: "asst-1"}
	store := NewMemoryDirectory()
	p := NewProvisioner(provider, store, nil)

	first, err := p.Provision(context.Background(), ProvisionRequest{UserID: "user-1", Vertical: VerticalBeauty})
	if err != nil {
		t.Fatalf("first Provision: %v", err)
	}

	provider.assistantID = "asst-2"
	second, err := p.Provision(context.Background(), ProvisionRequest{UserID: "user-1", Vertical: VerticalBeauty})
	if err != nil {
		t.Fatalf("second Provision: %v", err)
	}
	if second.Agent.ID != first.Agent.ID {
		t.Fatalf("re-provision created a second agent: %q vs %q", second.Agent.ID, first.Agent.ID)
	}
	if second.Agent.VapiAssistantID != "asst-2" {
		t.Fatalf("assistant id not replaced: %q", second.Agent.VapiAssistantID)
	}
}
