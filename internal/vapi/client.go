package vapi

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/OperationSweep/lynqai-voice-solutions/internal/agents"
	"github.com/OperationSweep/lynqai-voice-solutions/internal/config"
)

// Client talks to the voice-AI provider's management API. It implements
// agents.AssistantProvider; all provider HTTP traffic goes through here.
type Client struct {
	http       *resty.Client
	webhookURL string
}

func NewClient(cfg config.VapiConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetTimeout(30 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &Client{http: http, webhookURL: cfg.WebhookURL}
}

// createAssistantRequest mirrors the provider's POST /assistant body.
type createAssistantRequest struct {
	Name         string         `json:"name"`
	FirstMessage string         `json:"firstMessage"`
	Model        assistantModel `json:"model"`
	Voice        assistantVoice `json:"voice"`

	ServerURL string `json:"serverUrl"`

	EndCallFunctionEnabled bool `json:"endCallFunctionEnabled"`
	RecordingEnabled       bool `json:"recordingEnabled"`

	Transcriber assistantTranscriber `json:"transcriber"`

	SilenceTimeoutSeconds int    `json:"silenceTimeoutSeconds"`
	MaxDurationSeconds    int    `json:"maxDurationSeconds"`
	BackgroundSound       string `json:"backgroundSound"`

	BackchannelingEnabled      bool `json:"backchannelingEnabled"`
	BackgroundDenoisingEnabled bool `json:"backgroundDenoisingEnabled"`
}

type assistantModel struct {
	Provider    string             `json:"provider"`
	Model       string             `json:"model"`
	Messages    []assistantMessage `json:"messages"`
	Temperature float64            `json:"temperature"`
}

type assistantMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type assistantVoice struct {
	Provider string `json:"provider"`
	VoiceID  string `json:"voiceId"`
}

type assistantTranscriber struct {
	Provider string `json:"provider"`
	Model    string `json:"model"`
	Language string `json:"language"`
}

type assistantResponse struct {
	ID string `json:"id"`
}

// CreateAssistant creates a receptionist assistant from the vertical's
// template. Empty name/greeting fall back to the template defaults.
func (c *Client) CreateAssistant(ctx context.Context, vertical agents.Vertical, agentName, greeting string) (agents.AssistantInfo, error) {
	tpl, err := templateFor(vertical)
	if err != nil {
		return agents.AssistantInfo{}, err
	}
	if agentName == "" {
		agentName = tpl.Name
	}
	if greeting == "" {
		greeting = tpl.FirstMessage
	}

	req := createAssistantRequest{
		Name:         agentName,
		FirstMessage: greeting,
		Model: assistantModel{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Messages: []assistantMessage{
				{Role: "system", Content: tpl.SystemPrompt},
			},
			Temperature: 0.7,
		},
		Voice: assistantVoice{
			Provider: "vapi",
			VoiceID:  "Elliot",
		},
		ServerURL:              c.webhookURL,
		EndCallFunctionEnabled: true,
		RecordingEnabled:       true,
		Transcriber: assistantTranscriber{
			Provider: "deepgram",
			Model:    "nova-2",
			Language: "en",
		},
		SilenceTimeoutSeconds:      30,
		MaxDurationSeconds:         600,
		BackgroundSound:            "office",
		BackchannelingEnabled:      true,
		BackgroundDenoisingEnabled: true,
	}

	var out assistantResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/assistant")
	if err != nil {
		return agents.AssistantInfo{}, fmt.Errorf("create assistant: %w", err)
	}
	if resp.IsError() {
		return agents.AssistantInfo{}, fmt.Errorf("create assistant: provider returned %d: %s", resp.StatusCode(), resp.String())
	}
	if out.ID == "" {
		return agents.AssistantInfo{}, fmt.Errorf("create assistant: provider response missing assistant id")
	}

	return agents.AssistantInfo{ID: out.ID, Name: agentName, Greeting: greeting}, nil
}

type buyPhoneNumberRequest struct {
	AssistantID           string `json:"assistantId"`
	Provider              string `json:"provider"`
	NumberDesiredAreaCode string `json:"numberDesiredAreaCode"`
}

type phoneNumberResponse struct {
	Number      string `json:"number"`
	PhoneNumber string `json:"phoneNumber"`
}

// BuyPhoneNumber provisions an inbound number routed to the assistant.
func (c *Client) BuyPhoneNumber(ctx context.Context, assistantID string) (string, error) {
	var out phoneNumberResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(buyPhoneNumberRequest{
			AssistantID:           assistantID,
			Provider:              "twilio",
			NumberDesiredAreaCode: "415",
		}).
		SetResult(&out).
		Post("/phone-number")
	if err != nil {
		return "", fmt.Errorf("buy phone number: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("buy phone number: provider returned %d: %s", resp.StatusCode(), resp.String())
	}

	// The provider has answered with both spellings over time.
	number := out.Number
	if number == "" {
		number = out.PhoneNumber
	}
	if number == "" {
		return "", fmt.Errorf("buy phone number: provider response missing number")
	}
	return number, nil
}
