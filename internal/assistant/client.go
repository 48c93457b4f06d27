package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/discentra/discentra/internal/config"
)

// chatInstruction is the fixed system instruction for the conversational
// assistant. The JSON shapes it mandates are the two the classifier
// recognizes; for acute life-safety topics the instruction forbids JSON so
// guidance always renders as readable text.
const chatInstruction = `You are Discentra's disaster assistant for the Philippines.
When the user asks for evacuation centers near a place, reply with ONLY a JSON object of the form
{"EvacuationCenters":[{"Name":"...","Latitude":0.0,"Longitude":0.0}]} and nothing else.
When the user asks about active typhoons or tracked storms, reply with ONLY a JSON array of the form
[{"Name":"...","Category":"...","Latitude":0.0,"Longitude":0.0,"WindSpeedKPH":0,"ETA":"..."}] and nothing else.
When the user asks what to do during an ongoing emergency (earthquake, fire, flood, or any other
life-threatening situation), NEVER reply with JSON: give short, direct safety instructions in plain text.
For everything else, answer conversationally in plain text.`

// sosInstruction composes an outbound SOS text on behalf of the reporter.
const sosInstruction = `You are a SOS messenger. You specify the details in 160 characters.
Your tone must be in a paragraph form and act as the person seeking help.
You must be intelligent when the user gives you a single clue.
Do not specify your character limit indication.`

// Client talks to an OpenAI-compatible chat-completions endpoint (OpenRouter
// in production).
type Client struct {
	api    *openai.Client
	model  string
	logger *slog.Logger
}

func NewClient(cfg config.AssistantConfig, logger *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:    openai.NewClientWithConfig(apiCfg),
		model:  cfg.Model,
		logger: logger,
	}
}

// Reply sends the user's text under the assistant instruction and returns the
// model's free-form reply.
func (c *Client) Reply(ctx context.Context, userText string) (string, error) {
	return c.complete(ctx, chatInstruction, userText)
}

// ComposeSOS turns emergency-report details into a short plain-prose SOS body.
func (c *Client) ComposeSOS(ctx context.Context, details string) (string, error) {
	return c.complete(ctx, sosInstruction, details)
}

func (c *Client) complete(ctx context.Context, instruction, userText string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: instruction},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("chat completion returned no choices")
	}
	c.logger.Debug("assistant reply received", "model", c.model, "chars", len(resp.Choices[0].Message.Content))
	return resp.Choices[0].Message.Content, nil
}
