// Package ai wraps the Gemini API for the two generative calls the backend
// makes: discussion topics and transcript feedback.
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

var (
	ErrNoAPIKey   = errors.New("gemini api key not configured")
	ErrEmptyReply = errors.New("model returned empty reply")
)

type Client struct {
	gc       *genai.Client
	validate *validator.Validate
}

func NewClient(ctx context.Context, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{gc: gc, validate: validator.New()}, nil
}

// GenerateTopic asks the model for a single discussion topic.
// The registry treats any error here as "use the fallback".
func (c *Client) GenerateTopic(ctx context.Context) (string, error) {
	resp, err := c.gc.Models.GenerateContent(ctx, topicModel, genai.Text(topicPrompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate topic: %w", err)
	}
	topic := strings.Trim(strings.TrimSpace(resp.Text()), `"`)
	if topic == "" {
		return "", ErrEmptyReply
	}
	log.Info().Str("module", "ai").Str("topic", topic).Msg("topic generated")
	return topic, nil
}

// GenerateFeedback evaluates a discussion transcript and returns the parsed,
// schema-validated feedback.
func (c *Client) GenerateFeedback(ctx context.Context, transcript string) (*Feedback, error) {
	prompt := fmt.Sprintf(feedbackPromptTemplate, transcript)
	resp, err := c.gc.Models.GenerateContent(ctx, feedbackModel, genai.Text(prompt), nil)
	if err != nil {
		return nil, fmt.Errorf("generate feedback: %w", err)
	}
	return c.parseFeedback(resp.Text())
}

// parseFeedback tolerates the markdown fences the model likes to wrap JSON in.
func (c *Client) parseFeedback(raw string) (*Feedback, error) {
	cleaned := stripFences(raw)
	if cleaned == "" {
		return nil, ErrEmptyReply
	}

	var fb Feedback
	if err := json.Unmarshal([]byte(cleaned), &fb); err != nil {
		log.Error().Err(err).Str("module", "ai").Msg("feedback reply is not valid json")
		return nil, fmt.Errorf("parse feedback: %w", err)
	}
	if err := c.validate.Struct(&fb); err != nil {
		return nil, fmt.Errorf("feedback failed validation: %w", err)
	}
	return &fb, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
