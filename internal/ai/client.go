package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	applog "almmr/internal/log"
	"almmr/models"
)

const (
	defaultModel       = "gpt-4.1-mini"
	defaultTemperature = 0.2
	defaultTimeout     = 90 * time.Second
)

// Config describes how the OpenAI client should be initialised.
type Config struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client asks an OpenAI chat model for note suggestions and material data.
type Client struct {
	api         *openai.Client
	model       string
	temperature float32
}

// NewClient builds a Client. Only the API key is required.
func NewClient(cfg Config) (*Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("ai: api key must not be empty")
	}

	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	temp := cfg.Temperature
	if temp <= 0 {
		temp = defaultTemperature
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	clientCfg := openai.DefaultConfig(apiKey)
	if baseURL := strings.TrimSpace(cfg.BaseURL); baseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	clientCfg.HTTPClient = httpClient

	return &Client{
		api:         openai.NewClientWithConfig(clientCfg),
		model:       model,
		temperature: temp,
	}, nil
}

// Model returns the chat model requests are sent to.
func (c *Client) Model() string {
	return c.model
}

// Suggest asks the model to pick notes from materials that fit keywords.
// Suggestions naming a material outside the supplied list are dropped.
func (c *Client) Suggest(ctx context.Context, keywords []string, materials []models.RawMaterial) (models.Recommendation, error) {
	keywords = cleanKeywords(keywords)
	if len(keywords) == 0 {
		return models.Recommendation{}, errors.New("ai: at least one keyword is required")
	}

	content, err := c.complete(ctx, suggestSystemPrompt, buildSuggestPrompt(keywords, materials))
	if err != nil {
		return models.Recommendation{}, err
	}

	var parsed models.Recommendation
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return models.Recommendation{}, fmt.Errorf("ai: parse suggestion payload: %w", err)
	}

	known := make(map[uint]models.MaterialType, len(materials))
	for _, m := range materials {
		known[m.ID] = m.Type
	}
	kept := parsed.SuggestedNotes[:0]
	for _, note := range parsed.SuggestedNotes {
		kind, ok := known[note.MaterialID]
		if !ok {
			applog.Debug(ctx, "dropping suggestion for unknown material", "material_id", note.MaterialID)
			continue
		}
		if !note.Type.Valid() {
			note.Type = kind
		}
		note.Confidence = clamp01(note.Confidence)
		kept = append(kept, note)
	}
	parsed.SuggestedNotes = kept
	parsed.Confidence = clamp01(parsed.Confidence)
	parsed.ScentProfile.Intensity = clamp01(parsed.ScentProfile.Intensity)
	if strings.TrimSpace(parsed.ScentProfile.Mood) == "" {
		parsed.ScentProfile.Mood = keywords[0]
	}
	return parsed, nil
}

const suggestSystemPrompt = `You are an expert perfumer helping compose fragrance formulas.
Choose materials only from the catalogue provided by the user and respond with raw JSON only.`

func buildSuggestPrompt(keywords []string, materials []models.RawMaterial) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Desired character: %s\n\nCatalogue (id | name | type | olfactory profile):\n", strings.Join(keywords, ", "))
	for _, m := range materials {
		fmt.Fprintf(&b, "%d | %s | %s | %s\n", m.ID, m.Name, m.Type, normaliseText(m.OlfactoryProfile))
	}
	b.WriteString(`
Return JSON:
{
  "suggested_notes": [{"material_id": number, "type": one of TOP_NOTE MIDDLE_NOTE BASE_NOTE FIXATIVE SOLVENT MODIFIER, "confidence": number 0-1, "reason": short string}],
  "scent_profile": {"mood": string, "intensity": number 0-1, "characteristics": string[]},
  "confidence": number 0-1
}
Suggest at most 5 materials. No Markdown, no comments.`)
	return b.String()
}

func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Temperature: c.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	})
	if err != nil {
		return "", fmt.Errorf("ai: call openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("ai: openai returned no choices")
	}
	applog.Debug(ctx, "openai completion received", "model", c.model, "finish_reason", resp.Choices[0].FinishReason)
	return stripFences(resp.Choices[0].Message.Content), nil
}

// stripFences removes a Markdown code fence some models wrap JSON in.
func stripFences(content string) string {
	content = strings.TrimSpace(content)
	content = strings.Trim(content, "`")
	content = strings.TrimPrefix(content, "json")
	return strings.TrimSpace(content)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
