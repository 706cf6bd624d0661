package fixgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/genai"

	"github.com/auditfix/auditfix-gateway/internal/metrics"
	"github.com/auditfix/auditfix-gateway/pkg/config"
)

// Model produces free text for a prompt.
type Model interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrNotConfigured is returned when no API key is available.
	ErrNotConfigured = errors.New("AI fix generation is not configured")
	// ErrNoCandidates is returned when the model answers without candidates.
	ErrNoCandidates = errors.New("No response from Gemini")
)

// Sampling parameters are fixed so fixes stay conservative and repeatable.
const (
	temperature     = 0.1
	maxOutputTokens = 2048
	topP            = 0.8
	topK            = 10
)

var safetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// GenerationConfig returns the request configuration sent with every prompt.
func GenerationConfig() *genai.GenerateContentConfig {
	safety := make([]*genai.SafetySetting, 0, len(safetyCategories))
	for _, c := range safetyCategories {
		safety = append(safety, &genai.SafetySetting{
			Category:  c,
			Threshold: genai.HarmBlockThresholdBlockMediumAndAbove,
		})
	}

	return &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxOutputTokens,
		TopP:            genai.Ptr[float32](topP),
		TopK:            genai.Ptr[float32](topK),
		SafetySettings:  safety,
	}
}

// GenAIModel calls the Gemini generative-language API.
type GenAIModel struct {
	client *genai.Client
	model  string
}

// NewGenAIModel creates a Gemini-backed Model.
func NewGenAIModel(ctx context.Context, cfg config.GeminiConfig) (*GenAIModel, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.TimeoutDuration()},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GenAIModel{client: client, model: cfg.Model}, nil
}

// GenerateText sends prompt and returns the text of the first candidate.
func (m *GenAIModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	resp, err := m.client.Models.GenerateContent(ctx, m.model, genai.Text(prompt), GenerationConfig())
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamGemini, metrics.OutcomeError)
		return "", fmt.Errorf("Gemini API error: %w", err)
	}

	if len(resp.Candidates) == 0 {
		metrics.ObserveUpstream(metrics.UpstreamGemini, metrics.OutcomeMiss)
		return "", ErrNoCandidates
	}

	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		metrics.ObserveUpstream(metrics.UpstreamGemini, metrics.OutcomeMiss)
		return "", fmt.Errorf("%w (finish reason %s)", ErrNoCandidates, cand.FinishReason)
	}

	var sb strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	metrics.ObserveUpstream(metrics.UpstreamGemini, metrics.OutcomeOK)
	return sb.String(), nil
}
