package fixgen

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrMissingFields is returned for requests without code or issue.
var ErrMissingFields = errors.New("Missing required fields: originalCode or issue")

// Result is the fix returned to the browser.
type Result struct {
	FixedCode       string   `json:"fixedCode"`
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
	OriginalIssue   Issue    `json:"originalIssue"`
	GeneratedAt     string   `json:"generatedAt"`
}

// Generator turns fix requests into model prompts and model answers into
// structured fixes.
type Generator struct {
	model  Model
	logger *zap.Logger
	now    func() time.Time
}

// NewGenerator creates a Generator. A nil model makes every call fail with
// ErrNotConfigured.
func NewGenerator(model Model, logger *zap.Logger) *Generator {
	return &Generator{
		model:  model,
		logger: logger.Named("fixgen"),
		now:    time.Now,
	}
}

// Generate asks the model for a fix. Unparseable model answers are not an
// error; only upstream failures are.
func (g *Generator) Generate(ctx context.Context, req FixRequest) (*Result, error) {
	if !req.Normalize() {
		return nil, ErrMissingFields
	}
	if g.model == nil {
		return nil, ErrNotConfigured
	}

	text, err := g.model.GenerateText(ctx, BuildPrompt(req))
	if err != nil {
		return nil, err
	}

	suggestion, parsed := ParseSuggestion(text, req.OriginalCode)
	if !parsed {
		g.logger.Warn("Model answer was not valid JSON, returning original code",
			zap.String("file", req.FileName),
			zap.Int("answer_length", len(text)))
	}

	return &Result{
		FixedCode:       suggestion.FixedCode,
		Explanation:     suggestion.Explanation,
		Recommendations: suggestion.Recommendations,
		OriginalIssue:   *req.Issue,
		GeneratedAt:     g.now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
	}, nil
}
