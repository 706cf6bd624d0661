// Package service wires the gateway's upstream clients from configuration.
package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/internal/analyze"
	"github.com/auditfix/auditfix-gateway/internal/fixgen"
	"github.com/auditfix/auditfix-gateway/internal/github"
	"github.com/auditfix/auditfix-gateway/pkg/config"
)

// Services aggregates all application services
type Services struct {
	Analyze   *analyze.Forwarder
	Fix       *fixgen.Generator
	GitHub    *github.Client
	TreeCache github.TreeCache
}

// NewServices creates a new Services instance
func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) *Services {
	// A nil interface, not a typed nil, keeps the generator's nil check working
	var m fixgen.Model
	if model, err := fixgen.NewGenAIModel(ctx, cfg.Gemini); err != nil {
		logger.Warn("Fix generation unavailable", zap.Error(err))
	} else {
		m = model
	}

	cache := github.NewTreeCache(cfg.Cache, logger)

	return &Services{
		Analyze:   analyze.NewForwarder(cfg.Backend, logger),
		Fix:       fixgen.NewGenerator(m, logger),
		GitHub:    github.NewClient(cfg.GitHub, cache, logger),
		TreeCache: cache,
	}
}

// Close releases resources held by the services
func (s *Services) Close() error {
	if s.TreeCache != nil {
		return s.TreeCache.Close()
	}
	return nil
}
