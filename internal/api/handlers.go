package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/internal/analyze"
	"github.com/auditfix/auditfix-gateway/internal/fixgen"
	"github.com/auditfix/auditfix-gateway/internal/github"
	"github.com/auditfix/auditfix-gateway/internal/service"
	"github.com/auditfix/auditfix-gateway/pkg/config"
	"github.com/auditfix/auditfix-gateway/pkg/middleware"
)

// Handlers aggregates all HTTP handlers
type Handlers struct {
	services *service.Services
	cfg      *config.Config
	logger   *zap.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(services *service.Services, cfg *config.Config, logger *zap.Logger) *Handlers {
	return &Handlers{
		services: services,
		cfg:      cfg,
		logger:   logger.Named("handlers"),
	}
}

// Name implements server.RouteProvider.
func (h *Handlers) Name() string {
	return "api"
}

// RegisterRoutes adds the /api endpoints to rg.
func (h *Handlers) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/analyze", h.Analyze)
	rg.OPTIONS("/analyze", h.Options)

	rg.POST("/gemini-fix", h.GenerateFix)
	rg.OPTIONS("/gemini-fix", h.Options)

	rg.POST("/github-repo", h.GitHubRepo)
	rg.OPTIONS("/github-repo", h.Options)
}

// Options answers a preflight request. Cross-origin preflights are normally
// completed by the CORS middleware before reaching this handler.
func (h *Handlers) Options(c *gin.Context) {
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "POST, OPTIONS")
	c.Header("Access-Control-Allow-Headers", "Content-Type")
	c.Status(http.StatusOK)
}

// Analyze relays a multipart upload to the analysis backend
func (h *Handlers) Analyze(c *gin.Context) {
	data, err := h.services.Analyze.Forward(c.Request.Context(), analyze.Upload{
		ContentType: c.GetHeader("Content-Type"),
		Body:        c.Request.Body,
		RequestID:   middleware.GetRequestID(c),
	})
	if err != nil {
		switch {
		case errors.Is(err, analyze.ErrNotMultipart), errors.Is(err, analyze.ErrUploadTooLarge):
			respondError(c, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("Analysis failed", zap.Error(err))
			respondError(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	respondOK(c, data)
}

// GenerateFix asks the generative model for a fix of a reported issue
func (h *Handlers) GenerateFix(c *gin.Context) {
	var req fixgen.FixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, fixgen.ErrMissingFields.Error())
		return
	}

	result, err := h.services.Fix.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, fixgen.ErrMissingFields) {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Fix generation failed",
			zap.String("file", req.FileName),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, Envelope{
			Success:  false,
			Error:    err.Error(),
			Fallback: true,
		})
		return
	}

	respondOK(c, result)
}

// GitHubRepoRequest is the body of a repository listing call.
type GitHubRepoRequest struct {
	GitHubURL string `json:"githubUrl"`
}

// GitHubRepo lists the code files of a public repository
func (h *Handlers) GitHubRepo(c *gin.Context) {
	var req GitHubRepoRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.GitHubURL == "" {
		respondError(c, http.StatusBadRequest, "GitHub URL is required")
		return
	}

	ref, ok := github.ParseURL(req.GitHubURL)
	if !ok {
		respondError(c, http.StatusBadRequest, "Invalid GitHub URL format")
		return
	}

	listing, err := h.services.GitHub.ListRepository(c.Request.Context(), ref)
	if err != nil {
		if errors.Is(err, github.ErrRepositoryNotFound) {
			respondError(c, http.StatusNotFound, err.Error())
			return
		}
		h.logger.Error("GitHub repo fetch failed",
			zap.String("owner", ref.Owner),
			zap.String("repo", ref.Repo),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, err.Error())
		return
	}

	respondOK(c, listing)
}
