package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/internal/metrics"
	"github.com/auditfix/auditfix-gateway/pkg/config"
)

// ErrRepositoryNotFound is returned when none of the candidate branches
// resolves to a tree.
var ErrRepositoryNotFound = errors.New("Repository not found or not accessible. Make sure it's public.")

// Tree is the body of GET /repos/{owner}/{repo}/git/trees/{sha}?recursive=1.
type Tree struct {
	SHA       string      `json:"sha"`
	URL       string      `json:"url"`
	Tree      []TreeEntry `json:"tree"`
	Truncated bool        `json:"truncated"`
}

// Repository describes the resolved repository in a listing.
type Repository struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`
	URL    string `json:"url"`
}

// Listing is the filtered, sorted file list of a repository branch.
type Listing struct {
	Repository Repository `json:"repository"`
	Files      []File     `json:"files"`
	TotalFiles int        `json:"totalFiles"`
}

// Client talks to the GitHub REST API.
type Client struct {
	cfg    config.GitHubConfig
	client *http.Client
	cache  TreeCache
	logger *zap.Logger
}

// NewClient creates a GitHub client. A nil cache disables caching.
func NewClient(cfg config.GitHubConfig, cache TreeCache, logger *zap.Logger) *Client {
	if cache == nil {
		cache = NopCache{}
	}
	return &Client{
		cfg: cfg,
		client: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		cache:  cache,
		logger: logger.Named("github"),
	}
}

// ListRepository resolves a branch for ref, trying the requested branch,
// then main, then master, and returns the code files of the first one found.
func (c *Client) ListRepository(ctx context.Context, ref RepoRef) (*Listing, error) {
	for _, branch := range CandidateBranches(ref.Branch) {
		entries, err := c.treeEntries(ctx, ref.Owner, ref.Repo, branch)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			c.logger.Debug("Branch not available",
				zap.String("owner", ref.Owner),
				zap.String("repo", ref.Repo),
				zap.String("branch", branch),
				zap.Error(err))
			continue
		}

		files := BuildFiles(ref.Owner, ref.Repo, branch, entries)
		return &Listing{
			Repository: Repository{
				Owner:  ref.Owner,
				Repo:   ref.Repo,
				Branch: branch,
				URL:    ref.HTMLURL(),
			},
			Files:      files,
			TotalFiles: len(files),
		}, nil
	}

	return nil, ErrRepositoryNotFound
}

func (c *Client) treeEntries(ctx context.Context, owner, repo, branch string) ([]TreeEntry, error) {
	key := CacheKey(owner, repo, branch)
	if entries, ok, err := c.cache.Get(ctx, key); err != nil {
		c.logger.Warn("Tree cache lookup failed", zap.String("key", key), zap.Error(err))
	} else if ok {
		metrics.TreeCache.WithLabelValues("hit").Inc()
		return entries, nil
	}
	metrics.TreeCache.WithLabelValues("miss").Inc()

	tree, err := c.FetchTree(ctx, owner, repo, branch)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Set(ctx, key, tree.Tree); err != nil {
		c.logger.Warn("Failed to cache tree", zap.String("key", key), zap.Error(err))
	}
	return tree.Tree, nil
}

// StatusError reports a non-200 answer from the trees API.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

// FetchTree fetches the recursive tree of a branch.
func (c *Client) FetchTree(ctx context.Context, owner, repo, branch string) (*Tree, error) {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1",
		strings.TrimSuffix(c.cfg.BaseURL, "/"),
		url.PathEscape(owner), url.PathEscape(repo), url.PathEscape(branch))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(metrics.UpstreamGitHub, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.ObserveUpstream(metrics.UpstreamGitHub, metrics.OutcomeMiss)
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var tree Tree
	if err := json.NewDecoder(resp.Body).Decode(&tree); err != nil {
		metrics.ObserveUpstream(metrics.UpstreamGitHub, metrics.OutcomeError)
		return nil, fmt.Errorf("failed to decode tree: %w", err)
	}
	metrics.ObserveUpstream(metrics.UpstreamGitHub, metrics.OutcomeOK)

	if tree.Truncated {
		c.logger.Warn("Tree listing truncated by GitHub",
			zap.String("owner", owner),
			zap.String("repo", repo),
			zap.String("branch", branch),
			zap.Int("entries", len(tree.Tree)))
	}

	return &tree, nil
}
