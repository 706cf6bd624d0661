package github

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/auditfix/auditfix-gateway/pkg/config"
)

func testConfig(apiURL string) config.GitHubConfig {
	cfg := config.Default().GitHub
	cfg.BaseURL = apiURL
	return cfg
}

// newTreeServer serves trees for the given branches and 404 for the rest.
func newTreeServer(t *testing.T, trees map[string][]TreeEntry, hits *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			atomic.AddInt32(hits, 1)
		}
		assert.Equal(t, "1", r.URL.Query().Get("recursive"))

		const prefix = "/repos/octocat/hello/git/trees/"
		if !strings.HasPrefix(r.URL.Path, prefix) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		branch := strings.TrimPrefix(r.URL.Path, prefix)
		entries, ok := trees[branch]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(Tree{SHA: "abc", Tree: entries})
	}))
}

func TestClient_FetchTree_Headers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "AuditFix-Security-Tool", r.Header.Get("User-Agent"))
		assert.Equal(t, "Bearer secret-token", r.Header.Get("Authorization"))
		assert.Equal(t, "/repos/octocat/hello/git/trees/main", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Tree{SHA: "abc", Tree: []TreeEntry{blob("a.go", 1)}})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	cfg.Token = "secret-token"
	client := NewClient(cfg, nil, zap.NewNop())

	tree, err := client.FetchTree(context.Background(), "octocat", "hello", "main")
	require.NoError(t, err)
	assert.Equal(t, "abc", tree.SHA)
	assert.Len(t, tree.Tree, 1)
}

func TestClient_FetchTree_NoTokenNoAuthorization(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(Tree{})
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.FetchTree(context.Background(), "octocat", "hello", "main")
	require.NoError(t, err)
}

func TestClient_FetchTree_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.FetchTree(context.Background(), "octocat", "hello", "main")
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusForbidden, statusErr.StatusCode)
}

func TestClient_ListRepository_RequestedBranch(t *testing.T) {
	server := newTreeServer(t, map[string][]TreeEntry{
		"develop": {blob("cmd/main.go", 10), blob("docs/readme.md", 5)},
		"main":    {blob("other.go", 10)},
	}, nil)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	listing, err := client.ListRepository(context.Background(), RepoRef{"octocat", "hello", "develop"})
	require.NoError(t, err)

	assert.Equal(t, Repository{Owner: "octocat", Repo: "hello", Branch: "develop", URL: "https://github.com/octocat/hello"}, listing.Repository)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "cmd/main.go", listing.Files[0].Path)
	assert.Equal(t, "develop", listing.Files[0].Branch)
	assert.Equal(t, 1, listing.TotalFiles)
}

func TestClient_ListRepository_FallsBackToMaster(t *testing.T) {
	var hits int32
	server := newTreeServer(t, map[string][]TreeEntry{
		"master": {blob("app.py", 10)},
	}, &hits)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	listing, err := client.ListRepository(context.Background(), RepoRef{"octocat", "hello", "main"})
	require.NoError(t, err)

	assert.Equal(t, "master", listing.Repository.Branch)
	require.Len(t, listing.Files, 1)
	assert.Equal(t, "master", listing.Files[0].Branch)
	// main once, then master
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestClient_ListRepository_UnknownBranchFallsBackToMain(t *testing.T) {
	server := newTreeServer(t, map[string][]TreeEntry{
		"main":   {blob("a.go", 1)},
		"master": {blob("b.go", 1)},
	}, nil)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	listing, err := client.ListRepository(context.Background(), RepoRef{"octocat", "hello", "gone"})
	require.NoError(t, err)
	assert.Equal(t, "main", listing.Repository.Branch)
}

func TestClient_ListRepository_NotFound(t *testing.T) {
	server := newTreeServer(t, map[string][]TreeEntry{}, nil)
	defer server.Close()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.ListRepository(context.Background(), RepoRef{"octocat", "hello", "main"})
	assert.ErrorIs(t, err, ErrRepositoryNotFound)
}

func TestClient_ListRepository_UsesCache(t *testing.T) {
	var hits int32
	server := newTreeServer(t, map[string][]TreeEntry{
		"main": {blob("a.go", 1)},
	}, &hits)
	defer server.Close()

	cache := NewMemoryCache(config.Default().Cache.TTLDuration())
	client := NewClient(testConfig(server.URL), cache, zap.NewNop())

	for i := 0; i < 3; i++ {
		listing, err := client.ListRepository(context.Background(), RepoRef{"octocat", "hello", "main"})
		require.NoError(t, err)
		assert.Equal(t, 1, listing.TotalFiles)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestClient_ListRepository_ContextCanceled(t *testing.T) {
	server := newTreeServer(t, map[string][]TreeEntry{"main": {blob("a.go", 1)}}, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(testConfig(server.URL), nil, zap.NewNop())
	_, err := client.ListRepository(ctx, RepoRef{"octocat", "hello", "main"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_ListRepository_CacheStaleness(t *testing.T) {
	var files atomic.Int32
	files.Store(1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entries := make([]TreeEntry, 0, files.Load())
		for i := int32(0); i < files.Load(); i++ {
			entries = append(entries, blob("f"+string(rune('a'+i))+".go", 1))
		}
		_ = json.NewEncoder(w).Encode(Tree{SHA: "abc", Tree: entries})
	}))
	defer server.Close()

	ref := RepoRef{"octocat", "hello", "main"}
	tests := []struct {
		name      string
		cacheType string
		want      int
	}{
		{"memory cache serves the listing until the entry expires", "memory", 1},
		{"none always reflects the current tree", "none", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files.Store(1)
			cacheCfg := config.Default().Cache
			cacheCfg.Type = tt.cacheType
			client := NewClient(testConfig(server.URL), NewTreeCache(cacheCfg, zap.NewNop()), zap.NewNop())

			listing, err := client.ListRepository(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, 1, listing.TotalFiles)

			files.Store(2)
			listing, err = client.ListRepository(context.Background(), ref)
			require.NoError(t, err)
			assert.Equal(t, tt.want, listing.TotalFiles)
		})
	}
}
