// Package github lists the source files of public GitHub repositories
// through the recursive git trees API.
package github

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultBranch is assumed when the URL does not name a branch.
const DefaultBranch = "main"

// RepoRef identifies a repository and the branch requested for it.
type RepoRef struct {
	Owner  string
	Repo   string
	Branch string
}

// HTMLURL returns the repository page on github.com.
func (r RepoRef) HTMLURL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Repo)
}

// Tried in order; the first match wins.
var urlPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^https?://github\.com/([^/?#]+)/([^/?#]+)(?:/tree/([^/?#]+))?`),
	regexp.MustCompile(`^github\.com/([^/?#]+)/([^/?#]+)(?:/tree/([^/?#]+))?`),
	regexp.MustCompile(`^([^/]+)/([^/]+)$`),
}

// ParseURL extracts owner, repository and branch from a full GitHub URL,
// a host-qualified path or a bare "owner/repo". The branch defaults to main.
func ParseURL(raw string) (RepoRef, bool) {
	s := strings.TrimSpace(raw)
	for _, re := range urlPatterns {
		m := re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		ref := RepoRef{
			Owner:  m[1],
			Repo:   strings.TrimSuffix(m[2], ".git"),
			Branch: m[3],
		}
		if ref.Branch == "" {
			ref.Branch = DefaultBranch
		}
		if ref.Owner == "" || ref.Repo == "" {
			return RepoRef{}, false
		}
		return ref, true
	}
	return RepoRef{}, false
}

// CandidateBranches returns the branches to try for a parsed reference:
// the requested branch, then main, then master, without repeats.
func CandidateBranches(requested string) []string {
	out := make([]string, 0, 3)
	seen := make(map[string]bool, 3)
	for _, b := range []string{requested, "main", "master"} {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}
