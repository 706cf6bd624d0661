package github

import (
	"path"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MaxFileSize is the exclusive upper bound on listed blob sizes.
const MaxFileSize = 1_000_000

// CodeExtensions lists the extensions of files worth offering for analysis.
var CodeExtensions = []string{
	".js", ".ts", ".jsx", ".tsx", ".py", ".go", ".java", ".php", ".rb",
	".cs", ".cpp", ".c", ".rs", ".kt", ".json", ".yml", ".yaml", ".env",
}

// Any path segment naming one of these directories excludes the entry.
var excludedDirs = regexp.MustCompile(`(^|/)(node_modules|\.git|dist|build|target|vendor|\.next)/`)

// TreeEntry is one item of a git tree API response.
type TreeEntry struct {
	Path string `json:"path"`
	Mode string `json:"mode"`
	Type string `json:"type"`
	SHA  string `json:"sha"`
	Size int64  `json:"size"`
	URL  string `json:"url,omitempty"`
}

// File is a listed source file as returned to the browser.
type File struct {
	Path        string `json:"path"`
	Size        int64  `json:"size"`
	SHA         string `json:"sha"`
	DisplayName string `json:"displayName"`
	Directory   string `json:"directory"`
	Extension   string `json:"extension"`
	Owner       string `json:"owner"`
	Repo        string `json:"repo"`
	Branch      string `json:"branch"`
}

// IsCodeFile reports whether a tree entry is a listable source file.
func IsCodeFile(e TreeEntry) bool {
	if e.Type != "blob" {
		return false
	}
	if e.Size >= MaxFileSize {
		return false
	}
	if excludedDirs.MatchString(e.Path) {
		return false
	}
	return hasCodeExtension(e.Path)
}

func hasCodeExtension(p string) bool {
	lower := strings.ToLower(p)
	for _, ext := range CodeExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// BuildFiles filters entries down to code files, decorates them with the
// repository coordinates and sorts them.
func BuildFiles(owner, repo, branch string, entries []TreeEntry) []File {
	files := make([]File, 0, len(entries))
	for _, e := range entries {
		if !IsCodeFile(e) {
			continue
		}
		files = append(files, newFile(owner, repo, branch, e))
	}
	SortFiles(files)
	return files
}

func newFile(owner, repo, branch string, e TreeEntry) File {
	dir := ""
	if i := strings.LastIndex(e.Path, "/"); i >= 0 {
		dir = e.Path[:i]
	}
	name := path.Base(e.Path)

	ext := strings.ToLower(name)
	if i := strings.LastIndex(ext, "."); i >= 0 {
		ext = ext[i+1:]
	}

	return File{
		Path:        e.Path,
		Size:        e.Size,
		SHA:         e.SHA,
		DisplayName: name,
		Directory:   dir,
		Extension:   ext,
		Owner:       owner,
		Repo:        repo,
		Branch:      branch,
	}
}

// SortFiles orders files by directory, then by display name, using English
// locale collation.
func SortFiles(files []File) {
	col := collate.New(language.English)
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Directory != b.Directory {
			return col.CompareString(a.Directory, b.Directory) < 0
		}
		return col.CompareString(a.DisplayName, b.DisplayName) < 0
	})
}
