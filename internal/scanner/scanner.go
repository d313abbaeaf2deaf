// Package scanner finds Go source files under a root, honoring configured
// exclusions and .gitignore rules.
package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/refract-sh/refract/pkg/config"
	"github.com/refract-sh/refract/pkg/parser"
)

// Scanner finds analyzable source files in a directory tree.
type Scanner struct {
	config   *config.Config
	matchers []gitignore.Matcher
}

// New creates a file scanner.
func New(cfg *config.Config) *Scanner {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Scanner{config: cfg}
}

// findGitRoot walks up from start looking for a .git directory. Returns ""
// outside a repository.
func findGitRoot(start string) string {
	dir := start
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// loadExcludePatterns combines config exclusions with the repository's
// .gitignore files. Config patterns use gitignore syntax so one matcher
// serves both.
func (s *Scanner) loadExcludePatterns(root string) {
	var patterns []gitignore.Pattern

	for _, dir := range s.config.Exclude.Dirs {
		patterns = append(patterns, gitignore.ParsePattern(dir+"/", nil))
	}
	for _, pattern := range s.config.Exclude.Patterns {
		patterns = append(patterns, gitignore.ParsePattern(pattern, nil))
	}

	if s.config.Exclude.Gitignore {
		if gitRoot := findGitRoot(root); gitRoot != "" {
			fs := osfs.New(gitRoot)
			if gitPatterns, err := gitignore.ReadPatterns(fs, nil); err == nil {
				patterns = append(patterns, gitPatterns...)
			}
		}
	}

	if len(patterns) > 0 {
		s.matchers = append(s.matchers, gitignore.NewMatcher(patterns))
	}
}

func (s *Scanner) isExcluded(path string, isDir bool) bool {
	if len(s.matchers) == 0 {
		return false
	}
	parts := strings.Split(path, string(filepath.Separator))
	for _, m := range s.matchers {
		if m.Match(parts, isDir) {
			return true
		}
	}
	return false
}

// ScanDir recursively collects Go files under root. Symlinks that resolve
// outside the root are skipped.
func (s *Scanner) ScanDir(root string) ([]string, error) {
	files := make([]string, 0, 256)

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	absRoot, err = filepath.EvalSymlinks(absRoot)
	if err != nil {
		return nil, err
	}

	s.loadExcludePatterns(root)

	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		relPath, _ := filepath.Rel(root, path)

		if d.Type()&fs.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(path)
			if err != nil || !isWithinRoot(resolved, absRoot) {
				if d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
		}

		if d.IsDir() {
			if s.isExcluded(relPath, true) {
				return filepath.SkipDir
			}
			return nil
		}

		if s.isExcluded(relPath, false) {
			return nil
		}
		if parser.DetectLanguage(path) == parser.LangGo {
			files = append(files, path)
		}
		return nil
	})

	return files, walkErr
}

// isWithinRoot reports whether path stays inside root after symlink
// resolution.
func isWithinRoot(path, root string) bool {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	absPath = filepath.Clean(absPath)
	root = filepath.Clean(root)
	return absPath == root || strings.HasPrefix(absPath, root+string(filepath.Separator))
}

// ScanFile reports whether a single file should be analyzed.
func (s *Scanner) ScanFile(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if info.IsDir() {
		return false, nil
	}

	if len(s.matchers) == 0 {
		s.loadExcludePatterns(filepath.Dir(path))
	}
	// Match the full path so directory exclusions apply to explicit file
	// arguments the same way they do during a directory walk.
	if s.isExcluded(filepath.Clean(path), false) {
		return false, nil
	}

	return parser.DetectLanguage(path) == parser.LangGo, nil
}

// Scan resolves a mixed list of file and directory arguments into the full
// set of analyzable files, deduplicated and in stable order.
func (s *Scanner) Scan(paths []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string

	add := func(path string) {
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			found, err := s.ScanDir(path)
			if err != nil {
				return nil, err
			}
			for _, f := range found {
				add(f)
			}
			continue
		}
		ok, err := s.ScanFile(path)
		if err != nil {
			return nil, err
		}
		if ok {
			add(path)
		}
	}

	return files, nil
}
