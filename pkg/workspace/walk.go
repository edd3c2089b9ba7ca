package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// vcsDirs are always excluded from aggregation, ignore rules aside.
var vcsDirs = map[string]bool{
	".git": true,
	".hg":  true,
	".svn": true,
}

// binaryExts mark files whose bytes never enter the context; only a
// placeholder with the relative path is emitted.
var binaryExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".ico": true,
	".bmp": true, ".webp": true, ".pdf": true, ".zip": true, ".tar": true,
	".gz": true, ".bz2": true, ".7z": true, ".rar": true, ".exe": true,
	".dll": true, ".so": true, ".dylib": true, ".bin": true, ".class": true,
	".jar": true, ".war": true, ".woff": true, ".woff2": true, ".ttf": true,
	".eot": true, ".mp3": true, ".mp4": true, ".avi": true, ".mov": true,
	".wasm": true, ".o": true, ".a": true,
}

// matcher is the ignore-pattern contract consumed during the walk.
// *ignore.GitIgnore satisfies it.
type matcher interface {
	MatchesPath(relativePath string) bool
}

// prefixMatcher is the fallback when the ignore file cannot be
// compiled: one literal prefix per non-comment, non-empty line.
type prefixMatcher struct {
	prefixes []string
}

func (m *prefixMatcher) MatchesPath(relativePath string) bool {
	for _, p := range m.prefixes {
		if strings.HasPrefix(relativePath, p) {
			return true
		}
	}
	return false
}

// loadIgnoreMatcher compiles the project's .gitignore, falling back to
// a literal-prefix matcher, then to matching nothing at all.
func loadIgnoreMatcher(projectPath string) matcher {
	ignorePath := filepath.Join(projectPath, ".gitignore")
	if gi, err := ignore.CompileIgnoreFile(ignorePath); err == nil {
		return gi
	}

	m := &prefixMatcher{}
	data, err := os.ReadFile(ignorePath)
	if err != nil {
		return m
	}
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		m.prefixes = append(m.prefixes, strings.TrimSuffix(line, "/"))
	}
	return m
}

// buildContext walks the project tree depth-first with an explicit
// stack and aggregates labeled file blocks until the byte budget is
// exceeded. Partial context is acceptable; overshoot is bounded by the
// one file that crossed the budget.
func buildContext(projectPath string, budget int) (string, error) {
	info, err := os.Stat(projectPath)
	if err != nil {
		return "", fmt.Errorf("failed to open project %s: %w", projectPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project path %s is not a directory", projectPath)
	}

	ign := loadIgnoreMatcher(projectPath)

	var sb strings.Builder
	total := 0
	stack := []string{"."}

walk:
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(filepath.Join(projectPath, dir))
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			continue
		}

		for _, entry := range entries {
			rel := entry.Name()
			if dir != "." {
				rel = filepath.Join(dir, entry.Name())
			}

			if entry.IsDir() {
				if vcsDirs[entry.Name()] || ign.MatchesPath(rel) {
					continue
				}
				stack = append(stack, rel)
				continue
			}
			if !entry.Type().IsRegular() || ign.MatchesPath(rel) {
				continue
			}

			var block string
			if binaryExts[strings.ToLower(filepath.Ext(entry.Name()))] {
				block = fmt.Sprintf("--- %s (binary file omitted) ---\n\n", rel)
			} else {
				data, err := os.ReadFile(filepath.Join(projectPath, rel))
				if err != nil {
					continue
				}
				block = fmt.Sprintf("--- %s ---\n%s\n\n", rel, data)
			}

			sb.WriteString(block)
			total += len(block)
			if total > budget {
				break walk
			}
		}
	}

	return sb.String(), nil
}

// within reports whether child is projectRoot itself or lives under it.
func within(projectRoot, child string) bool {
	rel, err := filepath.Rel(projectRoot, child)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, "..") && !filepath.IsAbs(rel))
}
