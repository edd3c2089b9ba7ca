package patch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// devNull is the unified-diff name for a nonexistent side.
const devNull = "/dev/null"

// fileOp is one planned change: new content, or removal when remove is
// set.
type fileOp struct {
	path    string
	content string
	remove  bool
}

// Apply applies a unified diff to the project's files as an
// all-or-nothing operation. Every file's post-image is computed in
// memory first; any hunk mismatch or unsafe path aborts before a
// single byte is written. The commit phase stages each new content to
// a temp file in the target directory and renames it into place.
func Apply(projectRoot, diffText string) error {
	fileDiffs, err := diff.ParseMultiFileDiff([]byte(diffText))
	if err != nil {
		return fmt.Errorf("invalid diff: %w", err)
	}
	if len(fileDiffs) == 0 {
		return fmt.Errorf("diff contains no file changes")
	}

	// Phase 1: validate everything in memory.
	ops := make([]fileOp, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		op, err := planFile(projectRoot, fd)
		if err != nil {
			return err
		}
		ops = append(ops, op)
	}

	// Phase 2: commit. Each write is a temp-file rename; nothing here
	// can fail on content grounds anymore.
	for _, op := range ops {
		if op.remove {
			if err := os.Remove(op.path); err != nil {
				return fmt.Errorf("failed to remove %s: %w", op.path, err)
			}
			continue
		}
		if err := stageAndRename(op.path, op.content); err != nil {
			return err
		}
	}
	return nil
}

// planFile computes one file's post-image without touching the tree.
func planFile(projectRoot string, fd *diff.FileDiff) (fileOp, error) {
	origName := stripDiffPrefix(fd.OrigName)
	newName := stripDiffPrefix(fd.NewName)

	switch {
	case origName == devNull && newName == devNull:
		return fileOp{}, fmt.Errorf("diff entry has no file name")

	case origName == devNull:
		// File creation: content is the plus lines only.
		target, err := resolveInProject(projectRoot, newName)
		if err != nil {
			return fileOp{}, err
		}
		if _, err := os.Stat(target); err == nil {
			return fileOp{}, fmt.Errorf("cannot create %s: file already exists", newName)
		}
		lines, err := applyHunks(nil, fd.Hunks)
		if err != nil {
			return fileOp{}, fmt.Errorf("%s: %w", newName, err)
		}
		return fileOp{path: target, content: joinLines(lines)}, nil

	case newName == devNull:
		// File deletion: the old content must still match.
		target, err := resolveInProject(projectRoot, origName)
		if err != nil {
			return fileOp{}, err
		}
		orig, err := readLines(target)
		if err != nil {
			return fileOp{}, err
		}
		if _, err := applyHunks(orig, fd.Hunks); err != nil {
			return fileOp{}, fmt.Errorf("%s: %w", origName, err)
		}
		return fileOp{path: target, remove: true}, nil

	default:
		target, err := resolveInProject(projectRoot, newName)
		if err != nil {
			return fileOp{}, err
		}
		orig, err := readLines(target)
		if err != nil {
			return fileOp{}, err
		}
		lines, err := applyHunks(orig, fd.Hunks)
		if err != nil {
			return fileOp{}, fmt.Errorf("%s: %w", newName, err)
		}
		return fileOp{path: target, content: joinLines(lines)}, nil
	}
}

// applyHunks replays hunks over the original lines, verifying every
// context and deletion line before producing the result.
func applyHunks(orig []string, hunks []*diff.Hunk) ([]string, error) {
	var out []string
	pos := 0

	for _, h := range hunks {
		start := int(h.OrigStartLine) - 1
		if h.OrigLines == 0 {
			// Pure insertion anchors after the given line.
			start = int(h.OrigStartLine)
		}
		if start < pos || start > len(orig) {
			return nil, fmt.Errorf("hunk start line %d out of range", h.OrigStartLine)
		}

		out = append(out, orig[pos:start]...)
		pos = start

		bodyLines := strings.Split(string(h.Body), "\n")
		for i, line := range bodyLines {
			if line == "" {
				// The trailing "" is the split artifact of the body's
				// final newline. Anywhere else it is an empty context
				// line whose leading space was trimmed, common in
				// whitespace-stripped diffs.
				if i == len(bodyLines)-1 {
					continue
				}
				if pos >= len(orig) || orig[pos] != "" {
					return nil, fmt.Errorf("hunk context mismatch at line %d", pos+1)
				}
				out = append(out, "")
				pos++
				continue
			}
			marker, text := line[0], line[1:]
			switch marker {
			case ' ', '-':
				if pos >= len(orig) || orig[pos] != text {
					return nil, fmt.Errorf("hunk context mismatch at line %d", pos+1)
				}
				if marker == ' ' {
					out = append(out, text)
				}
				pos++
			case '+':
				out = append(out, text)
			case '\\':
				// "\ No newline at end of file"
			default:
				return nil, fmt.Errorf("unexpected hunk line marker %q", marker)
			}
		}
	}

	out = append(out, orig[pos:]...)
	return out, nil
}

// resolveInProject resolves a diff file name inside the project root,
// rejecting absolute names and escapes.
func resolveInProject(projectRoot, name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty file name in diff")
	}
	if filepath.IsAbs(name) {
		return "", fmt.Errorf("absolute path %s not allowed in diff", name)
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the project root", name)
	}
	return filepath.Join(projectRoot, clean), nil
}

// stripDiffPrefix removes the conventional a/ and b/ name prefixes.
func stripDiffPrefix(name string) string {
	if strings.HasPrefix(name, "a/") || strings.HasPrefix(name, "b/") {
		return name[2:]
	}
	return name
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	content := strings.TrimSuffix(string(data), "\n")
	if content == "" {
		return nil, nil
	}
	return strings.Split(content, "\n"), nil
}

func joinLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// stageAndRename writes content next to the target and renames it into
// place.
func stageAndRename(target, content string) error {
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".vcce-patch-*")
	if err != nil {
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to stage %s: %w", target, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to commit %s: %w", target, err)
	}
	return nil
}
