package patch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeProjectFile(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestApplyModify tests the common modify case.
func TestApplyModify(t *testing.T) {
	root := t.TempDir()
	path := writeProjectFile(t, root, "greet.txt", "hello\nworld\nbye\n")

	diffText := `--- a/greet.txt
+++ b/greet.txt
@@ -1,3 +1,3 @@
 hello
-world
+editor
 bye
`
	require.NoError(t, Apply(root, diffText))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "hello\neditor\nbye\n", string(data))
}

// TestApplyCreate tests creation from a /dev/null original.
func TestApplyCreate(t *testing.T) {
	root := t.TempDir()

	diffText := `--- /dev/null
+++ b/docs/new.txt
@@ -0,0 +1,2 @@
+alpha
+beta
`
	require.NoError(t, Apply(root, diffText))

	data, err := os.ReadFile(filepath.Join(root, "docs", "new.txt"))
	require.NoError(t, err)
	require.Equal(t, "alpha\nbeta\n", string(data))
}

// TestApplyDelete tests removal via a /dev/null target.
func TestApplyDelete(t *testing.T) {
	root := t.TempDir()
	path := writeProjectFile(t, root, "old.txt", "one\ntwo\n")

	diffText := `--- a/old.txt
+++ /dev/null
@@ -1,2 +0,0 @@
-one
-two
`
	require.NoError(t, Apply(root, diffText))

	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

// TestApplyMismatchLeavesTreeUntouched tests all-or-nothing: a context
// mismatch in the second file must not write the first.
func TestApplyMismatchLeavesTreeUntouched(t *testing.T) {
	root := t.TempDir()
	first := writeProjectFile(t, root, "a.txt", "keep\n")
	second := writeProjectFile(t, root, "b.txt", "actual content\n")

	diffText := `--- a/a.txt
+++ b/a.txt
@@ -1 +1 @@
-keep
+changed
--- a/b.txt
+++ b/b.txt
@@ -1 +1 @@
-expected content
+changed too
`
	err := Apply(root, diffText)
	require.Error(t, err)
	require.Contains(t, err.Error(), "mismatch")

	data, _ := os.ReadFile(first)
	require.Equal(t, "keep\n", string(data), "first file must be untouched after a later mismatch")
	data, _ = os.ReadFile(second)
	require.Equal(t, "actual content\n", string(data))
}

// TestApplyRejectsEscape tests that paths escaping the project root are
// refused before any write.
func TestApplyRejectsEscape(t *testing.T) {
	root := t.TempDir()

	diffText := `--- /dev/null
+++ b/../outside.txt
@@ -0,0 +1 @@
+boom
`
	err := Apply(root, diffText)
	require.Error(t, err)
	require.Contains(t, err.Error(), "escapes")

	_, statErr := os.Stat(filepath.Join(filepath.Dir(root), "outside.txt"))
	require.True(t, os.IsNotExist(statErr))
}

// TestApplyCreateExisting tests that creating over an existing file is
// refused.
func TestApplyCreateExisting(t *testing.T) {
	root := t.TempDir()
	writeProjectFile(t, root, "exists.txt", "already here\n")

	diffText := `--- /dev/null
+++ b/exists.txt
@@ -0,0 +1 @@
+new content
`
	err := Apply(root, diffText)
	require.Error(t, err)

	data, _ := os.ReadFile(filepath.Join(root, "exists.txt"))
	require.Equal(t, "already here\n", string(data))
}

// TestApplyInsertionHunk tests a pure-insert hunk with zero original
// lines.
func TestApplyInsertionHunk(t *testing.T) {
	root := t.TempDir()
	path := writeProjectFile(t, root, "list.txt", "one\ntwo\n")

	diffText := `--- a/list.txt
+++ b/list.txt
@@ -1,2 +1,3 @@
 one
+one and a half
 two
`
	require.NoError(t, Apply(root, diffText))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "one\none and a half\ntwo\n", string(data))
}

// TestApproveAppliesAndRemoves tests the registry-level approve path
// end to end.
func TestApproveAppliesAndRemoves(t *testing.T) {
	root := t.TempDir()
	path := writeProjectFile(t, root, "main.txt", "before\n")

	r := NewRegistry()
	entry := r.Register(root, "--- a/main.txt\n+++ b/main.txt\n@@ -1 +1 @@\n-before\n+after\n")

	require.NoError(t, r.Approve(entry.ID))
	require.Equal(t, 0, r.Count())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "after\n", string(data))

	// A second approve of the consumed id fails.
	require.ErrorIs(t, r.Approve(entry.ID), ErrUnknownPatch)
}

// TestApplyTrimmedBlankContextLine tests an empty context line whose
// leading space was stripped, as whitespace-trimming producers emit.
func TestApplyTrimmedBlankContextLine(t *testing.T) {
	root := t.TempDir()
	path := writeProjectFile(t, root, "spaced.txt", "first\n\nlast\n")

	diffText := "--- a/spaced.txt\n" +
		"+++ b/spaced.txt\n" +
		"@@ -1,3 +1,3 @@\n" +
		" first\n" +
		"\n" +
		"-last\n" +
		"+final\n"
	require.NoError(t, Apply(root, diffText))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "first\n\nfinal\n", string(data))
}
