package prompt

import (
	"strings"
	"testing"
)

func TestBuildBaseOnly(t *testing.T) {
	got := NewBuilder("You are a helper.").Build()
	if got != "You are a helper." {
		t.Fatalf("unexpected prompt: %q", got)
	}
}

func TestBuildFullPrompt(t *testing.T) {
	got := NewBuilder(DefaultBase).
		SetPatchFormat(true).
		SetProject("/home/u/proj", "--- main.go ---\npackage main\n").
		Build()

	if !strings.HasPrefix(got, DefaultBase) {
		t.Fatalf("base section missing:\n%s", got)
	}
	patchIdx := strings.Index(got, "## Proposing changes")
	projIdx := strings.Index(got, "## Project files (/home/u/proj)")
	if patchIdx < 0 || projIdx < 0 {
		t.Fatalf("sections missing:\n%s", got)
	}
	if patchIdx > projIdx {
		t.Fatal("patch section should precede project files")
	}
	if !strings.Contains(got, "--- main.go ---") {
		t.Fatal("project context not included")
	}
}

func TestEmptyContextOmitsProjectSection(t *testing.T) {
	got := NewBuilder(DefaultBase).SetProject("/p", "").Build()
	if strings.Contains(got, "## Project files") {
		t.Fatalf("empty context produced a project section:\n%s", got)
	}
}

func TestJoinSectionsSkipsBlank(t *testing.T) {
	got := joinSections([]string{"a", "  ", "", "b"})
	if got != "a\n\nb" {
		t.Fatalf("joinSections = %q", got)
	}
}
