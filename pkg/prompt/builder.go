// Package prompt assembles the system prompt sent with each chat turn.
package prompt

import (
	"fmt"
	"strings"
)

// DefaultBase is the identity section of the system prompt.
const DefaultBase = `You are the AI coding assistant built into the VCCE editor.
You are given the contents of the user's project below. Answer questions
about the code and propose changes.`

// Builder constructs system prompts with structured sections.
type Builder struct {
	// Base system prompt (identity, core behavior)
	base string

	// Project root the context was aggregated from
	projectPath string

	// Aggregated project file contents
	projectContext string

	// Include the unified-diff reply instructions
	patchFormat bool
}

// NewBuilder creates a new prompt builder.
func NewBuilder(base string) *Builder {
	return &Builder{base: base}
}

// SetProject sets the project root and its aggregated file contents.
func (b *Builder) SetProject(path, context string) *Builder {
	b.projectPath = path
	b.projectContext = context
	return b
}

// SetPatchFormat enables the unified-diff reply instructions.
func (b *Builder) SetPatchFormat(on bool) *Builder {
	b.patchFormat = on
	return b
}

// Build generates the final system prompt.
func (b *Builder) Build() string {
	sections := []string{}

	// 1. Base (identity, core behavior)
	if b.base != "" {
		sections = append(sections, b.base)
	}

	// 2. Patch format (how file changes must be proposed)
	if b.patchFormat {
		sections = append(sections, patchFormatSection)
	}

	// 3. Project files
	if context := b.buildProjectSection(); context != "" {
		sections = append(sections, context)
	}

	return joinSections(sections)
}

const patchFormatSection = `## Proposing changes
When you propose file changes, reply with a single fenced code block
tagged "diff" containing a unified diff against the project files.
Paths in the diff are relative to the project root.`

func (b *Builder) buildProjectSection() string {
	if b.projectContext == "" {
		return ""
	}
	header := "## Project files"
	if b.projectPath != "" {
		header = fmt.Sprintf("## Project files (%s)", b.projectPath)
	}
	return header + "\n\n" + b.projectContext
}

func joinSections(sections []string) string {
	parts := make([]string, 0, len(sections))
	for _, s := range sections {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, "\n\n")
}
