package corpus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agent.md")
	require.NoError(t, os.WriteFile(path, []byte(validAgent), 0o644))

	doc, err := parseDocument(path)
	require.NoError(t, err)
	assert.True(t, doc.hasFrontmatter)
	assert.Equal(t, "reviewer", doc.fm.Name)
	assert.Equal(t, "Reviews pull requests for style and correctness", doc.fm.Description)
	assert.Equal(t, "sonnet", doc.fm.Model)
	assert.Equal(t, []string{"bash", "edit"}, doc.fm.Tools)
	assert.Equal(t, "Review the diff carefully and leave actionable comments.", doc.body)
}

func TestParseDocument_NoFrontmatter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rule.md")
	require.NoError(t, os.WriteFile(path, []byte("Keep functions short.\n"), 0o644))

	doc, err := parseDocument(path)
	require.NoError(t, err)
	assert.False(t, doc.hasFrontmatter)
	assert.Equal(t, "Keep functions short.", doc.body)
}

func TestParseDocument_NumericVersionCoerced(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "SKILL.md")
	require.NoError(t, os.WriteFile(path, []byte("---\nname: x\ndescription: y\nversion: 1.2\n---\n\nBody.\n"), 0o644))

	doc, err := parseDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "1.2", doc.fm.Version)
}

func TestParseDocument_MissingFile(t *testing.T) {
	_, err := parseDocument(filepath.Join(t.TempDir(), "absent.md"))
	assert.Error(t, err)
}

func TestExtractBody(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "frontmatter stripped",
			content:  "---\nname: x\n---\n\nThe body.\n",
			expected: "The body.",
		},
		{
			name:     "no frontmatter",
			content:  "Plain prose.\n",
			expected: "Plain prose.",
		},
		{
			name:     "unterminated frontmatter kept as body",
			content:  "---\nname: x\nThe rest.\n",
			expected: "---\nname: x\nThe rest.",
		},
		{
			name:     "empty file",
			content:  "",
			expected: "",
		},
		{
			name:     "frontmatter only",
			content:  "---\nname: x\n---\n",
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extractBody(tt.content))
		})
	}
}
