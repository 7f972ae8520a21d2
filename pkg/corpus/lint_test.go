package corpus

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func assertIssue(t *testing.T, result *Result, path, substr string) {
	t.Helper()
	for _, issue := range result.Issues {
		if issue.Path == path && strings.Contains(issue.Message, substr) {
			return
		}
	}
	t.Errorf("no issue for %s containing %q, got %v", path, substr, result.Issues)
}

const validAgent = `---
name: reviewer
description: Reviews pull requests for style and correctness
model: sonnet
tools:
  - bash
  - edit
---

Review the diff carefully and leave actionable comments.
`

const validSkill = `---
name: changelog
description: Maintains the release changelog
version: 1.2.0
---

Update CHANGELOG.md from merged pull requests.
`

const validSettings = `{
  "hooks": {
    "SessionStart": [
      {"hooks": [{"type": "command", "command": "toolbelt hook session-start"}]}
    ],
    "PreCompact": [
      {"matcher": "auto", "hooks": [{"type": "command", "command": "toolbelt hook pre-compact", "timeout": 30}]}
    ]
  }
}
`

const validMCP = `{
  "mcpServers": {
    "filesystem": {"command": "npx", "args": ["-y", "@modelcontextprotocol/server-filesystem"]},
    "docs": {"url": "https://docs.example.com/mcp", "type": "http"}
  }
}
`

func TestLinter_CleanCorpus(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "agents/reviewer.md", validAgent)
	writeCorpusFile(t, root, "commands/deploy.md", `---
description: Deploy the current branch to staging
argument-hint: "[environment]"
---

Deploy $ARGUMENTS to the requested environment.
`)
	writeCorpusFile(t, root, "commands/ops/restart.md", `---
name: restart
description: Restart a service by name
---

Restart the $ARGUMENTS service and tail its logs.
`)
	writeCorpusFile(t, root, "skills/changelog/SKILL.md", validSkill)
	writeCorpusFile(t, root, "rules/style.md", "Prefer table driven tests over copy pasted assertions.\n")
	writeCorpusFile(t, root, "settings.json", validSettings)
	writeCorpusFile(t, root, "mcp.json", validMCP)

	result, err := NewLinter(root).Run()
	require.NoError(t, err)
	assert.True(t, result.OK(), "unexpected issues: %v", result.Issues)
	assert.NoError(t, result.Err())
	assert.Equal(t, 7, result.Checked)
}

func TestLinter_AgentChecks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		substr  string
	}{
		{
			name:    "no frontmatter",
			content: "Just prose, no metadata.\n",
			substr:  "missing frontmatter",
		},
		{
			name:    "missing name",
			content: "---\ndescription: Reviews code\n---\n\nDo the review.\n",
			substr:  "missing required field: name",
		},
		{
			name:    "missing description",
			content: "---\nname: reviewer\n---\n\nDo the review.\n",
			substr:  "missing required field: description",
		},
		{
			name:    "uppercase name",
			content: "---\nname: Reviewer\ndescription: Reviews code\n---\n\nDo the review.\n",
			substr:  "must be lowercase",
		},
		{
			name:    "empty body",
			content: "---\nname: reviewer\ndescription: Reviews code\n---\n",
			substr:  "no system prompt",
		},
		{
			name:    "bad version",
			content: "---\nname: reviewer\ndescription: Reviews code\nversion: latest\n---\n\nDo the review.\n",
			substr:  "not valid semver",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := t.TempDir()
			writeCorpusFile(t, root, "agents/reviewer.md", tt.content)

			result, err := NewLinter(root).Run()
			require.NoError(t, err)
			assertIssue(t, result, "agents/reviewer.md", tt.substr)
		})
	}
}

func TestLinter_CommandChecks(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "commands/good.md", "---\ndescription: A fine command\n---\n\nDo it.\n")
	writeCorpusFile(t, root, "commands/nested/also-good.md", "---\ndescription: Namespaced command\n---\n\nDo it too.\n")
	writeCorpusFile(t, root, "commands/no-desc.md", "---\nname: no-desc\n---\n\nBody here.\n")
	writeCorpusFile(t, root, "commands/hollow.md", "---\ndescription: Expands to nothing\n---\n")

	result, err := NewLinter(root).Run()
	require.NoError(t, err)
	assert.Equal(t, 4, result.Checked, "nested command files should be discovered")
	assert.Len(t, result.Issues, 2)
	assertIssue(t, result, "commands/no-desc.md", "missing required field: description")
	assertIssue(t, result, "commands/hollow.md", "expands to nothing")
}

func TestLinter_SkillChecks(t *testing.T) {
	t.Run("name must match directory", func(t *testing.T) {
		root := t.TempDir()
		writeCorpusFile(t, root, "skills/changelog/SKILL.md", `---
name: release-notes
description: Maintains the release changelog
---

Update CHANGELOG.md.
`)
		result, err := NewLinter(root).Run()
		require.NoError(t, err)
		assertIssue(t, result, "skills/changelog/SKILL.md", `skill name "release-notes" does not match directory "changelog"`)
	})

	t.Run("directory without SKILL.md", func(t *testing.T) {
		root := t.TempDir()
		writeCorpusFile(t, root, "skills/changelog/notes.md", "scratch space\n")

		result, err := NewLinter(root).Run()
		require.NoError(t, err)
		assertIssue(t, result, "skills/changelog", "missing SKILL.md")
	})

	t.Run("valid skill passes", func(t *testing.T) {
		root := t.TempDir()
		writeCorpusFile(t, root, "skills/changelog/SKILL.md", validSkill)

		result, err := NewLinter(root).Run()
		require.NoError(t, err)
		assert.True(t, result.OK(), "unexpected issues: %v", result.Issues)
	})
}

func TestLinter_RuleChecks(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "rules/good.md", "Always run the linter before committing.\n")
	writeCorpusFile(t, root, "rules/empty.md", "---\ndescription: Metadata with nothing behind it\n---\n")

	result, err := NewLinter(root).Run()
	require.NoError(t, err)
	assert.Len(t, result.Issues, 1)
	assertIssue(t, result, "rules/empty.md", "the rule says nothing")
}

func TestLinter_UndecodableFrontmatter(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "agents/odd.md", `---
name: odd
description: Metadata with a structurally wrong field
tools:
  nested:
    map: true
---

Body text.
`)

	result, err := NewLinter(root).Run()
	require.NoError(t, err)
	assertIssue(t, result, "agents/odd.md", "failed to decode frontmatter")
}

func TestLinter_IncludeFilter(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "agents/good.md", validAgent)
	writeCorpusFile(t, root, "agents/bad.md", "---\nname: bad\n---\n\nBody.\n")
	writeCorpusFile(t, root, "mcp.json", `{"mcpServers": {"broken": {"args": []}}}`)

	t.Run("agents only", func(t *testing.T) {
		result, err := NewLinter(root, WithIncludes("agents/*.md")).Run()
		require.NoError(t, err)
		assert.Equal(t, 2, result.Checked)
		assert.Len(t, result.Issues, 1)
		assertIssue(t, result, "agents/bad.md", "missing required field: description")
	})

	t.Run("catalog only", func(t *testing.T) {
		result, err := NewLinter(root, WithIncludes("mcp.json")).Run()
		require.NoError(t, err)
		assert.Equal(t, 1, result.Checked)
		require.NotEmpty(t, result.Issues)
		for _, issue := range result.Issues {
			assert.Equal(t, "mcp.json", issue.Path)
		}
	})
}

func TestLinter_IssuesSortedByPath(t *testing.T) {
	root := t.TempDir()
	writeCorpusFile(t, root, "rules/zz.md", "---\n---\n")
	writeCorpusFile(t, root, "agents/aa.md", "prose only\n")
	writeCorpusFile(t, root, "commands/mm.md", "---\nname: mm\n---\n\nBody.\n")

	result, err := NewLinter(root).Run()
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(result.Issues), 3)
	paths := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		paths = append(paths, issue.Path)
	}
	assert.True(t, sort.StringsAreSorted(paths), "issues out of order: %v", paths)
}

func TestLinter_MissingRoot(t *testing.T) {
	_, err := NewLinter(filepath.Join(t.TempDir(), "nope")).Run()
	assert.Error(t, err)
}

func TestLinter_RootNotDirectory(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "corpus")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := NewLinter(file).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestResult_Err(t *testing.T) {
	result := &Result{}
	assert.NoError(t, result.Err())

	result.add("agents/a.md", "missing required field: name")
	result.add("agents/b.md", "empty body")
	err := result.Err()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agents/a.md: missing required field: name")
	assert.Contains(t, err.Error(), "agents/b.md: empty body")
}
