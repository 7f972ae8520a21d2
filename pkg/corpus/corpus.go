// Package corpus lints the customization files a project ships for the
// host: agent definitions, slash commands, skills, rules, hook wiring in
// settings.json and the MCP server catalog in mcp.json.
//
// Markdown files carry YAML frontmatter. The linter checks the metadata
// every group requires, validates the JSON configuration files against
// embedded schemas and reports all findings at once rather than stopping
// at the first problem.
package corpus

import (
	"fmt"
	"sort"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// Issue is a single problem found in a corpus file.
type Issue struct {
	// Path is relative to the corpus root
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Path == "" {
		return i.Message
	}
	return fmt.Sprintf("%s: %s", i.Path, i.Message)
}

// Result aggregates everything a lint run found.
type Result struct {
	// Checked counts the files that were inspected
	Checked int     `json:"checked"`
	Issues  []Issue `json:"issues,omitempty"`
}

// OK reports whether the run finished without findings.
func (r *Result) OK() bool {
	return len(r.Issues) == 0
}

// Err folds all issues into a single error, nil when the corpus is clean.
func (r *Result) Err() error {
	var merr *multierror.Error
	for _, issue := range r.Issues {
		merr = multierror.Append(merr, errors.New(issue.String()))
	}
	return merr.ErrorOrNil()
}

func (r *Result) add(path, format string, args ...interface{}) {
	r.Issues = append(r.Issues, Issue{Path: path, Message: fmt.Sprintf(format, args...)})
}

func (r *Result) sortIssues() {
	sort.SliceStable(r.Issues, func(i, j int) bool {
		return r.Issues[i].Path < r.Issues[j].Path
	})
}
