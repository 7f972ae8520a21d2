package corpus

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"
)

const skillFile = "SKILL.md"

// names identify files to the host, so they stay shell and URL safe
var nameRe = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// Linter walks a corpus directory and checks every group it knows about.
type Linter struct {
	root     string
	includes []string
}

// LinterOption configures a Linter.
type LinterOption func(*Linter)

// WithIncludes restricts the run to files matching at least one of the
// given doublestar patterns, relative to the corpus root.
func WithIncludes(patterns ...string) LinterOption {
	return func(l *Linter) {
		l.includes = append(l.includes, patterns...)
	}
}

// NewLinter creates a linter rooted at dir.
func NewLinter(root string, opts ...LinterOption) *Linter {
	l := &Linter{root: root}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type checkFunc func(result *Result, rel string, doc *document)

// Run lints the whole corpus and returns the aggregated result. Only an
// unusable corpus root fails the run; per-file problems become issues on
// the result.
func (l *Linter) Run() (*Result, error) {
	info, err := os.Stat(l.root)
	if err != nil {
		return nil, errors.Wrap(err, "failed to stat corpus root")
	}
	if !info.IsDir() {
		return nil, errors.Errorf("corpus root %s is not a directory", l.root)
	}

	result := &Result{}
	groups := []struct {
		pattern string
		check   checkFunc
	}{
		{"agents/*.md", l.lintAgent},
		{"commands/**/*.md", l.lintCommand},
		{"skills/*/" + skillFile, l.lintSkill},
		{"rules/**/*.md", l.lintRule},
	}
	for _, group := range groups {
		if err := l.lintGroup(result, group.pattern, group.check); err != nil {
			return nil, err
		}
	}
	l.lintSkillDirs(result)
	l.lintJSON(result, "settings.json", ValidateSettings)
	l.lintJSON(result, "mcp.json", ValidateMCP)
	result.sortIssues()
	return result, nil
}

func (l *Linter) lintGroup(result *Result, pattern string, check checkFunc) error {
	matches, err := doublestar.Glob(os.DirFS(l.root), pattern)
	if err != nil {
		return errors.Wrapf(err, "failed to glob %s", pattern)
	}
	sort.Strings(matches)
	for _, rel := range matches {
		if !l.included(rel) {
			continue
		}
		result.Checked++
		doc, err := parseDocument(filepath.Join(l.root, filepath.FromSlash(rel)))
		if err != nil {
			result.add(rel, "%v", err)
			continue
		}
		check(result, rel, doc)
	}
	return nil
}

func (l *Linter) lintAgent(result *Result, rel string, doc *document) {
	if !doc.hasFrontmatter {
		result.add(rel, "missing frontmatter")
		return
	}
	l.checkName(result, rel, doc.fm.Name, true)
	if strings.TrimSpace(doc.fm.Description) == "" {
		result.add(rel, "missing required field: description")
	}
	l.checkVersion(result, rel, doc.fm.Version)
	if doc.body == "" {
		result.add(rel, "empty body, the agent has no system prompt")
	}
}

func (l *Linter) lintCommand(result *Result, rel string, doc *document) {
	if !doc.hasFrontmatter {
		result.add(rel, "missing frontmatter")
		return
	}
	l.checkName(result, rel, doc.fm.Name, false)
	if strings.TrimSpace(doc.fm.Description) == "" {
		result.add(rel, "missing required field: description")
	}
	if doc.body == "" {
		result.add(rel, "empty body, the command expands to nothing")
	}
}

func (l *Linter) lintSkill(result *Result, rel string, doc *document) {
	if !doc.hasFrontmatter {
		result.add(rel, "missing frontmatter")
		return
	}
	l.checkName(result, rel, doc.fm.Name, true)
	if strings.TrimSpace(doc.fm.Description) == "" {
		result.add(rel, "missing required field: description")
	}
	if dir := filepath.Base(filepath.Dir(doc.path)); doc.fm.Name != "" && doc.fm.Name != dir {
		result.add(rel, "skill name %q does not match directory %q", doc.fm.Name, dir)
	}
	l.checkVersion(result, rel, doc.fm.Version)
	if doc.body == "" {
		result.add(rel, "empty body, the skill has no instructions")
	}
}

func (l *Linter) lintRule(result *Result, rel string, doc *document) {
	l.checkVersion(result, rel, doc.fm.Version)
	if doc.body == "" {
		result.add(rel, "empty body, the rule says nothing")
	}
}

func (l *Linter) checkName(result *Result, rel, name string, required bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		if required {
			result.add(rel, "missing required field: name")
		}
		return
	}
	if !nameRe.MatchString(name) {
		result.add(rel, "name %q must be lowercase alphanumerics and hyphens", name)
	}
}

func (l *Linter) checkVersion(result *Result, rel, version string) {
	if version == "" {
		return
	}
	if _, err := semver.NewVersion(version); err != nil {
		result.add(rel, "version %q is not valid semver", version)
	}
}

// lintSkillDirs flags skill directories that lack a SKILL.md, which the
// glob pass cannot see.
func (l *Linter) lintSkillDirs(result *Result) {
	entries, err := os.ReadDir(filepath.Join(l.root, "skills"))
	if err != nil {
		return
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rel := path.Join("skills", entry.Name(), skillFile)
		if !l.included(rel) {
			continue
		}
		if _, err := os.Stat(filepath.Join(l.root, "skills", entry.Name(), skillFile)); errors.Is(err, fs.ErrNotExist) {
			result.add(path.Join("skills", entry.Name()), "missing %s", skillFile)
		}
	}
}

func (l *Linter) lintJSON(result *Result, name string, validate func([]byte) ([]Issue, error)) {
	if !l.included(name) {
		return
	}
	data, err := os.ReadFile(filepath.Join(l.root, name))
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			result.add(name, "failed to read file: %v", err)
		}
		return
	}
	result.Checked++
	issues, err := validate(data)
	if err != nil {
		result.add(name, "%v", err)
		return
	}
	for _, issue := range issues {
		result.add(name, "%s", issue.Message)
	}
}

func (l *Linter) included(rel string) bool {
	if len(l.includes) == 0 {
		return true
	}
	for _, pattern := range l.includes {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}
