package pm

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// EnvVar is the environment override consulted first during resolution
const EnvVar = "TOOLBELT_PACKAGE_MANAGER"

// manifestFile is the project manifest consulted for the packageManager hint
const manifestFile = "package.json"

// Source identifies one step of the resolution precedence chain
type Source string

// The resolution sources in precedence order
const (
	SourceEnv      Source = "env"
	SourceProject  Source = "project"
	SourceManifest Source = "manifest"
	SourceLockfile Source = "lockfile"
	SourceGlobal   Source = "global"
	SourcePath     Source = "path"
)

// Resolver walks the resolution chain for a single project directory. It
// holds an environment snapshot taken at construction, so concurrent
// mutations of the process environment cannot change a resolution midway.
type Resolver struct {
	cwd       string
	env       map[string]string
	globalDir string
	lookPath  func(file string) (string, error)
}

// Option customizes a Resolver
type Option func(*Resolver)

// WithEnv replaces the environment snapshot the resolver consults
func WithEnv(env map[string]string) Option {
	return func(r *Resolver) {
		r.env = env
	}
}

// WithGlobalDir overrides the global config directory (default ~/.toolbelt)
func WithGlobalDir(dir string) Option {
	return func(r *Resolver) {
		r.globalDir = dir
	}
}

// WithLookPath replaces the executable lookup used by the PATH probe
func WithLookPath(fn func(file string) (string, error)) Option {
	return func(r *Resolver) {
		r.lookPath = fn
	}
}

// NewResolver creates a resolver for the project rooted at cwd. Without
// options it snapshots the process environment and probes the real PATH.
// When no home directory can be determined the global preference source
// reports unmatched instead of failing resolution.
func NewResolver(cwd string, opts ...Option) *Resolver {
	r := &Resolver{
		cwd:      cwd,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.env == nil {
		r.env = environMap(os.Environ())
	}
	if r.globalDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			r.globalDir = filepath.Join(home, ConfigDirName)
		}
	}
	return r
}

func environMap(environ []string) map[string]string {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			env[k] = v
		}
	}
	return env
}

// probeResult is what a single source probe reports. A probe that finds
// nothing usable leaves ok false; raw carries whatever value the source held
// so detection output can show why a source was skipped.
type probeResult struct {
	manager Manager
	ok      bool
	raw     string
	detail  string
}

type probe struct {
	source Source
	run    func(r *Resolver) probeResult
}

// probes holds the source probes in precedence order. Earlier sources shadow
// later ones; note the global preference ranks below project lock files.
var probes = []probe{
	{SourceEnv, (*Resolver).probeEnv},
	{SourceProject, (*Resolver).probeProjectConfig},
	{SourceManifest, (*Resolver).probeManifest},
	{SourceLockfile, (*Resolver).probeLockFiles},
	{SourceGlobal, (*Resolver).probeGlobalConfig},
	{SourcePath, (*Resolver).probePath},
}

// Resolve returns the winning manager, or ErrNoPackageManager when every
// source comes up empty. Sources holding malformed or unknown values are
// skipped rather than failing resolution.
func (r *Resolver) Resolve() (Manager, error) {
	for _, p := range probes {
		if res := p.run(r); res.ok {
			return res.manager, nil
		}
	}
	return "", ErrNoPackageManager
}

// SourceReport records the outcome of a single source probe
type SourceReport struct {
	Source  Source  `json:"source"`
	Matched bool    `json:"matched"`
	Manager Manager `json:"manager,omitempty"`
	Value   string  `json:"value,omitempty"`
	Detail  string  `json:"detail,omitempty"`
}

// Report is the diagnostic view of a full resolution pass
type Report struct {
	Sources       []SourceReport `json:"sources"`
	Winner        Manager        `json:"winner,omitempty"`
	WinningSource Source         `json:"winning_source,omitempty"`
}

// Resolved reports whether any source produced a manager
func (r *Report) Resolved() bool {
	return r.Winner != ""
}

// Detect runs every source probe without short-circuiting and reports what
// each one saw. The winner matches what Resolve would return. Detect never
// writes anything.
func (r *Resolver) Detect() *Report {
	report := &Report{}
	for _, p := range probes {
		res := p.run(r)
		sr := SourceReport{
			Source:  p.source,
			Matched: res.ok,
			Value:   res.raw,
			Detail:  res.detail,
		}
		if res.ok {
			sr.Manager = res.manager
			if report.Winner == "" {
				report.Winner = res.manager
				report.WinningSource = p.source
			}
		}
		report.Sources = append(report.Sources, sr)
	}
	return report
}

func (r *Resolver) probeEnv() probeResult {
	raw, exists := r.env[EnvVar]
	if !exists || strings.TrimSpace(raw) == "" {
		return probeResult{detail: EnvVar + " unset"}
	}
	res := probeResult{raw: raw, detail: EnvVar}
	m, err := Parse(raw)
	if err != nil {
		// Unknown names fall through to the next source instead of failing
		return res
	}
	res.manager = m
	res.ok = true
	return res
}

func (r *Resolver) probeProjectConfig() probeResult {
	return probePreferenceFile(filepath.Join(r.cwd, ConfigDirName, PreferenceFile))
}

func (r *Resolver) probeGlobalConfig() probeResult {
	if r.globalDir == "" {
		return probeResult{detail: "global config directory unavailable"}
	}
	return probePreferenceFile(filepath.Join(r.globalDir, PreferenceFile))
}

func probePreferenceFile(path string) probeResult {
	value, found := readPreferenceValue(path)
	if !found {
		return probeResult{detail: path}
	}
	res := probeResult{raw: value, detail: path}
	m, err := Parse(value)
	if err != nil {
		return res
	}
	res.manager = m
	res.ok = true
	return res
}

// manifestHint is the subset of package.json the resolver reads
type manifestHint struct {
	PackageManager string `json:"packageManager"`
}

func (r *Resolver) probeManifest() probeResult {
	path := filepath.Join(r.cwd, manifestFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return probeResult{detail: path}
	}
	var hint manifestHint
	if err := json.Unmarshal(data, &hint); err != nil {
		return probeResult{detail: path}
	}
	if hint.PackageManager == "" {
		return probeResult{detail: path}
	}
	res := probeResult{raw: hint.PackageManager, detail: path}
	name, version := splitManifestValue(hint.PackageManager)
	m, err := Parse(name)
	if err != nil {
		return res
	}
	if version != "" {
		res.detail = fmt.Sprintf("%s (%s)", path, describeVersion(version))
	}
	res.manager = m
	res.ok = true
	return res
}

// splitManifestValue splits a corepack-style "name@version" value. The
// version part only informs detection output; resolution keys on the name.
func splitManifestValue(v string) (name, version string) {
	if i := strings.Index(v, "@"); i > 0 {
		return v[:i], v[i+1:]
	}
	return v, ""
}

func describeVersion(version string) string {
	if _, err := semver.NewVersion(version); err == nil {
		return "version " + version
	}
	if _, err := semver.NewConstraint(version); err == nil {
		return "version range " + version
	}
	return "unparseable version " + version
}

func (r *Resolver) probeLockFiles() probeResult {
	for _, m := range Managers {
		path := filepath.Join(r.cwd, lockFiles[m])
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return probeResult{manager: m, ok: true, raw: lockFiles[m], detail: path}
		}
	}
	return probeResult{}
}

func (r *Resolver) probePath() probeResult {
	for _, m := range Managers {
		if path, err := r.lookPath(string(m)); err == nil {
			return probeResult{manager: m, ok: true, raw: string(m), detail: path}
		}
	}
	return probeResult{}
}
