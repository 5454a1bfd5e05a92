// Package settings builds the immutable, layered view of effective options.
// Layers apply lowest to highest: built-in defaults, user rc, project
// config, git config (global), git config (local), environment, CLI flags.
// List settings tagged as unioned combine across layers; everything else is
// strict override. The snapshot is captured once per invocation.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/hkdev/hk/pkg/logger"
	"github.com/hkdev/hk/pkg/sliceutil"
)

var settingsLog = logger.New("settings:snapshot")

// Layer identifies where a value came from, in precedence order.
type Layer int

const (
	LayerDefaults Layer = iota
	LayerUserRC
	LayerProject
	LayerGitGlobal
	LayerGitLocal
	LayerEnv
	LayerCLI
)

func (l Layer) String() string {
	switch l {
	case LayerDefaults:
		return "defaults"
	case LayerUserRC:
		return "user rc"
	case LayerProject:
		return "project config"
	case LayerGitGlobal:
		return "git config (global)"
	case LayerGitLocal:
		return "git config (local)"
	case LayerEnv:
		return "environment"
	default:
		return "cli"
	}
}

// unionKeys are the list settings that combine across layers instead of
// overriding.
var unionKeys = map[string]bool{
	"exclude":       true,
	"skip_steps":    true,
	"skip_hooks":    true,
	"hide_warnings": true,
}

// Source records one layer's contribution to a key.
type Source struct {
	Layer Layer  `json:"layer"`
	Value string `json:"value"`
}

// Settings is the effective snapshot. Shared immutably after Freeze.
type Settings struct {
	Jobs               int
	Profiles           []string
	DisabledProfiles   []string
	FailFast           bool
	Exclude            []string
	ExcludeGlob        []string
	Stash              string
	StashUntracked     bool
	Libgit2            bool
	SkipSteps          []string
	SkipHooks          []string
	HideWarnings       []string
	StateDir           string
	CacheDir           string
	TimingJSON         string
	Mise               bool
	SummaryText        bool
	TerminalProgress   bool
	Trace              string
	JSON               bool
	DisplaySkipReasons bool
	Slow               bool
	Verbose            int
	Quiet              bool
	Silent             bool

	sources map[string][]Source
}

// Builder accumulates layers before freezing the snapshot.
type Builder struct {
	s *Settings
}

// NewBuilder starts from built-in defaults.
func NewBuilder() *Builder {
	home, _ := os.UserHomeDir()
	stateDir := filepath.Join(home, ".local", "state", "hk")
	cacheDir := filepath.Join(home, ".cache", "hk")
	if d, err := os.UserCacheDir(); err == nil {
		cacheDir = filepath.Join(d, "hk")
	}

	s := &Settings{
		Jobs:               0, // 0 means logical CPU count
		FailFast:           true,
		Stash:              "auto",
		StateDir:           stateDir,
		CacheDir:           cacheDir,
		DisplaySkipReasons: true,
		sources:            map[string][]Source{},
	}
	b := &Builder{s: s}
	b.record("jobs", LayerDefaults, "0")
	b.record("fail_fast", LayerDefaults, "true")
	b.record("stash", LayerDefaults, "auto")
	b.record("state_dir", LayerDefaults, stateDir)
	b.record("cache_dir", LayerDefaults, cacheDir)
	return b
}

func (b *Builder) record(key string, layer Layer, value string) {
	b.s.sources[key] = append(b.s.sources[key], Source{Layer: layer, Value: value})
}

// Apply merges one layer given as a flat key → string-value map. Git config
// and the environment naturally produce this shape; the config layers are
// flattened into it by the callers.
func (b *Builder) Apply(layer Layer, values map[string]string) {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		b.set(layer, key, values[key])
	}
}

func (b *Builder) set(layer Layer, key, value string) {
	b.record(key, layer, value)
	s := b.s
	switch key {
	case "jobs":
		if n, err := strconv.Atoi(value); err == nil && n >= 0 {
			s.Jobs = n
		}
	case "profile", "profiles":
		for _, p := range splitList(value) {
			if strings.HasPrefix(p, "!") {
				s.DisabledProfiles = append(s.DisabledProfiles, strings.TrimPrefix(p, "!"))
			} else {
				s.Profiles = append(s.Profiles, p)
			}
		}
	case "fail_fast":
		s.FailFast = parseBool(value, s.FailFast)
	case "exclude":
		s.Exclude = sliceutil.UnionOrdered(s.Exclude, splitList(value))
	case "exclude_glob":
		s.ExcludeGlob = sliceutil.UnionOrdered(s.ExcludeGlob, splitList(value))
	case "stash":
		if isStashMethod(value) {
			s.Stash = value
		}
	case "stash_untracked":
		s.StashUntracked = parseBool(value, s.StashUntracked)
	case "libgit2":
		s.Libgit2 = parseBool(value, s.Libgit2)
	case "skip_steps":
		s.SkipSteps = sliceutil.UnionOrdered(s.SkipSteps, splitList(value))
	case "skip_hooks":
		s.SkipHooks = sliceutil.UnionOrdered(s.SkipHooks, splitList(value))
	case "hide_warnings":
		s.HideWarnings = sliceutil.UnionOrdered(s.HideWarnings, splitList(value))
	case "state_dir":
		s.StateDir = value
	case "cache_dir":
		s.CacheDir = value
	case "timing_json":
		s.TimingJSON = value
	case "mise":
		s.Mise = parseBool(value, s.Mise)
	case "summary_text":
		s.SummaryText = parseBool(value, s.SummaryText)
	case "terminal_progress":
		s.TerminalProgress = parseBool(value, s.TerminalProgress)
	case "trace":
		s.Trace = value
	case "json":
		s.JSON = parseBool(value, s.JSON)
	case "display_skip_reasons":
		s.DisplaySkipReasons = parseBool(value, s.DisplaySkipReasons)
	case "slow":
		s.Slow = parseBool(value, s.Slow)
	default:
		settingsLog.Printf("ignoring unknown setting %q from %s", key, layer)
	}
}

// Freeze returns the immutable snapshot.
func (b *Builder) Freeze() *Settings {
	return b.s
}

// Sources returns every layer that contributed to key, lowest first. The
// last entry for a non-union key is the winner.
func (s *Settings) Sources(key string) []Source {
	return s.sources[key]
}

// SourceKeys returns all keys any layer touched, sorted.
func (s *Settings) SourceKeys() []string {
	keys := make([]string, 0, len(s.sources))
	for k := range s.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsUnionKey reports whether key combines across layers.
func IsUnionKey(key string) bool {
	return unionKeys[key]
}

// EffectiveJobs resolves the concurrency bound: 0 means logical CPU count.
func (s *Settings) EffectiveJobs() int {
	if s.Jobs > 0 {
		return s.Jobs
	}
	return runtime.NumCPU()
}

// ProfileEnabled applies enable/disable lists: explicit disable wins.
func (s *Settings) ProfileEnabled(profile string) bool {
	if sliceutil.Contains(s.DisabledProfiles, profile) {
		return false
	}
	return sliceutil.Contains(s.Profiles, profile)
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBool(value string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func isStashMethod(value string) bool {
	switch value {
	case "auto", "git", "patch-file", "none":
		return true
	}
	return false
}

// Describe returns a human-readable one-line rendering of a key's effective
// value, for `hk config get`.
func (s *Settings) Describe(key string) (string, error) {
	switch key {
	case "jobs":
		return strconv.Itoa(s.EffectiveJobs()), nil
	case "profile", "profiles":
		return strings.Join(s.Profiles, ","), nil
	case "fail_fast":
		return strconv.FormatBool(s.FailFast), nil
	case "exclude":
		return strings.Join(s.Exclude, ","), nil
	case "exclude_glob":
		return strings.Join(s.ExcludeGlob, ","), nil
	case "stash":
		return s.Stash, nil
	case "stash_untracked":
		return strconv.FormatBool(s.StashUntracked), nil
	case "libgit2":
		return strconv.FormatBool(s.Libgit2), nil
	case "skip_steps":
		return strings.Join(s.SkipSteps, ","), nil
	case "skip_hooks":
		return strings.Join(s.SkipHooks, ","), nil
	case "hide_warnings":
		return strings.Join(s.HideWarnings, ","), nil
	case "state_dir":
		return s.StateDir, nil
	case "cache_dir":
		return s.CacheDir, nil
	case "timing_json":
		return s.TimingJSON, nil
	case "mise":
		return strconv.FormatBool(s.Mise), nil
	case "summary_text":
		return strconv.FormatBool(s.SummaryText), nil
	case "terminal_progress":
		return strconv.FormatBool(s.TerminalProgress), nil
	case "trace":
		return s.Trace, nil
	case "json":
		return strconv.FormatBool(s.JSON), nil
	case "display_skip_reasons":
		return strconv.FormatBool(s.DisplaySkipReasons), nil
	default:
		return "", fmt.Errorf("unknown setting %q", key)
	}
}
