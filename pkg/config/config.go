// Package config defines the hk configuration tree and its loaders. The
// parsed tree is immutable after load: hooks hold ordered collections of
// steps and groups, and every list-ish field is normalized at decode time.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/goccy/go-yaml"
)

// Config is the root of the parsed configuration.
type Config struct {
	MinHkVersion  string            `yaml:"min_hk_version" json:"min_hk_version,omitempty"`
	DefaultBranch string            `yaml:"default_branch" json:"default_branch,omitempty"`
	Env           map[string]string `yaml:"env" json:"env,omitempty"`
	Exclude       StringList        `yaml:"exclude" json:"exclude,omitempty"`
	Defaults      Defaults          `yaml:"defaults" json:"defaults,omitempty"`
	Hooks         map[string]*Hook  `yaml:"hooks" json:"hooks,omitempty"`

	// Path is the config file this tree was loaded from.
	Path string `yaml:"-" json:"-"`
}

// Defaults carries config-level defaults applied to every hook run unless a
// higher settings layer overrides them.
type Defaults struct {
	Jobs     int    `yaml:"jobs" json:"jobs,omitempty"`
	FailFast *bool  `yaml:"fail_fast" json:"fail_fast,omitempty"`
	Stash    string `yaml:"stash" json:"stash,omitempty"`
}

// Hook is a named, ordered collection of steps and groups.
type Hook struct {
	Name  string `yaml:"-" json:"name"`
	Fix   bool   `yaml:"fix" json:"fix,omitempty"`
	Stash string `yaml:"stash" json:"stash,omitempty"`
	Stage *bool  `yaml:"stage" json:"stage,omitempty"`
	Steps Steps  `yaml:"steps" json:"steps"`
}

// Node is the Step|Group tagged variant. Exactly one field is non-nil.
type Node struct {
	Step  *Step
	Group *Group
}

// Name returns the declared name of the underlying step or group.
func (n Node) Name() string {
	if n.Group != nil {
		return n.Group.Name
	}
	return n.Step.Name
}

// MarshalJSON renders the node as its underlying step or group.
func (n Node) MarshalJSON() ([]byte, error) {
	if n.Group != nil {
		return json.Marshal(map[string]any{"name": n.Group.Name, "steps": n.Group.Steps})
	}
	return json.Marshal(n.Step)
}

// MarshalYAML renders the node for `hk config dump`.
func (n Node) MarshalYAML() (any, error) {
	type namedStep struct {
		Name string `yaml:"name"`
		Step `yaml:",inline"`
	}
	if n.Group != nil {
		members := make([]namedStep, 0, len(n.Group.Steps))
		for _, st := range n.Group.Steps {
			members = append(members, namedStep{Name: st.Name, Step: *st})
		}
		return map[string]any{"name": n.Group.Name, "steps": members}, nil
	}
	return namedStep{Name: n.Step.Name, Step: *n.Step}, nil
}

// Group fences its member steps: everything before the group finishes before
// any member starts, and all members finish before anything after starts.
type Group struct {
	Name  string
	Steps []*Step
}

// Step declares a single linter or formatter.
type Step struct {
	Name               string            `yaml:"-" json:"name"`
	Glob               StringList        `yaml:"glob" json:"glob,omitempty"`
	Exclude            StringList        `yaml:"exclude" json:"exclude,omitempty"`
	Types              StringList        `yaml:"types" json:"types,omitempty"`
	Stage              StringList        `yaml:"stage" json:"stage,omitempty"`
	Check              string            `yaml:"check" json:"check,omitempty"`
	Fix                string            `yaml:"fix" json:"fix,omitempty"`
	CheckListFiles     string            `yaml:"check_list_files" json:"check_list_files,omitempty"`
	CheckDiff          string            `yaml:"check_diff" json:"check_diff,omitempty"`
	Depends            StringList        `yaml:"depends" json:"depends,omitempty"`
	Profiles           StringList        `yaml:"profiles" json:"profiles,omitempty"`
	WorkspaceIndicator string            `yaml:"workspace_indicator" json:"workspace_indicator,omitempty"`
	Prefix             string            `yaml:"prefix" json:"prefix,omitempty"`
	Dir                string            `yaml:"dir" json:"dir,omitempty"`
	Shell              string            `yaml:"shell" json:"shell,omitempty"`
	Env                map[string]string `yaml:"env" json:"env,omitempty"`
	Batch              bool              `yaml:"batch" json:"batch,omitempty"`
	Stomp              bool              `yaml:"stomp" json:"stomp,omitempty"`
	CheckFirst         *bool             `yaml:"check_first" json:"check_first,omitempty"`
	Exclusive          bool              `yaml:"exclusive" json:"exclusive,omitempty"`
	Interactive        bool              `yaml:"interactive" json:"interactive,omitempty"`
	Condition          string            `yaml:"condition" json:"condition,omitempty"`
	Hide               bool              `yaml:"hide" json:"hide,omitempty"`
	OutputSummary      string            `yaml:"output_summary" json:"output_summary,omitempty"`
	Stdin              string            `yaml:"stdin" json:"stdin,omitempty"`
}

// CheckFirstEnabled reports whether the check-before-fix probe applies.
// It defaults to true when both command variants exist.
func (s *Step) CheckFirstEnabled() bool {
	if s.CheckFirst != nil {
		return *s.CheckFirst
	}
	return true
}

// StringList accepts either a scalar string or a sequence of strings.
type StringList []string

// UnmarshalYAML implements yaml.BytesUnmarshaler.
func (l *StringList) UnmarshalYAML(b []byte) error {
	var single string
	if err := yaml.Unmarshal(b, &single); err == nil {
		*l = StringList{single}
		return nil
	}
	var many []string
	if err := yaml.Unmarshal(b, &many); err != nil {
		return fmt.Errorf("expected string or list of strings: %w", err)
	}
	*l = StringList(many)
	return nil
}

// Steps is the ordered collection of nodes under a hook. In YAML and JSON it
// is written as a mapping from name to definition (declaration order is
// preserved); a sequence of objects carrying a "name" key is also accepted,
// which is the only ordered form TOML can express.
type Steps []Node

// UnmarshalYAML implements yaml.BytesUnmarshaler.
func (s *Steps) UnmarshalYAML(b []byte) error {
	var ms yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(b, &ms, yaml.UseOrderedMap()); err == nil {
		return s.fromMapSlice(ms)
	}

	var seq []yaml.MapSlice
	if err := yaml.UnmarshalWithOptions(b, &seq, yaml.UseOrderedMap()); err != nil {
		return fmt.Errorf("steps must be a mapping or a sequence: %w", err)
	}
	for _, item := range seq {
		name := ""
		rest := yaml.MapSlice{}
		for _, kv := range item {
			if key, ok := kv.Key.(string); ok && key == "name" {
				name, _ = kv.Value.(string)
				continue
			}
			rest = append(rest, kv)
		}
		if name == "" {
			return fmt.Errorf("sequence-form steps require a name key")
		}
		node, err := decodeNode(name, rest)
		if err != nil {
			return err
		}
		*s = append(*s, node)
	}
	return nil
}

func (s *Steps) fromMapSlice(ms yaml.MapSlice) error {
	for _, kv := range ms {
		name, ok := kv.Key.(string)
		if !ok {
			return fmt.Errorf("step names must be strings, got %T", kv.Key)
		}
		body, ok := kv.Value.(yaml.MapSlice)
		if !ok && kv.Value != nil {
			return fmt.Errorf("step %q: expected a mapping", name)
		}
		node, err := decodeNode(name, body)
		if err != nil {
			return err
		}
		*s = append(*s, node)
	}
	return nil
}

// decodeNode builds a Step or, when the body itself holds a "steps" mapping,
// a Group of steps.
func decodeNode(name string, body yaml.MapSlice) (Node, error) {
	for _, kv := range body {
		if key, ok := kv.Key.(string); ok && key == "steps" {
			inner, err := yaml.Marshal(kv.Value)
			if err != nil {
				return Node{}, fmt.Errorf("group %q: %w", name, err)
			}
			var members Steps
			if err := members.UnmarshalYAML(inner); err != nil {
				return Node{}, fmt.Errorf("group %q: %w", name, err)
			}
			group := &Group{Name: name}
			for _, m := range members {
				if m.Group != nil {
					return Node{}, fmt.Errorf("group %q: nested groups are not supported", name)
				}
				group.Steps = append(group.Steps, m.Step)
			}
			return Node{Group: group}, nil
		}
	}

	raw, err := yaml.Marshal(body)
	if err != nil {
		return Node{}, fmt.Errorf("step %q: %w", name, err)
	}
	step := &Step{}
	if len(body) > 0 {
		if err := yaml.Unmarshal(raw, step); err != nil {
			return Node{}, fmt.Errorf("step %q: %w", name, err)
		}
	}
	step.Name = name
	return Node{Step: step}, nil
}

// StepNames returns the names of all steps in declaration order, flattening
// groups.
func (h *Hook) StepNames() []string {
	var names []string
	for _, n := range h.Steps {
		if n.Group != nil {
			for _, st := range n.Group.Steps {
				names = append(names, st.Name)
			}
			continue
		}
		names = append(names, n.Step.Name)
	}
	return names
}

// FindStep returns the step with the given name, searching groups too.
func (h *Hook) FindStep(name string) *Step {
	for _, n := range h.Steps {
		if n.Group != nil {
			for _, st := range n.Group.Steps {
				if st.Name == name {
					return st
				}
			}
			continue
		}
		if n.Step.Name == name {
			return n.Step
		}
	}
	return nil
}
