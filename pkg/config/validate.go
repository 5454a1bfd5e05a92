package config

import (
	"fmt"
	"strings"

	"golang.org/x/mod/semver"
)

// Validate performs the semantic checks that the schema cannot express:
// duplicate step names and depends references to unknown steps. Cycles in
// depends are rejected later at plan time, where the job graph exists.
func (c *Config) Validate() error {
	for name, hook := range c.Hooks {
		seen := map[string]bool{}
		names := hook.StepNames()
		for _, n := range names {
			if seen[n] {
				return fmt.Errorf("hook %s: duplicate step name %q", name, n)
			}
			seen[n] = true
		}
		for _, n := range hook.Steps {
			steps := []*Step{}
			if n.Group != nil {
				steps = n.Group.Steps
			} else {
				steps = append(steps, n.Step)
			}
			for _, st := range steps {
				for _, dep := range st.Depends {
					if !seen[dep] {
						return fmt.Errorf("hook %s: step %q depends on unknown step %q", name, st.Name, dep)
					}
				}
				if err := validateStep(st); err != nil {
					return fmt.Errorf("hook %s: step %q: %w", name, st.Name, err)
				}
			}
		}
	}
	return nil
}

func validateStep(s *Step) error {
	if s.Check == "" && s.Fix == "" {
		return fmt.Errorf("defines neither check nor fix")
	}
	if s.CheckListFiles != "" && s.Check == "" {
		return fmt.Errorf("check_list_files requires check")
	}
	if s.CheckDiff != "" && s.Check == "" {
		return fmt.Errorf("check_diff requires check")
	}
	if s.Interactive && s.Stdin != "" {
		return fmt.Errorf("interactive steps cannot take a stdin payload")
	}
	return nil
}

// CheckMinVersion enforces min_hk_version against the running binary.
// Dev builds (non-semver version strings) always pass.
func (c *Config) CheckMinVersion(current string) error {
	if c.MinHkVersion == "" {
		return nil
	}
	want := canonicalVersion(c.MinHkVersion)
	have := canonicalVersion(current)
	if !semver.IsValid(want) {
		return fmt.Errorf("invalid min_hk_version %q", c.MinHkVersion)
	}
	if !semver.IsValid(have) {
		return nil
	}
	if semver.Compare(have, want) < 0 {
		return fmt.Errorf("hk %s is older than min_hk_version %s", current, c.MinHkVersion)
	}
	return nil
}

func canonicalVersion(v string) string {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
