package tmpl

import (
	"fmt"

	"github.com/expr-lang/expr"
)

// EvalCondition evaluates a step's condition expression over the template
// context. The expression sees the same documented fields as placeholders:
// files, workspace, workspace_indicator, workspace_files, and the git
// object. It must evaluate to a boolean.
func (c *Context) EvalCondition(condition string) (bool, error) {
	env := map[string]any{
		"files":               c.Files,
		"workspace":           c.Workspace,
		"workspace_indicator": c.WorkspaceIndicator,
		"workspace_files":     c.WorkspaceFiles,
		"git":                 c.gitEnv(),
	}

	program, err := expr.Compile(condition, expr.Env(env), expr.AsBool())
	if err != nil {
		return false, fmt.Errorf("compile condition %q: %w", condition, err)
	}
	result, err := expr.Run(program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate condition %q: %w", condition, err)
	}
	ok, isBool := result.(bool)
	if !isBool {
		return false, fmt.Errorf("condition %q did not produce a boolean", condition)
	}
	return ok, nil
}

func (c *Context) gitEnv() map[string]any {
	env := map[string]any{}
	for _, field := range []string{
		"branch", "sha", "staged", "unstaged", "untracked", "modified",
		"staged_added", "staged_modified", "staged_deleted",
		"staged_renamed", "staged_copied",
		"unstaged_modified", "unstaged_deleted",
	} {
		if c.Git != nil {
			value, _ := c.Git.Field(field)
			env[field] = value
			continue
		}
		// keep the key present so conditions compile outside a repo
		switch field {
		case "branch", "sha":
			env[field] = ""
		default:
			env[field] = []string{}
		}
	}
	return env
}
