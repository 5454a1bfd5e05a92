// Package tmpl expands the {{...}} placeholders available to step commands,
// env values, and stdin payloads, and evaluates step conditions over the
// same context. Expansion is pure: the same context and input always yield
// the same bytes. Only the documented fields are exposed.
package tmpl

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/hkdev/hk/pkg/git"
)

// Context carries the values visible to templates for one job.
type Context struct {
	Files              []string
	Workspace          string
	WorkspaceIndicator string
	WorkspaceFiles     []string
	Git                *git.Snapshot
}

var placeholderRe = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_.]*)\s*\}\}`)

// Expand substitutes every placeholder in s. Unknown fields are an error so
// typos fail loudly instead of running a mangled command.
func (c *Context) Expand(s string) (string, error) {
	var expandErr error
	out := placeholderRe.ReplaceAllStringFunc(s, func(match string) string {
		name := strings.TrimSpace(match[2 : len(match)-2])
		value, err := c.resolve(name)
		if err != nil && expandErr == nil {
			expandErr = err
		}
		return value
	})
	if expandErr != nil {
		return "", expandErr
	}
	return out, nil
}

// ExpandEnv expands every value of an env map, leaving keys untouched.
func (c *Context) ExpandEnv(env map[string]string) (map[string]string, error) {
	if len(env) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		expanded, err := c.Expand(v)
		if err != nil {
			return nil, fmt.Errorf("env %s: %w", k, err)
		}
		out[k] = expanded
	}
	return out, nil
}

func (c *Context) resolve(name string) (string, error) {
	switch name {
	case "files":
		return joinFiles(c.Files), nil
	case "workspace":
		return ShellQuote(c.Workspace), nil
	case "workspace_indicator":
		return ShellQuote(c.WorkspaceIndicator), nil
	case "workspace_files":
		return joinFiles(c.WorkspaceFiles), nil
	}
	if field, ok := strings.CutPrefix(name, "git."); ok {
		if c.Git == nil {
			return "", fmt.Errorf("template field git.%s used outside a repository context", field)
		}
		value, ok := c.Git.Field(field)
		if !ok {
			return "", fmt.Errorf("unknown template field git.%s", field)
		}
		switch v := value.(type) {
		case string:
			return ShellQuote(v), nil
		case []string:
			return joinFiles(v), nil
		default:
			return fmt.Sprint(v), nil
		}
	}
	return "", fmt.Errorf("unknown template field %s", name)
}

func joinFiles(files []string) string {
	quoted := make([]string, len(files))
	for i, f := range files {
		quoted[i] = ShellQuote(f)
	}
	return strings.Join(quoted, " ")
}

var safeShellRe = regexp.MustCompile(`^[A-Za-z0-9_./:=@%+,-]+$`)

// ShellQuote quotes a value for POSIX sh. Plain paths pass through
// unquoted so commands stay readable in logs.
func ShellQuote(s string) string {
	if s == "" {
		return "''"
	}
	if safeShellRe.MatchString(s) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
