package settings

import (
	"os"
	"strings"
)

// envKeyMap maps HK_* environment variables to setting keys.
var envKeyMap = map[string]string{
	"HK_JOBS":                 "jobs",
	"HK_PROFILE":              "profile",
	"HK_PROFILES":             "profile",
	"HK_FAIL_FAST":            "fail_fast",
	"HK_EXCLUDE":              "exclude",
	"HK_EXCLUDE_GLOB":         "exclude_glob",
	"HK_STASH":                "stash",
	"HK_STASH_UNTRACKED":      "stash_untracked",
	"HK_LIBGIT2":              "libgit2",
	"HK_SKIP_STEPS":           "skip_steps",
	"HK_SKIP_HOOK":            "skip_hooks",
	"HK_HIDE_WARNINGS":        "hide_warnings",
	"HK_STATE_DIR":            "state_dir",
	"HK_CACHE_DIR":            "cache_dir",
	"HK_TIMING_JSON":          "timing_json",
	"HK_MISE":                 "mise",
	"HK_SUMMARY_TEXT":         "summary_text",
	"HK_TERMINAL_PROGRESS":    "terminal_progress",
	"HK_TRACE":                "trace",
	"HK_JSON":                 "json",
	"HK_DISPLAY_SKIP_REASONS": "display_skip_reasons",
	"HK_SLOW":                 "slow",
}

// EnvLayer extracts the HK_* settings from the process environment.
func EnvLayer() map[string]string {
	return envLayerFrom(os.Environ())
}

func envLayerFrom(environ []string) map[string]string {
	values := map[string]string{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if key, known := envKeyMap[name]; known {
			values[key] = value
		}
	}
	return values
}
