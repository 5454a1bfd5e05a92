// Package constants centralizes names shared across the CLI: the binary
// prefix used in user-facing output, environment variable names, exit codes,
// and well-known file names.
package constants

// CLIPrefix is the prefix used in user-facing output to refer to the CLI
const CLIPrefix = "hk"

// Config file names probed at the repository root, in order.
var ConfigFileNames = []string{"hk.yaml", "hk.yml", "hk.json", "hk.toml"}

// UserConfigPath is the user rc location relative to the user config dir.
const UserConfigPath = "hk/config.yaml"

// Exit codes. Precedence when several apply: configuration > cancellation >
// execution > stash.
const (
	ExitOK        = 0
	ExitExecution = 1
	ExitConfig    = 2
	ExitCancelled = 3
	ExitStash     = 4
)

// Environment variables recognized by hk. Every configurable key has an
// HK_* mirror; HK=0 disables installed hook scripts entirely.
const (
	EnvDisable        = "HK"
	EnvFile           = "HK_FILE"
	EnvJobs           = "HK_JOBS"
	EnvProfile        = "HK_PROFILE"
	EnvFailFast       = "HK_FAIL_FAST"
	EnvCheck          = "HK_CHECK"
	EnvFix            = "HK_FIX"
	EnvExclude        = "HK_EXCLUDE"
	EnvExcludeGlob    = "HK_EXCLUDE_GLOB"
	EnvStash          = "HK_STASH"
	EnvStashUntracked = "HK_STASH_UNTRACKED"
	EnvLibgit2        = "HK_LIBGIT2"
	EnvLog            = "HK_LOG"
	EnvLogLevel       = "HK_LOG_LEVEL"
	EnvLogFile        = "HK_LOG_FILE"
	EnvLogFileLevel   = "HK_LOG_FILE_LEVEL"
	EnvTimingJSON     = "HK_TIMING_JSON"
	EnvStateDir       = "HK_STATE_DIR"
	EnvCacheDir       = "HK_CACHE_DIR"
	EnvMise           = "HK_MISE"
	EnvSkipSteps      = "HK_SKIP_STEPS"
	EnvSkipHooks      = "HK_SKIP_HOOK"
	EnvHideWarnings   = "HK_HIDE_WARNINGS"
	EnvSummaryText    = "HK_SUMMARY_TEXT"
	EnvProgress       = "HK_TERMINAL_PROGRESS"
	EnvTrace          = "HK_TRACE"
	EnvJSON           = "HK_JSON"
	EnvReportJSON     = "HK_REPORT_JSON"
)

// JobFilesToken in a step's stage pattern restricts re-staging to exactly
// the files the job processed.
const JobFilesToken = "<JOB_FILES>"

// DefaultStashBackups caps the patch-file backup ring kept in the state dir.
const DefaultStashBackups = 5
