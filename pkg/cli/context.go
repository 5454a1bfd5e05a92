// Package cli wires the cobra command tree to the engine. Each command
// builds the settings snapshot, opens the repository, and loads the
// project config through the shared app context.
package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hkdev/hk/pkg/config"
	"github.com/hkdev/hk/pkg/engine"
	"github.com/hkdev/hk/pkg/git"
	"github.com/hkdev/hk/pkg/logger"
	"github.com/hkdev/hk/pkg/settings"
)

var cliLog = logger.New("cli:context")

// Package-level version information, set by the build.
var version = "dev"

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v string) {
	version = v
}

// GetVersion returns the current version
func GetVersion() string {
	return version
}

// appContext is everything a command needs to run.
type appContext struct {
	Repo     *git.Repo
	Config   *config.Config
	Settings *settings.Settings
}

// loadContext assembles the app context: repository discovery, layered
// settings, and the project config.
func loadContext(ctx context.Context, g *globalFlags, cliLayer map[string]string) (*appContext, error) {
	repo, err := git.Open("", git.Options{})
	if err != nil {
		return nil, &engine.DiscoveryError{Err: err}
	}

	builder := settings.NewBuilder()

	userRC, err := config.LoadUserRC()
	if err != nil {
		return nil, &engine.ConfigError{Err: fmt.Errorf("user rc: %w", err)}
	}
	if userRC != nil {
		builder.Apply(settings.LayerUserRC, configLayer(userRC))
	}

	cfgPath, err := config.Find(repo.Root(), g.hkrc)
	if err != nil {
		if errors.Is(err, config.ErrNotFound) {
			return nil, &engine.DiscoveryError{Err: fmt.Errorf("no hk config found in %s (run 'hk init' to create one)", repo.Root())}
		}
		return nil, &engine.ConfigError{Err: err}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, &engine.ConfigError{Err: err}
	}
	if err := cfg.CheckMinVersion(version); err != nil {
		return nil, &engine.ConfigError{Err: err}
	}
	builder.Apply(settings.LayerProject, configLayer(cfg))

	if values, err := repo.ConfigValues(ctx, "--global"); err == nil {
		builder.Apply(settings.LayerGitGlobal, values)
	}
	if values, err := repo.ConfigValues(ctx, "--local"); err == nil {
		builder.Apply(settings.LayerGitLocal, values)
	}

	builder.Apply(settings.LayerEnv, settings.EnvLayer())
	builder.Apply(settings.LayerCLI, g.layer(cliLayer))

	snap := builder.Freeze()

	if snap.Libgit2 {
		if lib, err := git.Open("", git.Options{Library: true}); err == nil {
			repo = lib
		}
	}

	cliLog.Printf("context ready: repo=%s config=%s", repo.Root(), cfgPath)
	return &appContext{Repo: repo, Config: cfg, Settings: snap}, nil
}

// configLayer flattens a config file's settings-flavored fields into the
// key → value shape the settings builder consumes.
func configLayer(cfg *config.Config) map[string]string {
	values := map[string]string{}
	if len(cfg.Exclude) > 0 {
		values["exclude"] = strings.Join(cfg.Exclude, ",")
	}
	if cfg.Defaults.Jobs > 0 {
		values["jobs"] = strconv.Itoa(cfg.Defaults.Jobs)
	}
	if cfg.Defaults.FailFast != nil {
		values["fail_fast"] = strconv.FormatBool(*cfg.Defaults.FailFast)
	}
	if cfg.Defaults.Stash != "" {
		values["stash"] = cfg.Defaults.Stash
	}
	return values
}
