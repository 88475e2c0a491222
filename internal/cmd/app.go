package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/regdesk/regctl/internal/agentdb"
	"github.com/regdesk/regctl/internal/config"
	"github.com/regdesk/regctl/internal/control"
	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/logging"
	"github.com/regdesk/regctl/internal/process"
	"github.com/regdesk/regctl/internal/scan"
	"github.com/regdesk/regctl/internal/shift"
	"github.com/regdesk/regctl/internal/ui"
	"github.com/regdesk/regctl/internal/version"
)

// app is everything one regctl invocation works with.
type app struct {
	cfg      *config.Config
	cfgPath  string
	stateDir string
	log      *logging.Logger
	ctl      *control.Controller
}

// current is set by setup for the running command.
var current *app

func setup(cmd *cobra.Command, _ []string) error {
	if setupExemptCommands[cmd.Name()] {
		return nil
	}
	ui.ApplyColorProfile()

	a, err := newApp(cfgFile, debugLog)
	if err != nil {
		return err
	}
	current = a
	a.log.Debug().
		Str("command", buildCommandPath(cmd)).
		Str("config", a.cfgPath).
		Str("version", version.Version).
		Msg("starting")
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if current != nil {
		_ = current.log.Close()
		current = nil
	}
}

// newApp loads configuration and wires discovery.
func newApp(explicitConfig string, debug bool) (*app, error) {
	stateDir, err := config.StateDir()
	if err != nil {
		return nil, err
	}
	cfgPath, err := config.Path(explicitConfig)
	if err != nil {
		return nil, err
	}
	explicit := explicitConfig != "" || os.Getenv(config.EnvConfig) != ""
	cfg, err := config.Load(cfgPath, explicit)
	if err != nil {
		return nil, err
	}

	logFile := cfg.LogFile
	if logFile == "" {
		logFile = filepath.Join(stateDir, "regctl.log")
	}
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Debug: debug, File: logFile})
	if err != nil {
		return nil, err
	}

	driveRoots := cfg.DriveRoots
	if len(driveRoots) == 0 {
		driveRoots = scan.DriveRoots()
	}

	reader := agentdb.NewReader(agentdb.Options{
		File:         cfg.DatabaseFile,
		LockWait:     cfg.LockWait.Std(),
		Attempts:     cfg.LockRetries,
		RetryDelay:   cfg.RetryDelay.Std(),
		ReleaseDelay: cfg.ReleaseDelay.Std(),
	}, log.Logger)

	engine := discovery.NewEngine(discovery.Config{
		ManagerProcess: cfg.ManagerProcess,
		AgentProcess:   cfg.AgentProcess,
		ManifestFile:   cfg.ManifestFile,
		DatabaseFile:   cfg.DatabaseFile,
		VersionFile:    cfg.VersionFile,
		ManagerDir:     cfg.ManagerDir,
		CommonRoots:    cfg.CommonRoots,
		ManagerDepth:   cfg.ManagerDepth,
		DriveRoots:     driveRoots,
		DriveDepth:     cfg.DriveDepth,
		InstanceDepth:  cfg.InstanceDepth,
		Excluded:       cfg.Excluded,
	},
		discovery.NewCache(),
		process.NewLocator(log.Logger),
		scan.New(cfg.Excluded, log.Logger),
		reader,
		log.Logger,
	)

	refresher := shift.NewRefresher(cfg.InstanceConfigFile, cfg.RefreshPath, cfg.HTTPTimeout.Std(), log.Logger)

	return &app{
		cfg:      cfg,
		cfgPath:  cfgPath,
		stateDir: stateDir,
		log:      log,
		ctl:      control.New(engine, refresher, log.Logger),
	}, nil
}

// findInstance resolves the instance named by query.
func (a *app) findInstance(ctx context.Context, query string) (discovery.Instance, error) {
	if noCache {
		a.ctl.Invalidate()
	}
	inst, err := a.ctl.Find(ctx, query)
	if err != nil {
		return inst, err
	}
	a.log.Debug().Str("query", query).Str("instance", inst.Path).Msg("instance selected")
	return inst, nil
}

func requireApp() (*app, error) {
	if current == nil {
		return nil, fmt.Errorf("regctl not initialized")
	}
	return current, nil
}
