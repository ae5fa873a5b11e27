// Package shared holds the context passed to all CLI commands.
package shared

import (
	"io"
	"log/slog"

	"github.com/go-ports/taskman/internal/backend"
	"github.com/go-ports/taskman/internal/config"
	"github.com/go-ports/taskman/internal/service"
)

// Context carries global CLI state (flags set on the root command) and the
// configuration loaded before any command runs.
type Context struct {
	// ConfigPath overrides the config file location.
	// When empty, resolution falls through to TASKMAN_CONFIG env → ~/.config/taskman/config.yaml.
	ConfigPath string
	// Dir is where repository discovery starts (default: working directory).
	Dir     string
	Verbose bool

	// JJ and Git replace the exec runners when set.
	JJ  backend.Runner
	Git backend.Runner

	cfg       *config.Config
	cfgPath   string
	cfgSource string
}

// Load resolves and reads the config file and installs the stderr logger.
func (c *Context) Load(stderr io.Writer) error {
	c.cfgPath, c.cfgSource = config.ResolvePath(c.ConfigPath)
	cfg, err := config.Load(c.cfgPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	level := slog.LevelWarn
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

// Config returns the loaded configuration, or the defaults before Load.
func (c *Context) Config() *config.Config {
	if c.cfg == nil {
		return config.Default()
	}
	return c.cfg
}

// ConfigFile reports the resolved config path and how it was chosen.
func (c *Context) ConfigFile() (path, source string) {
	if c.cfgPath == "" {
		return config.ResolvePath(c.ConfigPath)
	}
	return c.cfgPath, c.cfgSource
}

// Service returns a service bound to the loaded configuration.
func (c *Context) Service() *service.Service {
	cfg := c.Config()
	if c.JJ == nil && c.Git == nil {
		return service.New(cfg, c.Dir)
	}
	jjRunner, gitRunner := c.JJ, c.Git
	if jjRunner == nil {
		jjRunner = backend.NewExec(cfg.Backend.JJ, nil)
	}
	if gitRunner == nil {
		gitRunner = backend.NewExec(cfg.Backend.Git, nil)
	}
	return service.NewWithRunners(cfg, c.Dir, jjRunner, gitRunner)
}
