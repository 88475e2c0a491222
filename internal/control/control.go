// Package control carries out operator actions on discovered instances and
// keeps the discovery cache honest afterwards.
package control

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/regdesk/regctl/internal/discovery"
	"github.com/regdesk/regctl/internal/logging"
	"github.com/regdesk/regctl/internal/process"
	"github.com/regdesk/regctl/internal/shift"
)

// Controller is the single owner of a discovery engine for one session.
type Controller struct {
	engine    *discovery.Engine
	refresher *shift.Refresher
	launch    func(exe, dir string, args ...string) (int, error)
	log       zerolog.Logger
}

// New returns a Controller driving engine.
func New(engine *discovery.Engine, refresher *shift.Refresher, log zerolog.Logger) *Controller {
	return &Controller{
		engine:    engine,
		refresher: refresher,
		launch:    process.Launch,
		log:       logging.Component(log, "control"),
	}
}

// Engine returns the discovery engine.
func (c *Controller) Engine() *discovery.Engine {
	return c.engine
}

// Invalidate forces the next listing to rediscover everything.
func (c *Controller) Invalidate() {
	c.engine.Invalidate()
}

// Instances resolves instances and marks which are running right now.
func (c *Controller) Instances(ctx context.Context, useCache bool) discovery.Result {
	res := c.engine.Resolve(ctx, useCache)
	c.engine.AnnotateRunning(res.Instances)
	return res
}

// Find resolves instances and returns the one matching query.
func (c *Controller) Find(ctx context.Context, query string) (discovery.Instance, error) {
	res := c.Instances(ctx, true)
	inst, err := res.Find(query)
	if err != nil {
		return inst, fmt.Errorf("%w: %s", err, query)
	}
	return inst, nil
}

// ManagerDir returns the manager installation directory.
func (c *Controller) ManagerDir() (string, error) {
	dir := c.engine.ManagerDir(true)
	if dir == "" {
		return "", discovery.ErrManagerNotFound
	}
	return dir, nil
}

// Launch starts the agent of inst from its own directory.
func (c *Controller) Launch(inst discovery.Instance) (int, error) {
	exe := c.engine.AgentExecutable(inst.Path)
	pid, err := c.launch(exe, inst.Path)
	if err != nil {
		return 0, fmt.Errorf("launching %s: %w", inst.Name, err)
	}
	c.log.Info().Str("instance", inst.Path).Int("pid", pid).Msg("agent launched")
	c.engine.Invalidate()
	return pid, nil
}

// LaunchManager starts the manager application.
func (c *Controller) LaunchManager() (int, error) {
	dir, err := c.ManagerDir()
	if err != nil {
		return 0, err
	}
	pid, err := c.launch(c.engine.ManagerExecutable(dir), dir)
	if err != nil {
		return 0, fmt.Errorf("launching manager: %w", err)
	}
	c.log.Info().Str("dir", dir).Int("pid", pid).Msg("manager launched")
	c.engine.Invalidate()
	return pid, nil
}

// Stop terminates every agent process running from inst. It returns how
// many were signalled.
func (c *Controller) Stop(inst discovery.Instance, force bool) (int, error) {
	n, err := c.each(inst, "stop", func(h *process.Handle) error { return h.Stop(force) })
	if n > 0 {
		c.engine.Invalidate()
	}
	return n, err
}

// Suspend pauses every agent process running from inst.
func (c *Controller) Suspend(inst discovery.Instance) (int, error) {
	return c.each(inst, "suspend", (*process.Handle).Suspend)
}

// Resume continues every agent process running from inst.
func (c *Controller) Resume(inst discovery.Instance) (int, error) {
	return c.each(inst, "resume", (*process.Handle).Resume)
}

func (c *Controller) each(inst discovery.Instance, action string, fn func(*process.Handle) error) (int, error) {
	handles := c.engine.AgentProcesses(inst.Path)
	if len(handles) == 0 {
		return 0, fmt.Errorf("%s: %w", inst.Name, process.ErrNotRunning)
	}
	var errs []error
	done := 0
	for _, h := range handles {
		if err := fn(h); err != nil {
			c.log.Warn().Err(err).Int32("pid", h.PID).Str("action", action).Msg("process control failed")
			errs = append(errs, fmt.Errorf("pid %d: %w", h.PID, err))
			continue
		}
		c.log.Info().Int32("pid", h.PID).Str("action", action).Str("instance", inst.Path).Msg("process controlled")
		done++
	}
	return done, errors.Join(errs...)
}

// RefreshShift asks the agent of inst to refresh its shift.
func (c *Controller) RefreshShift(ctx context.Context, inst discovery.Instance) (*shift.Result, error) {
	if c.refresher == nil {
		return nil, errors.New("shift refresh not configured")
	}
	return c.refresher.Refresh(ctx, inst.Path)
}
