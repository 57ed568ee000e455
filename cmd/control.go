package cmd

import (
	"context"
	"fmt"
	"syscall"
	"time"

	"firestige.xyz/eapsniffer/internal/config"
	"firestige.xyz/eapsniffer/internal/daemon"
)

// Controller is the set of daemon operations the control commands need.
type Controller interface {
	Stop(ctx context.Context) error
	Reload(ctx context.Context) error
	Status(ctx context.Context) (int, error)
}

// pidController talks to the daemon through signals addressed via its PID file.
type pidController struct {
	pidFile string
	timeout time.Duration
}

func (c pidController) Stop(ctx context.Context) error {
	return daemon.StopAndWait(c.pidFile, c.timeout)
}

func (c pidController) Reload(ctx context.Context) error {
	return daemon.Signal(c.pidFile, syscall.SIGHUP)
}

func (c pidController) Status(ctx context.Context) (int, error) {
	return daemon.Running(c.pidFile)
}

// newController is replaced in tests.
var newController = func() (Controller, error) {
	path := pidFile
	if path == "" {
		cfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("cannot locate PID file: %w", err)
		}
		path = cfg.Control.PIDFile
	}
	return pidController{pidFile: path, timeout: 15 * time.Second}, nil
}
