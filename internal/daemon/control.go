package daemon

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// ErrNotRunning is returned when no live daemon owns the PID file.
var ErrNotRunning = errors.New("daemon not running")

// ReadPID returns the process id recorded in pidFile.
func ReadPID(pidFile string) (int, error) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed PID file %s", pidFile)
	}
	return pid, nil
}

// Running returns the pid of the daemon owning pidFile, or ErrNotRunning.
func Running(pidFile string) (int, error) {
	pid, err := ReadPID(pidFile)
	if err != nil {
		return 0, ErrNotRunning
	}
	if !processAlive(pid) {
		return 0, ErrNotRunning
	}
	return pid, nil
}

// Signal delivers sig to the daemon owning pidFile.
func Signal(pidFile string, sig syscall.Signal) error {
	pid, err := Running(pidFile)
	if err != nil {
		return err
	}
	if err := syscall.Kill(pid, sig); err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}
	return nil
}

// StopAndWait sends SIGTERM and waits for the process to exit.
func StopAndWait(pidFile string, timeout time.Duration) error {
	pid, err := Running(pidFile)
	if err != nil {
		return err
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal %d: %w", pid, err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !processAlive(pid) {
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return fmt.Errorf("daemon %d still running after %s", pid, timeout)
}

func processAlive(pid int) bool {
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// writePIDFile records the current process id, refusing to overwrite the
// file of another live daemon.
func writePIDFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	if pid, err := Running(pidFile); err == nil && pid != os.Getpid() {
		return fmt.Errorf("daemon already running with pid %d (%s)", pid, pidFile)
	}

	pid := os.Getpid()
	if err := os.WriteFile(pidFile, []byte(strconv.Itoa(pid)+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to write PID file %s: %w", pidFile, err)
	}
	slog.Debug("PID file written", "path", pidFile, "pid", pid)
	return nil
}

// removePIDFile removes the PID file.
func removePIDFile(pidFile string) error {
	if pidFile == "" {
		return nil
	}
	if err := os.Remove(pidFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove PID file %s: %w", pidFile, err)
	}
	slog.Debug("PID file removed", "path", pidFile)
	return nil
}
