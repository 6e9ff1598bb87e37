// Package supervisor is the seller runtime's process lifecycle owner: it
// declares the AgentInfo interface cmd/acp-seller uses to resolve the
// seller's own wallet address, writes and cleans up a PID file, and runs
// the socket listener and poll reconciler concurrently until the context
// is canceled (cmd/acp-seller cancels it on SIGINT/SIGTERM).
//
// Built around the standard signal.NotifyContext + <-ctx.Done() shutdown
// idiom, generalized into a reusable type since this runtime starts two
// long-running loops instead of one server.
package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"syscall"
)

// AgentInfo resolves this process's own wallet address from the protocol
// backend (the seller's identity is typically provisioned out of band, not
// hardcoded into configuration).
type AgentInfo interface {
	ResolveWalletAddress(ctx context.Context) (string, error)
}

// Runnable is a long-running loop that returns when ctx is canceled.
type Runnable func(ctx context.Context)

// Supervisor owns the PID file and runs a fixed set of background loops
// until the process receives a shutdown signal.
type Supervisor struct {
	PIDPath string
	Logger  *slog.Logger
}

// New builds a Supervisor.
func New(pidPath string, logger *slog.Logger) *Supervisor {
	return &Supervisor{PIDPath: pidPath, Logger: logger.With("component", "supervisor")}
}

// WritePID writes the current process id to PIDPath, refusing to overwrite
// a PID file left behind by a still-running process.
func (s *Supervisor) WritePID() error {
	if s.PIDPath == "" {
		return nil
	}
	if running, pid := s.otherInstanceRunning(); running {
		return fmt.Errorf("another instance appears to be running (pid %d, pidfile %s)", pid, s.PIDPath)
	}
	if err := os.MkdirAll(filepath.Dir(s.PIDPath), 0o755); err != nil {
		return fmt.Errorf("create pid file directory: %w", err)
	}
	return os.WriteFile(s.PIDPath, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

// RemovePID deletes the PID file. Safe to call even if WritePID was never
// called or the file is already gone.
func (s *Supervisor) RemovePID() {
	if s.PIDPath == "" {
		return
	}
	if err := os.Remove(s.PIDPath); err != nil && !os.IsNotExist(err) {
		s.Logger.Warn("pidfile_remove_failed", "err", err)
	}
}

func (s *Supervisor) otherInstanceRunning() (bool, int) {
	data, err := os.ReadFile(s.PIDPath)
	if err != nil {
		return false, 0
	}
	pid, err := strconv.Atoi(string(data))
	if err != nil {
		return false, 0
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false, 0
	}
	// On Unix, FindProcess always succeeds; the zero signal is the
	// standard way to probe liveness without actually signaling the
	// process.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		return false, 0
	}
	return true, pid
}

// Run starts every loop concurrently and blocks until ctx is canceled
// (typically by signal.NotifyContext upstream), then waits for all loops
// to observe the cancellation and return.
func (s *Supervisor) Run(ctx context.Context, loops ...Runnable) {
	var wg sync.WaitGroup
	for _, loop := range loops {
		loop := loop
		wg.Add(1)
		go func() {
			defer wg.Done()
			loop(ctx)
		}()
	}
	<-ctx.Done()
	s.Logger.Info("shutdown_signal_received")
	wg.Wait()
	s.Logger.Info("shutdown_complete")
}
