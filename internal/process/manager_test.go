package process

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNewManager_Defaults(t *testing.T) {
	m := NewManager(Config{
		Name:   "comelit/test",
		Binary: "/usr/bin/test",
		Args:   []string{"--flag"},
	})

	if m.config.Name != "comelit/test" {
		t.Errorf("Name = %q, want %q", m.config.Name, "comelit/test")
	}
	if m.config.RestartDelay != 5*time.Second {
		t.Errorf("RestartDelay = %v, want %v", m.config.RestartDelay, 5*time.Second)
	}
	if m.config.MaxRestartDelay != 5*time.Minute {
		t.Errorf("MaxRestartDelay = %v, want %v", m.config.MaxRestartDelay, 5*time.Minute)
	}
	if m.config.StableThreshold != 2*time.Minute {
		t.Errorf("StableThreshold = %v, want %v", m.config.StableThreshold, 2*time.Minute)
	}
	if m.config.GracefulTimeout != 10*time.Second {
		t.Errorf("GracefulTimeout = %v, want %v", m.config.GracefulTimeout, 10*time.Second)
	}
	if m.config.HealthCheckInterval != 30*time.Second {
		t.Errorf("HealthCheckInterval = %v, want %v", m.config.HealthCheckInterval, 30*time.Second)
	}
}

func TestNewManager_CustomConfig(t *testing.T) {
	m := NewManager(Config{
		Name:                "custom",
		Binary:              "/opt/bin/sdk",
		RestartDelay:        10 * time.Second,
		MaxRestartDelay:     10 * time.Minute,
		StableThreshold:     5 * time.Minute,
		GracefulTimeout:     30 * time.Second,
		HealthCheckInterval: 60 * time.Second,
		MaxRestartAttempts:  20,
	})

	if m.config.RestartDelay != 10*time.Second {
		t.Errorf("RestartDelay = %v, want %v", m.config.RestartDelay, 10*time.Second)
	}
	if m.config.MaxRestartDelay != 10*time.Minute {
		t.Errorf("MaxRestartDelay = %v, want %v", m.config.MaxRestartDelay, 10*time.Minute)
	}
	if m.config.MaxRestartAttempts != 20 {
		t.Errorf("MaxRestartAttempts = %d, want 20", m.config.MaxRestartAttempts)
	}
}

func TestDefaultConfig_Function(t *testing.T) {
	cfg := DefaultConfig("yale/01J0YALE", "/usr/bin/yale-sdk", []string{"--verbose"})

	if cfg.Name != "yale/01J0YALE" || cfg.Binary != "/usr/bin/yale-sdk" {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.Args) != 1 || cfg.Args[0] != "--verbose" {
		t.Errorf("Args = %v, want [--verbose]", cfg.Args)
	}
	if !cfg.RestartOnFailure {
		t.Error("RestartOnFailure = false, want true")
	}
	if cfg.MaxRestartAttempts != 10 {
		t.Errorf("MaxRestartAttempts = %d, want 10", cfg.MaxRestartAttempts)
	}
}

func TestManager_InitialState(t *testing.T) {
	m := NewManager(Config{Name: "test", Binary: "/bin/true"})

	if m.Status() != StatusStopped {
		t.Errorf("initial Status() = %q, want %q", m.Status(), StatusStopped)
	}
	if m.IsRunning() {
		t.Error("IsRunning() = true, want false")
	}
	if m.PID() != 0 {
		t.Errorf("PID() = %d, want 0", m.PID())
	}
	if m.RestartCount() != 0 {
		t.Errorf("RestartCount() = %d, want 0", m.RestartCount())
	}
	if m.LastError() != nil {
		t.Errorf("LastError() = %v, want nil", m.LastError())
	}

	stats := m.Stats()
	if stats.Name != "test" || stats.Status != StatusStopped || stats.PID != 0 || stats.LastError != "" {
		t.Errorf("Stats() = %+v", stats)
	}
}

func TestManager_StopWhenNotRunning(t *testing.T) {
	m := NewManager(Config{Name: "test", Binary: "/bin/true"})
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() on stopped process error = %v, want nil", err)
	}
}

func TestManager_StartAndStop(t *testing.T) {
	var stopErr atomic.Value
	stopped := make(chan struct{})
	m := NewManager(Config{
		Name:            "test-sleep",
		Binary:          "/bin/sleep",
		Args:            []string{"60"},
		GracefulTimeout: 2 * time.Second,
		OnStop: func(err error) {
			if err != nil {
				stopErr.Store(err)
			}
			close(stopped)
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if !m.IsRunning() || m.PID() == 0 {
		t.Fatalf("after Start: running = %v, pid = %d", m.IsRunning(), m.PID())
	}
	if err := m.Start(ctx); err == nil {
		t.Error("second Start() expected error, got nil")
	}

	if err := m.Stop(); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() after Stop = %q, want %q", m.Status(), StatusStopped)
	}
	<-stopped
	if err := stopErr.Load(); err != nil {
		t.Errorf("OnStop error = %v, want nil for a requested stop", err)
	}
}

func TestManager_StartWithInvalidBinary(t *testing.T) {
	m := NewManager(Config{Name: "bad-binary", Binary: "/nonexistent/binary"})

	if err := m.Start(context.Background()); err == nil {
		t.Fatal("Start() with invalid binary expected error, got nil")
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusFailed)
	}
	if m.LastError() == nil {
		t.Error("LastError() = nil after failed start")
	}
	if err := m.Stop(); err != nil {
		t.Errorf("Stop() after failed start = %v", err)
	}
}

func TestCalculateBackoffDelay(t *testing.T) {
	m := NewManager(Config{
		Name:            "test",
		Binary:          "/bin/true",
		RestartDelay:    1 * time.Second,
		MaxRestartDelay: 30 * time.Second,
	})

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{7, 30 * time.Second},
		{60, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := m.calculateBackoffDelay(tt.attempt); got != tt.want {
			t.Errorf("calculateBackoffDelay(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestIsRecoverable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, true},
		{"plain error", context.DeadlineExceeded, true},
		{"crash exit", &ExitError{Code: 1, Err: errors.New("exit status 1")}, true},
		{"config exit", &ExitError{Code: ExitConfigError, Err: errors.New("exit status 78")}, false},
		{"wrapped config exit", errors.Join(errors.New("sdk"), &ExitError{Code: ExitConfigError}), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRecoverable(tt.err); got != tt.want {
				t.Errorf("IsRecoverable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestManager_RestartsWithBackoff(t *testing.T) {
	var mu sync.Mutex
	var attempts []int
	m := NewManager(Config{
		Name:               "crashy",
		Binary:             "/bin/sh",
		Args:               []string{"-c", "exit 1"},
		RestartOnFailure:   true,
		RestartDelay:       5 * time.Millisecond,
		MaxRestartDelay:    20 * time.Millisecond,
		MaxRestartAttempts: 3,
		OnRestart: func(attempt int) {
			mu.Lock()
			attempts = append(attempts, attempt)
			mu.Unlock()
		},
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitMonitorDone(t, m)

	mu.Lock()
	defer mu.Unlock()
	if len(attempts) != 3 || attempts[2] != 3 {
		t.Errorf("restart attempts = %v, want [1 2 3]", attempts)
	}
	if m.Status() != StatusFailed {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusFailed)
	}
	var exitErr *ExitError
	if !errors.As(m.LastError(), &exitErr) || exitErr.Code != 1 {
		t.Errorf("LastError() = %v, want exit code 1", m.LastError())
	}
}

func TestManager_ConfigExitIsNotRestarted(t *testing.T) {
	var restarts atomic.Int32
	m := NewManager(Config{
		Name:             "bad-credentials",
		Binary:           "/bin/sh",
		Args:             []string{"-c", "exit 78"},
		RestartOnFailure: true,
		RestartDelay:     time.Millisecond,
		OnRestart:        func(int) { restarts.Add(1) },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	waitMonitorDone(t, m)

	if n := restarts.Load(); n != 0 {
		t.Errorf("restarts = %d, want 0", n)
	}
	if IsRecoverable(m.LastError()) {
		t.Errorf("LastError() = %v, want a non-recoverable exit", m.LastError())
	}
}

func TestManager_HealthCheckKillsHungProcess(t *testing.T) {
	stopErr := make(chan error, 1)
	m := NewManager(Config{
		Name:                "hung",
		Binary:              "/bin/sleep",
		Args:                []string{"60"},
		HealthCheckInterval: 5 * time.Millisecond,
		HealthCheckFunc: func(context.Context) error {
			return errors.New("no snapshot")
		},
		OnStop: func(err error) { stopErr <- err },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}

	select {
	case err := <-stopErr:
		if err == nil {
			t.Error("OnStop error = nil, want health check failure")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process was not killed")
	}
	waitMonitorDone(t, m)
}

func TestManager_PassesEnvironment(t *testing.T) {
	stopErr := make(chan error, 1)
	m := NewManager(Config{
		Name:   "env",
		Binary: "/bin/sh",
		Args:   []string{"-c", `test "$GRAYHUB_ENTRY_ID" = 01J0COMELIT || exit 3`},
		Env:    []string{"GRAYHUB_ENTRY_ID=01J0COMELIT"},
		OnStop: func(err error) { stopErr <- err },
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	select {
	case err := <-stopErr:
		if err != nil {
			t.Errorf("process exit = %v, want success", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("process did not exit")
	}
}

func TestManager_StopDuringRestartDelay(t *testing.T) {
	restarting := make(chan struct{}, 1)
	m := NewManager(Config{
		Name:             "slow-restart",
		Binary:           "/bin/sh",
		Args:             []string{"-c", "exit 1"},
		RestartOnFailure: true,
		RestartDelay:     time.Hour,
		OnRestart: func(int) {
			select {
			case restarting <- struct{}{}:
			default:
			}
		},
	})

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	<-restarting

	done := make(chan error, 1)
	go func() { done <- m.Stop() }()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Stop() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() blocked on the restart delay")
	}
	if m.Status() != StatusStopped {
		t.Errorf("Status() = %q, want %q", m.Status(), StatusStopped)
	}
}

func waitMonitorDone(t *testing.T, m *Manager) {
	t.Helper()
	m.mu.RLock()
	done := m.done
	m.mu.RUnlock()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("monitor did not finish")
	}
}
