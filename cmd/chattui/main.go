package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/lock"
	"github.com/matheus3301/chatroom/internal/profile"
	"github.com/matheus3301/chatroom/internal/tui"
)

func main() {
	profileFlag := flag.String("profile", "", "profile name (overrides config default)")
	langFlag := flag.String("lang", "", "language for error messages (id, en)")
	flag.Parse()

	name := profile.Resolve(*profileFlag)
	if err := profile.ValidateName(name); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err := ensureDaemon(name, 10*time.Second); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	c, err := api.Dial(profile.SocketPath(name), *langFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect to daemon: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()

	app := tui.NewApp(c, name)
	if err := app.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// ensureDaemon makes sure a daemon answers for the profile, starting one
// when nobody holds the profile lock.
func ensureDaemon(name string, timeout time.Duration) error {
	socketPath := profile.SocketPath(name)
	if probeDaemon(socketPath) {
		return nil
	}
	if pid, held := lock.Holder(profile.Dir(name)); held {
		return fmt.Errorf("daemon pid %d holds profile %q but does not answer on %s", pid, name, socketPath)
	}

	fmt.Fprintf(os.Stderr, "daemon not running for profile %q, starting...\n", name)
	if err := startDaemon(name); err != nil {
		return fmt.Errorf("start daemon: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if probeDaemon(socketPath) {
			return nil
		}
		time.Sleep(300 * time.Millisecond)
	}
	return errors.New("daemon did not become ready, see " + profile.LogPath(name))
}

// probeDaemon reports whether Status answers on the socket; a socket that
// merely accepts connections is not enough.
func probeDaemon(socketPath string) bool {
	c, err := api.Dial(socketPath, "")
	if err != nil {
		return false
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = c.Status(ctx)
	return err == nil
}

// startDaemon runs chatd from next to this binary, or from PATH. The TUI
// owns the terminal, so the daemon's output only goes to its log file.
func startDaemon(name string) error {
	chatd := "chatd"
	if exe, err := os.Executable(); err == nil {
		sibling := filepath.Join(filepath.Dir(exe), "chatd")
		if _, err := os.Stat(sibling); err == nil {
			chatd = sibling
		}
	}
	return exec.Command(chatd, "--profile", name).Start()
}
