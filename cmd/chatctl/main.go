package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/lock"
	"github.com/matheus3301/chatroom/internal/profile"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

var (
	profileFlag string
	jsonFlag    bool
	langFlag    string
	timeoutFlag time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "chatctl",
	Short:         "Control a running chatroom daemon",
	Long:          "chatctl talks to the chatd daemon of a profile over its unix socket.\nStart the daemon with chatd, or let chattui start it for you.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&profileFlag, "profile", "", "profile name (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "output in JSON format")
	rootCmd.PersistentFlags().StringVar(&langFlag, "lang", "", "language for error messages (id, en)")
	rootCmd.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 10*time.Second, "request timeout")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", api.ErrorMessage(err))
		os.Exit(1)
	}
}

// connect resolves the profile and dials its daemon.
func connect() (*api.Client, string, error) {
	name := profile.Resolve(profileFlag)
	if err := profile.ValidateName(name); err != nil {
		return nil, "", err
	}
	c, err := api.Dial(profile.SocketPath(name), langFlag)
	if err != nil {
		return nil, "", fmt.Errorf("cannot connect to daemon for profile %q: %w", name, err)
	}
	return c, name, nil
}

// withClient runs fn with a connected client and a request deadline.
func withClient(fn func(ctx context.Context, c *api.Client) error) error {
	c, name, err := connect()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()
	return explainUnavailable(name, fn(ctx, c))
}

// explainUnavailable replaces a bare "connection refused" with what the
// profile's lock file says about the daemon.
func explainUnavailable(name string, err error) error {
	if grpcstatus.Code(err) != codes.Unavailable {
		return err
	}
	if pid, held := lock.Holder(profile.Dir(name)); held {
		return fmt.Errorf("daemon for profile %q (pid %d) is not answering", name, pid)
	}
	return fmt.Errorf("daemon for profile %q is not running; start it with: chatd --profile %s", name, name)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}

func printDestination(d *api.Destination) {
	if jsonFlag {
		outputJSON(d)
		return
	}
	if d.Route == "CHAT" {
		fmt.Printf("Signed in as %s <%s>\n", d.UserName, d.UserEmail)
		return
	}
	fmt.Printf("Now at %s\n", d.Route)
}
