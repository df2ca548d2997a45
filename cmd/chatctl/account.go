package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail    string
	loginPassword string
	registerName  string
)

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted when omitted)")
	registerCmd.Flags().StringVar(&registerName, "name", "", "display name")
	registerCmd.Flags().StringVar(&loginEmail, "email", "", "account email")
	registerCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted twice when omitted)")
	rootCmd.AddCommand(loginCmd, registerCmd, logoutCmd)
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and open the chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordOrPrompt(loginPassword, "Password: ")
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			dest, err := c.Login(ctx, loginEmail, password)
			if err != nil {
				return err
			}
			printDestination(dest)
			return nil
		})
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and open the chat",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := passwordOrPrompt(loginPassword, "Password: ")
		if err != nil {
			return err
		}
		confirm := password
		if loginPassword == "" {
			if confirm, err = passwordOrPrompt("", "Confirm password: "); err != nil {
				return err
			}
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			dest, err := c.Register(ctx, api.RegisterRequest{
				DisplayName: registerName,
				Email:       loginEmail,
				Password:    password,
				Confirm:     confirm,
			})
			if err != nil {
				return err
			}
			printDestination(dest)
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and wipe the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			dest, err := c.Logout(ctx)
			if err != nil {
				return err
			}
			printDestination(dest)
			return nil
		})
	},
}

// passwordOrPrompt returns given, or reads a password from the terminal
// without echo.
func passwordOrPrompt(given, prompt string) (string, error) {
	if given != "" {
		return given, nil
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("no password given and stdin is not a terminal; use --password")
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}
