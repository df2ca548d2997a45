package main

import (
	"context"
	"fmt"
	"time"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd, netCmd, orphansCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show session status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		})
	},
}

var netCmd = &cobra.Command{
	Use:       "net <online|offline|auto>",
	Short:     "Force connectivity online or offline, or return to probing",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"online", "offline", "auto"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			st, err := c.SetConnectivity(ctx, args[0])
			if err != nil {
				return err
			}
			printStatus(st)
			return nil
		})
	},
}

var orphansCmd = &cobra.Command{
	Use:   "orphans",
	Short: "List uploaded images whose message was never written",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.OrphanedUploads(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			if len(resp.Uploads) == 0 {
				fmt.Println("No orphaned uploads.")
				return nil
			}
			for _, o := range resp.Uploads {
				fmt.Printf("%s  %s  %s\n    %s\n", o.CreatedAt.Local().Format(time.DateTime), o.FileName, o.URL, o.Error)
			}
			return nil
		})
	},
}

func printStatus(st *api.StatusReply) {
	if jsonFlag {
		outputJSON(st)
		return
	}
	online := "offline"
	if st.Online {
		online = "online"
	}
	fmt.Printf("Profile:      %s\n", st.Profile)
	fmt.Printf("Status:       %s\n", st.State)
	fmt.Printf("Connectivity: %s (mode %s)\n", online, st.Mode)
	switch st.Destination.Route {
	case "CHAT":
		fmt.Printf("Signed in:    %s <%s>\n", st.Destination.UserName, st.Destination.UserEmail)
	case "":
		fmt.Println("Signed in:    (starting)")
	default:
		fmt.Println("Signed in:    no")
	}
	fmt.Printf("Messages:     %d\n", st.MessageCount)
	if st.Sending || st.Uploading {
		fmt.Printf("In flight:    sending=%v uploading=%v\n", st.Sending, st.Uploading)
	}
	fmt.Printf("Uptime:       %s\n", (time.Duration(st.UptimeMs) * time.Millisecond).Round(time.Second))
}
