package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/matheus3301/chatroom/internal/api"
	"github.com/matheus3301/chatroom/internal/chat"
	"github.com/spf13/cobra"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

func init() {
	rootCmd.AddCommand(messagesCmd, sendCmd, sendImageCmd, watchCmd)
}

var messagesCmd = &cobra.Command{
	Use:   "messages",
	Short: "Print the displayed message list",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			st, err := c.Status(ctx)
			if err != nil {
				return err
			}
			resp, err := c.Messages(ctx)
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			if len(resp.Messages) == 0 {
				fmt.Println("No messages.")
				return nil
			}
			for _, m := range resp.Messages {
				printMessage(m, st.Destination.UserEmail)
			}
			return nil
		})
	},
}

var sendCmd = &cobra.Command{
	Use:   "send <text...>",
	Short: "Send a text message",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.SendText(ctx, strings.Join(args, " "))
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("Sent %s\n", resp.ID)
			return nil
		})
	},
}

var sendImageCmd = &cobra.Command{
	Use:   "send-image <path>",
	Short: "Upload an image and send it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// The daemon reads the file; it does not share our working directory.
		path, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}
		return withClient(func(ctx context.Context, c *api.Client) error {
			resp, err := c.SendImage(ctx, path)
			if err != nil {
				return err
			}
			if jsonFlag {
				outputJSON(resp)
				return nil
			}
			fmt.Printf("Sent %s\n%s\n", resp.ID, resp.ImageURL)
			return nil
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream session events until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, name, err := connect()
		if err != nil {
			return err
		}
		defer func() { _ = c.Close() }()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stream, err := c.Watch(ctx)
		if err != nil {
			return explainUnavailable(name, err)
		}
		self := ""
		for {
			evt, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || grpcstatus.Code(err) == codes.Canceled {
					return nil
				}
				return explainUnavailable(name, err)
			}
			if evt.Destination != nil {
				self = evt.Destination.UserEmail
			}
			if jsonFlag {
				outputJSON(evt)
				continue
			}
			printEvent(evt, self)
		}
	},
}

func printEvent(evt *api.Event, self string) {
	ts := evt.OccurredAt.Local().Format(time.TimeOnly)
	switch {
	case evt.Kind == api.KindHello || evt.Kind == "chat.snapshot":
		fmt.Printf("[%s] %s: %d messages\n", ts, evt.Kind, len(evt.Messages))
		for _, m := range evt.Messages {
			printMessage(m, self)
		}
	case evt.Online != nil:
		fmt.Printf("[%s] %s: online=%v\n", ts, evt.Kind, *evt.Online)
	case evt.State != "":
		fmt.Printf("[%s] %s: %s\n", ts, evt.Kind, evt.State)
	case evt.Destination != nil:
		fmt.Printf("[%s] %s: %s\n", ts, evt.Kind, evt.Destination.Route)
	case evt.Error != "":
		fmt.Printf("[%s] %s: %s\n", ts, evt.Kind, evt.Error)
	default:
		fmt.Printf("[%s] %s\n", ts, evt.Kind)
	}
}

func printMessage(m chat.Message, self string) {
	when := "pending"
	if m.CreatedAt != nil {
		when = m.CreatedAt.Local().Format("15:04")
	}
	who := m.User
	if m.IsMine(self) {
		who = "you"
	}
	body := m.Text
	if m.IsImage {
		body = strings.TrimSpace("[image] " + m.ImageURL + " " + m.Text)
	}
	fmt.Printf("  %s  %-12s %s\n", when, who, body)
}
