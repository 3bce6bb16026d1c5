package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

func newEventsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Stream match events from the gateway",
		Long: `Connect to the websocket gateway and stream pushed events in real-time.

Events include:
  - game-info: Your view of the match changed
  - current-game: Your current match pointer changed
  - game-online-players: Online player set changed
  - game-kicked: You were removed from the match
  - game-banned: You were banned from the match
  - pong: Keepalive answer

Press Ctrl+C to disconnect.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return streamEvents(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output events as JSON lines")

	return cmd
}

// GatewayEvent is one pushed event as printed in JSON mode
type GatewayEvent struct {
	Time  time.Time       `json:"time"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func streamEvents(jsonOutput bool) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	ws, err := DialWS(ctx, cfg.ServerURL, cfg.Token)
	if err != nil {
		return err
	}
	defer ws.Close()

	// An authenticated ping binds this connection to the account, so the
	// gateway starts fanning the account's match events to it.
	if err := ws.Call(ctx, "ping", nil, nil); err != nil {
		return err
	}

	if !jsonOutput {
		fmt.Println("Connected, streaming events")
	}

	for {
		event, data, err := ws.Next(ctx)
		if err != nil {
			// Context cancellation is expected
			if ctx.Err() != nil {
				if !jsonOutput {
					fmt.Println("\nDisconnected")
				}
				return nil
			}
			return fmt.Errorf("stream error: %w", err)
		}
		printEvent(event, data, jsonOutput)
	}
}

func printEvent(event string, data json.RawMessage, jsonOutput bool) {
	now := time.Now()

	if jsonOutput {
		evt := GatewayEvent{
			Time:  now,
			Event: event,
			Data:  data,
		}
		jsonData, _ := json.Marshal(evt)
		fmt.Println(string(jsonData))
		return
	}

	timestamp := now.Format("2006-01-02 15:04:05")
	display := string(data)
	if len(display) > 100 {
		display = display[:100] + "..."
	}
	fmt.Printf("[%s] %s: %s\n", timestamp, event, display)
}
