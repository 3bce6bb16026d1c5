package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newMatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Match commands (via the websocket gateway)",
	}

	cmd.AddCommand(newMatchCreateCmd())
	cmd.AddCommand(newMatchJoinCmd())
	cmd.AddCommand(newMatchLeaveCmd())
	cmd.AddCommand(newMatchStartCmd())
	cmd.AddCommand(newMatchRestartCmd())
	cmd.AddCommand(newMatchStopCmd())
	cmd.AddCommand(newMatchEndCmd())
	cmd.AddCommand(newMatchMoveCmd())
	cmd.AddCommand(newMatchKickCmd())
	cmd.AddCommand(newMatchBanCmd())
	cmd.AddCommand(newMatchUnbanCmd())
	cmd.AddCommand(newMatchInfoCmd())
	cmd.AddCommand(newMatchPlayersCmd())

	return cmd
}

// matchCall opens a short-lived gateway connection, sends one request frame
// and decodes its acknowledgment into result.
func matchCall(event string, data, result any) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ws, err := DialWS(ctx, cfg.ServerURL, cfg.Token)
	if err != nil {
		return err
	}
	defer ws.Close()

	return ws.Call(ctx, event, data, result)
}

func newMatchCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create",
		Short: "Create a match",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match
			if err := matchCall("game-create", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <match-id>",
		Short: "Join a match by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Match
			err := matchCall("game-join", map[string]string{"matchId": args[0]}, &result)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newMatchLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Leave your current match",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := matchCall("game-leave", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Left match")
			return nil
		},
	}
}

func newMatchStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start your match (creator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := matchCall("game-start", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Match started")
			return nil
		},
	}
}

func newMatchRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart a finished match with fresh scores (creator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := matchCall("game-restart", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Match restarted")
			return nil
		},
	}
}

func newMatchStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running match and return to the lobby state (creator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := matchCall("game-stop", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Match stopped")
			return nil
		},
	}
}

func newMatchEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "end",
		Short: "End and dissolve the match (creator only)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := matchCall("game-end", nil, nil); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Match ended")
			return nil
		},
	}
}

func newMatchMoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <rock|paper|scissors>",
		Short: "Commit your move for the current round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := matchCall("game-move", map[string]string{"move": args[0]}, nil)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage(fmt.Sprintf("Move committed: %s", args[0]))
			return nil
		},
	}
}

func newMatchKickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "kick <user-id>",
		Short: "Remove a player from your match (creator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := matchCall("game-kick", map[string]string{"userId": args[0]}, nil)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Player kicked")
			return nil
		},
	}
}

func newMatchBanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ban <user-id>",
		Short: "Remove and blacklist a player (creator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := matchCall("game-ban", map[string]string{"userId": args[0]}, nil)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Player banned")
			return nil
		},
	}
}

func newMatchUnbanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unban <user-id>",
		Short: "Remove a player from the blacklist (creator only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := matchCall("game-unban", map[string]string{"userId": args[0]}, nil)
			if err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Player unbanned")
			return nil
		},
	}
}

func newMatchInfoCmd() *cobra.Command {
	var matchID string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show your current match, or spectate one by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			var data any
			if matchID != "" {
				data = map[string]string{"matchId": matchID}
			}

			var result *Match
			if err := matchCall("game-ask-info", data, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			if result == nil {
				out.PrintMessage("Not in a match")
				return nil
			}
			out.Print(*result)
			return nil
		},
	}

	cmd.Flags().StringVar(&matchID, "match", "", "Match id to spectate")

	return cmd
}

func newMatchPlayersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "players",
		Short: "List players online in your match",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []PlayerRef
			if err := matchCall("game-online-players", nil, &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}
