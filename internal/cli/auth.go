package cli

import (
	"fmt"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newAuthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Account and credential commands",
	}

	cmd.AddCommand(newRegisterCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newRefreshCmd())
	cmd.AddCommand(newMeCmd())
	cmd.AddCommand(newDeactivateCmd())

	return cmd
}

func newRegisterCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and store its credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			var result AuthResult
			err = client.Post("/api/v1/auth/register", map[string]string{
				"username": args[0],
				"password": pw,
			}, &result)
			if err != nil {
				return err
			}

			if err := cfg.SaveCredentials(result.AccessToken, result.RefreshToken); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")

	return cmd
}

func newLoginCmd() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and store the credentials",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pw, err := resolvePassword(password)
			if err != nil {
				return err
			}

			var result AuthResult
			err = client.Post("/api/v1/auth/login", map[string]string{
				"username": args[0],
				"password": pw,
			}, &result)
			if err != nil {
				return err
			}

			if err := cfg.SaveCredentials(result.AccessToken, result.RefreshToken); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the refresh token and clear stored credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			var body map[string]string
			if cfg.RefreshToken != "" {
				body = map[string]string{"refresh_token": cfg.RefreshToken}
			}

			if err := client.Post("/api/v1/auth/logout", body, nil); err != nil {
				return err
			}
			if err := cfg.ClearCredentials(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Logged out")
			return nil
		},
	}
}

func newRefreshCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the stored refresh token for a new credential pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.RefreshToken == "" {
				return fmt.Errorf("no stored refresh token, log in first")
			}

			var result AuthResult
			err := client.Post("/api/v1/auth/refresh", map[string]string{
				"refresh_token": cfg.RefreshToken,
			}, &result)
			if err != nil {
				return err
			}

			if err := cfg.SaveCredentials(result.AccessToken, result.RefreshToken); err != nil {
				return fmt.Errorf("failed to save credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Credentials refreshed")
			return nil
		},
	}
}

func newMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the authenticated account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result User
			if err := client.Get("/api/v1/auth/me", &result); err != nil {
				return err
			}

			out := NewOutput(cfg.Output)
			out.Print(result)
			return nil
		},
	}
}

func newDeactivateCmd() *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "deactivate",
		Short: "Deactivate the account (restored on next login)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirmed {
				return fmt.Errorf("pass --yes to confirm deactivation")
			}

			if err := client.Delete("/api/v1/auth/me"); err != nil {
				return err
			}
			if err := cfg.ClearCredentials(); err != nil {
				return fmt.Errorf("failed to clear credentials: %w", err)
			}

			out := NewOutput(cfg.Output)
			out.PrintMessage("Account deactivated")
			return nil
		},
	}

	cmd.Flags().BoolVar(&confirmed, "yes", false, "Confirm deactivation")

	return cmd
}

// resolvePassword returns the flag value or prompts without echo
func resolvePassword(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	fmt.Print("Password: ")
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("password is required")
	}
	return string(raw), nil
}
