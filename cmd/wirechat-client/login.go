package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/wirechat-client/rest"
)

var (
	flagLoginUser  string
	flagLoginPass  string
	flagLoginGuest bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate and save the access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client := rest.NewClient(cfg.ServerHTTPURL, nil)

		var (
			resp *rest.TokenResponse
			err  error
		)
		if flagLoginGuest {
			resp, err = client.GuestLogin(cmd.Context())
		} else {
			if flagLoginUser == "" || flagLoginPass == "" {
				return fmt.Errorf("--user and --password are required (or use --guest)")
			}
			resp, err = client.Login(cmd.Context(), rest.LoginRequest{
				Username: flagLoginUser,
				Password: flagLoginPass,
			})
		}
		if err != nil {
			return fmt.Errorf("login: %w", err)
		}

		if err := os.WriteFile(cfg.TokenFile, []byte(resp.Token), 0o600); err != nil {
			return fmt.Errorf("save token: %w", err)
		}

		fmt.Printf("Logged in as %s (user %d), token saved to %s\n", resp.Username, resp.UserID, cfg.TokenFile)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagLoginUser, "user", "", "username")
	loginCmd.Flags().StringVar(&flagLoginPass, "password", "", "password")
	loginCmd.Flags().BoolVar(&flagLoginGuest, "guest", false, "log in as a temporary guest")
}
