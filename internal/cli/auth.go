package cli

import (
	"bufio"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/groupchat/backend/internal/client"
	"github.com/spf13/cobra"
)

var (
	flagEmail    string
	flagPassword string
	flagToken    string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate with your groupchat server",
	Long: `Sign in with email and password, or store an existing access token.

  groupchat login --email you@example.com      Prompts for the password
  groupchat login --token eyJhbGciOi...        Validates and stores a token`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := ClearConfig(); err != nil {
			return fmt.Errorf("clearing config: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current authenticated user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		me, err := currentUser()
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), me)
		}
		userInfo(cmd.OutOrStdout(), me)
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&flagEmail, "email", "", "Account email")
	loginCmd.Flags().StringVar(&flagPassword, "password", "", "Account password (prompted when omitted)")
	loginCmd.Flags().StringVar(&flagToken, "token", "", "Existing access token")
	rootCmd.AddCommand(loginCmd, logoutCmd, whoamiCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	if flagToken != "" {
		return loginWithToken(cmd, flagToken)
	}
	if flagEmail == "" {
		return errors.New("either --email or --token is required")
	}

	password := flagPassword
	if password == "" {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	var resp client.Response[client.Session]
	err := apiClient.Post("/auth/sign-in", map[string]string{"email": flagEmail, "password": password}, &resp)
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return errors.New("invalid email or password")
		}
		return fmt.Errorf("signing in: %w", err)
	}

	cfg.Token = resp.Data.AccessToken
	if err := SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", resp.Data.User.Name, resp.Data.User.Email)
	return nil
}

func loginWithToken(cmd *cobra.Command, token string) error {
	apiClient = client.NewClient(cfg.ServerURL, token)
	me, err := currentUser()
	if err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return errors.New("invalid token, server returned 401")
		}
		return fmt.Errorf("validating token: %w", err)
	}

	cfg.Token = token
	if err := SaveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (%s)\n", me.Name, me.Email)
	return nil
}
