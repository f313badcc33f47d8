// Package cli implements the groupchat command line client.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/groupchat/backend/internal/client"
	"github.com/spf13/cobra"
)

var (
	flagJSON      bool
	flagServerURL string

	cfg       *Config
	apiClient *client.Client
)

var rootCmd = &cobra.Command{
	Use:   "groupchat",
	Short: "Manage chat groups from the terminal",
	Long: `groupchat talks to a groupchat server to manage your chat groups and
their members.

Get started:
  groupchat login --email you@example.com   Sign in with your password
  groupchat groups ls                       Browse public chat groups
  groupchat groups join <invite-code>       Join a group by invite code`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = LoadConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagServerURL != "" {
			cfg.ServerURL = flagServerURL
		}
		apiClient = client.NewClient(cfg.ServerURL, cfg.Token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "Override server URL (default: from config or "+DefaultURL+")")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func requireAuth() error {
	if cfg == nil || !cfg.HasToken() {
		return errors.New(`not authenticated, run "groupchat login" first`)
	}
	return nil
}

// currentUser fetches the account behind the stored token.
func currentUser() (client.User, error) {
	var resp client.Response[client.UserData]
	if err := apiClient.Get("/auth/me", nil, &resp); err != nil {
		return client.User{}, fmt.Errorf("fetching user: %w", err)
	}
	return resp.Data.User, nil
}

// myMembership finds the caller's member record in a group. Moderation
// endpoints authorize against it.
func myMembership(groupID string) (client.Member, error) {
	me, err := currentUser()
	if err != nil {
		return client.Member{}, err
	}
	group, err := fetchGroup(groupID, false)
	if err != nil {
		return client.Member{}, err
	}
	member := group.MemberOf(me.ID)
	if member == nil {
		return client.Member{}, fmt.Errorf("you are not a member of chat group %s", groupID)
	}
	return *member, nil
}
