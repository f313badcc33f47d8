package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/groupchat/backend/internal/client"
	"github.com/spf13/cobra"
)

var membersCmd = &cobra.Command{
	Use:     "members",
	Aliases: []string{"member"},
	Short:   "Manage the members of a chat group",
}

var membersListCmd = &cobra.Command{
	Use:   "ls <group-id>",
	Short: "List the members of a chat group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		group, err := fetchGroup(args[0], true)
		if err != nil {
			return err
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), group.Members)
		}
		memberTable(cmd.OutOrStdout(), group.Members)
		return nil
	},
}

var membersAddCmd = &cobra.Command{
	Use:   "add <group-id> <user-id|email>",
	Short: "Add a user to a chat group as MEMBER",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		userID, err := resolveUserID(args[1])
		if err != nil {
			return err
		}
		group, err := moderate(http.MethodPost, args[0], "/add-user", nil, "userId="+url.QueryEscape(userID))
		if err != nil {
			return fmt.Errorf("adding member: %w", err)
		}
		return printMembers(cmd, group)
	},
}

var membersRemoveCmd = &cobra.Command{
	Use:   "remove <group-id> <member-id>",
	Short: "Remove a member from a chat group",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		group, err := moderate(http.MethodDelete, args[0], "/remove-user", nil, "memberId="+url.QueryEscape(args[1]))
		if err != nil {
			return fmt.Errorf("removing member: %w", err)
		}
		return printMembers(cmd, group)
	},
}

var membersRoleCmd = &cobra.Command{
	Use:   "role <group-id> <member-id> <MODERATOR|MEMBER>",
	Short: "Change a member's role",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		body := map[string]string{
			"memberId": args[1],
			"role":     strings.ToUpper(args[2]),
		}
		group, err := moderate(http.MethodPatch, args[0], "/change-role", body)
		if err != nil {
			return fmt.Errorf("changing role: %w", err)
		}
		return printMembers(cmd, group)
	},
}

func init() {
	membersCmd.AddCommand(membersListCmd, membersAddCmd, membersRemoveCmd, membersRoleCmd)
	rootCmd.AddCommand(membersCmd)
}

// resolveUserID accepts a user id or looks an email up.
func resolveUserID(ref string) (string, error) {
	if !strings.Contains(ref, "@") {
		return ref, nil
	}
	var resp client.Response[client.UserData]
	if err := apiClient.Get("/user/email/"+url.PathEscape(ref), nil, &resp); err != nil {
		return "", fmt.Errorf("looking up %s: %w", ref, err)
	}
	return resp.Data.User.ID, nil
}

func printMembers(cmd *cobra.Command, group client.ChatGroup) error {
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), group.Members)
	}
	memberTable(cmd.OutOrStdout(), group.Members)
	return nil
}
