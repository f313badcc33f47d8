package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/groupchat/backend/internal/client"
	"github.com/spf13/cobra"
)

var (
	flagPage        int
	flagLimit       int
	flagName        string
	flagShowUsers   bool
	flagDescription string
	flagPublic      bool
	flagImage       string
)

var groupsCmd = &cobra.Command{
	Use:     "groups",
	Aliases: []string{"group"},
	Short:   "Browse and manage chat groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "ls",
	Short: "List public chat groups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listGroups(cmd, "/chatgroup", true)
	},
}

var groupsMineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List the chat groups you belong to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listGroups(cmd, "/chatgroup/mine", false)
	},
}

var groupsShowCmd = &cobra.Command{
	Use:   "show <group-id>",
	Short: "Show a chat group and its members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		group, err := fetchGroup(args[0], flagShowUsers)
		if err != nil {
			return err
		}
		return printGroup(cmd, group)
	},
}

var groupsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a chat group; you become its ADMIN",
	Long: `Create a chat group with an image.

  groupchat groups create --name Gophers --image logo.png --public`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if flagImage == "" {
			return fmt.Errorf("--image is required")
		}
		fields := map[string]string{
			"name":     flagName,
			"isPublic": strconv.FormatBool(flagPublic),
		}
		if flagDescription != "" {
			fields["description"] = flagDescription
		}

		var resp client.Response[client.ChatGroupData]
		if err := apiClient.Upload(http.MethodPost, "/chatgroup", "image", flagImage, fields, &resp); err != nil {
			return fmt.Errorf("creating chat group: %w", err)
		}
		return printGroup(cmd, resp.Data.ChatGroup)
	},
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <group-id>",
	Short: "Delete a chat group you administer",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		me, err := myMembership(args[0])
		if err != nil {
			return err
		}
		path := "/chatgroup/" + url.PathEscape(args[0]) + "?adminId=" + url.QueryEscape(me.ID)
		if err := apiClient.Delete(path, nil); err != nil {
			return fmt.Errorf("deleting chat group: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Chat group deleted.")
		return nil
	},
}

var groupsJoinCmd = &cobra.Command{
	Use:   "join <invite-code>",
	Short: "Join a chat group by invite code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var resp client.Response[client.MemberData]
		if err := apiClient.Post("/chatgroup/join/"+url.PathEscape(args[0]), nil, &resp); err != nil {
			return fmt.Errorf("joining chat group: %w", err)
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), resp.Data.Member)
		}
		name := resp.Data.Member.ChatGroupID
		if resp.Data.Member.ChatGroup != nil {
			name = resp.Data.Member.ChatGroup.Name
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Joined %s as %s.\n", name, resp.Data.Member.Role)
		return nil
	},
}

var groupsLeaveCmd = &cobra.Command{
	Use:   "leave <group-id>",
	Short: "Leave a chat group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		if err := apiClient.Delete("/chatgroup/"+url.PathEscape(args[0])+"/leave", nil); err != nil {
			return fmt.Errorf("leaving chat group: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Left chat group.")
		return nil
	},
}

var groupsRotateCmd = &cobra.Command{
	Use:   "rotate-code <group-id>",
	Short: "Replace the invite code; the old one stops working",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		group, err := moderate(http.MethodPatch, args[0], "/update-invite-code", nil)
		if err != nil {
			return fmt.Errorf("rotating invite code: %w", err)
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), group)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "New invite code: %s\n", group.InviteCode)
		return nil
	},
}

var groupsPrivacyCmd = &cobra.Command{
	Use:       "privacy <group-id> <public|private>",
	Short:     "Make a chat group public or private",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"public", "private"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}
		var isPublic bool
		switch args[1] {
		case "public":
			isPublic = true
		case "private":
		default:
			return fmt.Errorf("visibility must be public or private, got %q", args[1])
		}

		group, err := moderate(http.MethodPatch, args[0], "/change-privacy", map[string]bool{"isPublic": isPublic})
		if err != nil {
			return fmt.Errorf("changing privacy: %w", err)
		}
		if flagJSON {
			return writeJSON(cmd.OutOrStdout(), group)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s.\n", group.Name, visibility(group.IsPublic))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{groupsListCmd, groupsMineCmd} {
		c.Flags().IntVar(&flagPage, "page", 1, "Page number")
		c.Flags().IntVar(&flagLimit, "limit", 10, "Items per page")
	}
	groupsListCmd.Flags().StringVar(&flagName, "name", "", "Filter by name")
	groupsShowCmd.Flags().BoolVar(&flagShowUsers, "users", false, "Include member user details")

	groupsCreateCmd.Flags().StringVar(&flagName, "name", "", "Chat group name")
	groupsCreateCmd.Flags().StringVar(&flagDescription, "description", "", "Chat group description")
	groupsCreateCmd.Flags().BoolVar(&flagPublic, "public", false, "List the group publicly")
	groupsCreateCmd.Flags().StringVar(&flagImage, "image", "", "Path to the group image")
	_ = groupsCreateCmd.MarkFlagRequired("name")

	groupsCmd.AddCommand(groupsListCmd, groupsMineCmd, groupsShowCmd, groupsCreateCmd, groupsDeleteCmd,
		groupsJoinCmd, groupsLeaveCmd, groupsRotateCmd, groupsPrivacyCmd)
	rootCmd.AddCommand(groupsCmd)
}

func listGroups(cmd *cobra.Command, path string, withName bool) error {
	if err := requireAuth(); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("page", strconv.Itoa(flagPage))
	params.Set("limit", strconv.Itoa(flagLimit))
	if withName && flagName != "" {
		params.Set("name", flagName)
	}

	var resp client.Response[client.ChatGroupPage]
	if err := apiClient.Get(path, params, &resp); err != nil {
		return fmt.Errorf("listing chat groups: %w", err)
	}
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), resp.Data)
	}
	groupTable(cmd.OutOrStdout(), resp.Data.ChatGroups)
	pageFooter(cmd.OutOrStdout(), resp.Data.Page)
	return nil
}

func fetchGroup(groupID string, includeUsers bool) (client.ChatGroup, error) {
	params := url.Values{}
	if includeUsers {
		params.Set("includeUsers", "true")
	}
	var resp client.Response[client.ChatGroupData]
	if err := apiClient.Get("/chatgroup/"+url.PathEscape(groupID), params, &resp); err != nil {
		return client.ChatGroup{}, fmt.Errorf("fetching chat group: %w", err)
	}
	return resp.Data.ChatGroup, nil
}

// moderate calls a moderation endpoint of the group as the caller's own
// member record. extraQuery is appended verbatim after moderatorId.
func moderate(method, groupID, suffix string, body interface{}, extraQuery ...string) (client.ChatGroup, error) {
	me, err := myMembership(groupID)
	if err != nil {
		return client.ChatGroup{}, err
	}

	path := "/chatgroup/" + url.PathEscape(groupID) + suffix + "?moderatorId=" + url.QueryEscape(me.ID)
	for _, q := range extraQuery {
		path += "&" + q
	}

	var resp client.Response[client.ChatGroupData]
	switch method {
	case http.MethodPost:
		err = apiClient.Post(path, body, &resp)
	case http.MethodDelete:
		err = apiClient.Delete(path, &resp)
	default:
		err = apiClient.Patch(path, body, &resp)
	}
	if err != nil {
		return client.ChatGroup{}, err
	}
	return resp.Data.ChatGroup, nil
}

func printGroup(cmd *cobra.Command, group client.ChatGroup) error {
	if flagJSON {
		return writeJSON(cmd.OutOrStdout(), group)
	}
	groupDetail(cmd.OutOrStdout(), group)
	return nil
}
