package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/groupchat/backend/internal/client"
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func groupTable(w io.Writer, groups []client.ChatGroup) {
	if len(groups) == 0 {
		fmt.Fprintln(w, "No chat groups found.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVISIBILITY\tMEMBERS\tCREATED")
	for _, g := range groups {
		members := "-"
		if len(g.Members) > 0 {
			members = fmt.Sprintf("%d", len(g.Members))
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", g.ID, g.Name, visibility(g.IsPublic), members, relativeTime(g.CreatedAt))
	}
	tw.Flush()
}

func pageFooter(w io.Writer, p client.Page) {
	fmt.Fprintf(w, "\nPage %d (%d per page), %d total", p.Page, p.Limit, p.DocumentCount)
	if p.IsNext {
		fmt.Fprint(w, ", more with --page ", p.Page+1)
	}
	fmt.Fprintln(w)
}

func groupDetail(w io.Writer, g client.ChatGroup) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", g.Name)
	fmt.Fprintf(tw, "ID:\t%s\n", g.ID)
	if g.Description != nil {
		fmt.Fprintf(tw, "Description:\t%s\n", *g.Description)
	}
	fmt.Fprintf(tw, "Visibility:\t%s\n", visibility(g.IsPublic))
	if g.InviteCode != "" {
		fmt.Fprintf(tw, "Invite Code:\t%s\n", g.InviteCode)
	}
	fmt.Fprintf(tw, "Image:\t%s\n", g.ImageURL)
	fmt.Fprintf(tw, "Created:\t%s\n", g.CreatedAt.Format(time.RFC3339))
	tw.Flush()

	if len(g.Members) > 0 {
		fmt.Fprintln(w)
		memberTable(w, g.Members)
	}
}

func memberTable(w io.Writer, members []client.Member) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MEMBER ID\tUSER\tROLE\tJOINED")
	for _, m := range members {
		user := m.UserID
		if m.User != nil {
			user = m.User.Email
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", m.ID, user, m.Role, relativeTime(m.CreatedAt))
	}
	tw.Flush()
}

func userInfo(w io.Writer, u client.User) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Email:\t%s\n", u.Email)
	fmt.Fprintf(tw, "Name:\t%s\n", u.Name)
	fmt.Fprintf(tw, "Verified:\t%v\n", u.IsEmailVerified)
	fmt.Fprintf(tw, "ID:\t%s\n", u.ID)
	tw.Flush()
}

func visibility(isPublic bool) string {
	if isPublic {
		return "public"
	}
	return "private"
}

// relativeTime formats a timestamp relative to now (e.g. "2h ago", "3d ago").
func relativeTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Format("2006-01-02")
	}
}
