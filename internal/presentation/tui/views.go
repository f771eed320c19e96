package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/session"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/muesli/termenv"
)

// Flash colours a flash message: red for errors, green otherwise.
func Flash(msg domain.FlashMessage) string {
	p := termenv.ColorProfile()
	if msg.Error {
		return termenv.String("✗ " + msg.Message).Foreground(p.Color("#f87171")).String()
	}
	return termenv.String("✓ " + msg.Message).Foreground(p.Color("#4ade80")).String()
}

// Summary is a one-paragraph markdown description of the session.
func Summary(s store.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**State:** %s\n\n", s.Auth)
	if s.Session.Authenticated() {
		fmt.Fprintf(&b, "**User:** %d", s.Session.UserID)
		if s.Session.Email != "" {
			fmt.Fprintf(&b, " (%s)", s.Session.Email)
		}
		if s.Session.AdminTier != "" {
			fmt.Fprintf(&b, ", tier `%s`", s.Session.AdminTier)
		}
		b.WriteString("\n")
	}
	if s.Challenge != nil && s.Challenge.TFAURL != "" {
		fmt.Fprintf(&b, "\nScan this URL in your authenticator app: `%s`\n", s.Challenge.TFAURL)
	}
	return b.String()
}

// StoredTokens lists which token slots are held. Token values are never shown.
func StoredTokens(t session.Tokens) string {
	return fmt.Sprintf("**Stored session:** %s, **remembered device:** %s\n",
		yesNo(t.Primary != ""), yesNo(t.TFA != ""))
}

// UsersTable renders users as a markdown table.
func UsersTable(users []domain.User) string {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		name := strings.TrimSpace(u.FirstName + " " + u.LastName)
		rows = append(rows, []string{
			strconv.FormatInt(u.ID, 10), u.Email, cell(name), cell(u.AdminTier),
			yesNo(u.IsActivated), yesNo(u.IsDisabled),
		})
	}
	return table([]string{"ID", "Email", "Name", "Tier", "Activated", "Disabled"}, rows)
}

// AccountsTable renders transfer accounts as a markdown table.
func AccountsTable(accounts []domain.TransferAccount) string {
	rows := make([][]string, 0, len(accounts))
	for _, a := range accounts {
		rows = append(rows, []string{
			strconv.FormatInt(a.ID, 10), cell(a.Name),
			strconv.FormatFloat(a.Balance, 'f', 2, 64),
			yesNo(a.IsApproved), yesNo(a.IsVendor),
			strconv.FormatInt(a.PrimaryUser, 10),
		})
	}
	return table([]string{"ID", "Name", "Balance", "Approved", "Vendor", "User"}, rows)
}

func table(header []string, rows [][]string) string {
	if len(rows) == 0 {
		return "_Nothing to show._\n"
	}
	var b strings.Builder
	b.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(header)) + "\n")
	for _, r := range rows {
		for i := range r {
			r[i] = strings.ReplaceAll(r[i], "|", "\\|")
		}
		b.WriteString("| " + strings.Join(r, " | ") + " |\n")
	}
	return b.String()
}

func cell(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
