package tui_test

import (
	"strings"
	"testing"

	"github.com/aretw0/transferdesk/internal/presentation/tui"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/session"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestAccountsTable(t *testing.T) {
	out := tui.AccountsTable([]domain.TransferAccount{
		{ID: 3, Name: "Corner | Shop", Balance: 12.5, IsVendor: true, PrimaryUser: 8},
	})

	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 3)
	assert.Equal(t, "| ID | Name | Balance | Approved | Vendor | User |", lines[0])
	assert.Equal(t, `| 3 | Corner \| Shop | 12.50 | no | yes | 8 |`, lines[2])
}

func TestUsersTable_Empty(t *testing.T) {
	assert.Equal(t, "_Nothing to show._\n", tui.UsersTable(nil))
}

func TestSummary(t *testing.T) {
	s := store.State{
		Auth:    domain.StateLoggedIn,
		Session: domain.Session{UserID: 7, Email: "admin@example.com", AdminTier: "superadmin"},
	}
	out := tui.Summary(s)
	assert.Contains(t, out, "logged_in")
	assert.Contains(t, out, "admin@example.com")
	assert.Contains(t, out, "`superadmin`")
}

func TestStoredTokens(t *testing.T) {
	out := tui.StoredTokens(session.Tokens{Primary: "T1"})
	assert.Equal(t, "**Stored session:** yes, **remembered device:** no\n", out)
	assert.NotContains(t, out, "T1")
}

func TestRenderer_Plain(t *testing.T) {
	render := tui.NewRenderer(true)
	out, err := render("# hi")
	assert.NoError(t, err)
	assert.Equal(t, "# hi", out)
}

func TestFlash(t *testing.T) {
	assert.Contains(t, tui.Flash(domain.FlashMessage{Error: true, Message: "boom"}), "boom")
	assert.Contains(t, tui.Flash(domain.FlashMessage{Message: "saved"}), "saved")
}
