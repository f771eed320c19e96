package main

import (
	"fmt"
	"strconv"

	"github.com/aretw0/transferdesk/internal/presentation/tui"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage administrators and users",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List administrators and their permissions",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.run(cmd.Context(), domain.UserListRequest, nil, domain.FlowUserList)
		if err != nil {
			return err
		}
		return a.printUsers(st)
	},
}

var usersShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Load one user, or every user of an account type",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p := domain.LoadUserPayload{}
		p.AccountType, _ = cmd.Flags().GetString("type")
		if len(args) == 1 {
			if p.UserID, err = parseID(args[0]); err != nil {
				return err
			}
		}

		st, err := a.run(cmd.Context(), domain.LoadUserRequest, p, domain.FlowLoadUser)
		if err != nil {
			return err
		}
		return a.printUsers(st)
	},
}

var usersUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change an administrator's tier or deactivate them",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		p := domain.UpdateUserPayload{UserID: id}
		p.AdminTier, _ = cmd.Flags().GetString("tier")
		if cmd.Flags().Changed("deactivate") {
			deactivated, _ := cmd.Flags().GetBool("deactivate")
			p.Deactivated = &deactivated
		}

		st, err := a.run(cmd.Context(), domain.UpdateUserRequest, p, domain.FlowUpdateUser)
		if err != nil {
			return err
		}
		return a.printUsers(st)
	},
}

var usersInviteCmd = &cobra.Command{
	Use:   "invite <email>",
	Short: "Invite a new administrator",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		tier, _ := cmd.Flags().GetString("tier")
		_, err = a.run(cmd.Context(), domain.InviteUserRequest,
			domain.InviteUserPayload{Email: args[0], Tier: tier}, domain.FlowInviteUser)
		return err
	},
}

var usersCreateCmd = &cobra.Command{
	Use:   "create key=value...",
	Short: "Create a user from raw attributes",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		attrs, err := parseAssignments(args)
		if err != nil {
			return err
		}
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.run(cmd.Context(), domain.CreateUserRequest,
			domain.CreateUserPayload{Attributes: attrs}, domain.FlowCreateUser)
		if err != nil {
			return err
		}
		return a.printUsers(st)
	},
}

var usersEditCmd = &cobra.Command{
	Use:   "edit <id> key=value...",
	Short: "Edit user fields",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		body, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.run(cmd.Context(), domain.EditUserRequest,
			domain.EditUserPayload{UserID: id, Body: body}, domain.FlowEditUser)
		if err != nil {
			return err
		}
		return a.printUsers(st)
	},
}

func (a *app) printUsers(st store.State) error {
	users, err := st.UserList()
	if err != nil {
		return err
	}
	return a.print(tui.UsersTable(users))
}

// loggedIn builds the app and fails unless a stored session was restored.
func loggedIn(cmd *cobra.Command) (*app, error) {
	a, err := newApp(cmd)
	if err != nil {
		return nil, err
	}
	if err := a.requireLogin(); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	usersShowCmd.Flags().String("type", "", "Filter by account type")
	usersUpdateCmd.Flags().String("tier", "", "New admin tier")
	usersUpdateCmd.Flags().Bool("deactivate", false, "Deactivate (or, with =false, reactivate) the user")
	usersInviteCmd.Flags().String("tier", "view", "Admin tier for the invitee")

	usersCmd.AddCommand(usersListCmd, usersShowCmd, usersUpdateCmd, usersInviteCmd, usersCreateCmd, usersEditCmd)
	rootCmd.AddCommand(usersCmd)
}
