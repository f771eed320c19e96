package main

import (
	"github.com/aretw0/transferdesk/internal/presentation/tui"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/aretw0/transferdesk/pkg/store"
	"github.com/spf13/cobra"
)

var accountsCmd = &cobra.Command{
	Use:     "accounts",
	Aliases: []string{"ta"},
	Short:   "Browse and edit transfer accounts",
}

var accountsListCmd = &cobra.Command{
	Use:   "list [id]",
	Short: "Load transfer accounts",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := domain.LoadTransferAccountsPayload{}
		p.AccountType, _ = cmd.Flags().GetString("type")
		if len(args) == 1 {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p.TransferAccountID = id
		}

		a, err := loggedIn(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.run(cmd.Context(), domain.LoadTransferAccountsRequest, p, domain.FlowLoadTransferAccounts)
		if err != nil {
			return err
		}
		return a.printAccounts(st)
	},
}

var accountsEditCmd = &cobra.Command{
	Use:   "edit <id> key=value...",
	Short: "Edit transfer account fields",
	Example: `  transferdesk accounts edit 12 approve=true
  transferdesk accounts edit 12 payable_period_type=week payable_period_length=2`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		body, err := parseAssignments(args[1:])
		if err != nil {
			return err
		}
		return editAccount(cmd, id, body)
	},
}

var accountsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a transfer account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return editAccount(cmd, id, domain.Record{"approve": true})
	},
}

func editAccount(cmd *cobra.Command, id int64, body domain.Record) error {
	a, err := loggedIn(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	st, err := a.run(cmd.Context(), domain.EditTransferAccountRequest,
		domain.EditTransferAccountPayload{TransferAccountID: id, Body: body}, domain.FlowEditTransferAccount)
	if err != nil {
		return err
	}
	return a.printAccounts(st)
}

func (a *app) printAccounts(st store.State) error {
	accounts, err := st.TransferAccountList()
	if err != nil {
		return err
	}
	return a.print(tui.AccountsTable(accounts))
}

func init() {
	accountsListCmd.Flags().String("type", "", "Filter by account type, e.g. vendor or beneficiary")

	accountsCmd.AddCommand(accountsListCmd, accountsEditCmd, accountsApproveCmd)
	rootCmd.AddCommand(accountsCmd)
}
