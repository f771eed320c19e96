package main

import (
	"errors"
	"fmt"

	"github.com/aretw0/transferdesk/internal/presentation/graph"
	"github.com/aretw0/transferdesk/internal/presentation/tui"
	"github.com/aretw0/transferdesk/pkg/domain"
	"github.com/spf13/cobra"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and store the session token",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		username, _ := cmd.Flags().GetString("username")
		if username == "" {
			if username, err = prompt(cmd, "Email: ", false); err != nil {
				return err
			}
		}
		password, err := prompt(cmd, "Password: ", true)
		if err != nil {
			return err
		}

		st, err := a.run(cmd.Context(), domain.LoginRequest,
			domain.LoginCredentials{Username: username, Password: password}, domain.FlowLogin)
		if err != nil {
			return err
		}

		if st.Auth == domain.StateTfaPending {
			if err := a.print(tui.Summary(st)); err != nil {
				return err
			}
			if st.Challenge != nil && st.Challenge.Message != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), st.Challenge.Message)
			}
			otp, _ := cmd.Flags().GetString("otp")
			if otp == "" {
				if otp, err = prompt(cmd, "Validation code: ", false); err != nil {
					return err
				}
			}
			remember, _ := cmd.Flags().GetBool("remember")
			st, err = a.run(cmd.Context(), domain.ValidateTFARequest,
				domain.NewTFAPayload(otp, remember), domain.FlowValidateTFA)
			if err != nil {
				return err
			}
		}

		if st.Auth != domain.StateLoggedIn {
			return errors.New("login did not complete")
		}
		tokens, err := a.console.Tokens().Load(cmd.Context())
		if err != nil {
			return err
		}
		return a.print(tui.Summary(st) + "\n" + tui.StoredTokens(tokens))
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Revoke the session and clear stored tokens",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.console.Do(cmd.Context(), domain.Logout, nil); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Logged out.")
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register <email>",
	Short: "Register a new administrator account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		password, err := prompt(cmd, "Password: ", true)
		if err != nil {
			return err
		}
		confirm, err := prompt(cmd, "Confirm password: ", true)
		if err != nil {
			return err
		}
		if confirm == "" {
			return errors.New("please confirm the password")
		}

		st, err := a.run(cmd.Context(), domain.RegisterRequest, domain.RegisterPayload{
			Username:        args[0],
			Password:        password,
			ConfirmPassword: confirm,
		}, domain.FlowRegister)
		if err != nil {
			return err
		}
		if st.Auth == domain.StateLoggedIn {
			return a.print(tui.Summary(st))
		}
		fmt.Fprintln(a.out, "Registered. Check your inbox to activate the account.")
		return nil
	},
}

var activateCmd = &cobra.Command{
	Use:   "activate <token>",
	Short: "Activate an account from the emailed token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st, err := a.run(cmd.Context(), domain.ActivateRequest,
			domain.ActivatePayload{ActivationToken: args[0]}, domain.FlowActivate)
		if err != nil {
			return err
		}
		tokens, err := a.console.Tokens().Load(cmd.Context())
		if err != nil {
			return err
		}
		return a.print(tui.Summary(st) + "\n" + tui.StoredTokens(tokens))
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a forgotten password",
}

var resetRequestCmd = &cobra.Command{
	Use:   "request <email>",
	Short: "Email a password reset link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.run(cmd.Context(), domain.RequestResetRequest,
			domain.ResetEmailPayload{Email: args[0]}, domain.FlowRequestReset); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "If the address is registered, a reset link is on its way.")
		return nil
	},
}

var resetPasswordCmd = &cobra.Command{
	Use:   "password",
	Short: "Set a new password with a reset token or the current password",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		token, _ := cmd.Flags().GetString("token")
		p := domain.ResetPasswordPayload{ResetPasswordToken: token}
		if token == "" {
			if p.OldPassword, err = prompt(cmd, "Current password: ", true); err != nil {
				return err
			}
		}
		if p.NewPassword, err = prompt(cmd, "New password: ", true); err != nil {
			return err
		}

		if _, err := a.run(cmd.Context(), domain.ResetPasswordRequest, p, domain.FlowResetPassword); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "Password updated.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		st := a.console.State()
		if g, _ := cmd.Flags().GetBool("graph"); g {
			fmt.Fprint(a.out, graph.GenerateMermaid(graph.AuthTransitions, &graph.Overlay{Current: st.Auth}))
			return nil
		}
		tokens, err := a.console.Tokens().Load(cmd.Context())
		if err != nil {
			return err
		}
		return a.print(tui.Summary(st) + "\n" + tui.StoredTokens(tokens))
	},
}

func init() {
	loginCmd.Flags().StringP("username", "u", "", "Account email")
	loginCmd.Flags().String("otp", "", "Two-factor validation code")
	loginCmd.Flags().Bool("remember", false, "Remember this computer for two-factor authentication")
	statusCmd.Flags().Bool("graph", false, "Print the authentication state machine as a Mermaid diagram")
	resetPasswordCmd.Flags().String("token", "", "Reset token from the emailed link")

	resetCmd.AddCommand(resetRequestCmd, resetPasswordCmd)
	rootCmd.AddCommand(loginCmd, logoutCmd, registerCmd, activateCmd, resetCmd, statusCmd)
}
