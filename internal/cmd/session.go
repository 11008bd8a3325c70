package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// sessionCmd represents the session parent command
var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or forget the saved webchat session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved webchat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		saved, ok := store.Load()
		if !ok {
			fmt.Fprintln(out, "No saved session.")
			return nil
		}
		fmt.Fprintf(out, "Session: %s\n", saved.SessionID)
		fmt.Fprintf(out, "Visitor: %s\n", saved.VisitorName)
		return nil
	},
}

var sessionClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget the saved webchat session",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openSessionStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "🔄 Session cleared.")
		return nil
	},
}

// brandingCmd prints the tenant branding served by the backend.
var brandingCmd = &cobra.Command{
	Use:   "branding",
	Short: "Show the tenant branding",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newAPIClient().Branding(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Company:   %s\n", b.CompanyName)
		fmt.Fprintf(out, "Colors:    %s / %s\n", b.PrimaryColor, b.SecondaryColor)
		fmt.Fprintf(out, "Logo:      %s\n", b.LogoURL)
		fmt.Fprintf(out, "Welcome:   %s\n", b.WelcomeText)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(brandingCmd)
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionClearCmd)
}
