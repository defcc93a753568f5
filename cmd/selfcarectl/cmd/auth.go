package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"go.pilab.hu/selfcare/domain"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication for selfcarectl",
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in with an invoicing ID and save the session credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		state, err := app.manager.Bootstrap(ctx)
		if err != nil {
			return err
		}
		if state == domain.SessionAuthenticated {
			profile, _ := app.manager.Profile()
			fmt.Printf("Already logged in as %s (%s).\n", profile.Name, profile.InvoicingID)
			fmt.Print("Do you want to re-login? (yes/no): ")
			reader := bufio.NewReader(os.Stdin)
			confirm, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(confirm)) != "yes" {
				fmt.Println("Login cancelled.")
				return nil
			}
			app.manager.Logout(ctx)
		}

		fmt.Print("Enter invoicing ID: ")
		reader := bufio.NewReader(os.Stdin)
		identifier, _ := reader.ReadString('\n')
		identifier = strings.TrimSpace(identifier)

		fmt.Print("Enter password: ")
		bytePassword, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}

		if err := app.manager.Login(ctx, identifier, string(bytePassword)); err != nil {
			return fmt.Errorf("login failed: %w", err)
		}

		profile, _ := app.manager.Profile()
		fmt.Printf("Login successful. Logged in as: %s (ID: %s)\n", profile.Name, profile.InvoicingID)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and clear the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		app.manager.Logout(ctx)
		fmt.Println("Logged out. Stored credential cleared.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Validate the stored credential and show the active profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := app.manager.Bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		if state != domain.SessionAuthenticated {
			fmt.Println("Not logged in.")
			return nil
		}

		profile, _ := app.manager.Profile()
		fmt.Printf("Name:        %s\n", profile.Name)
		fmt.Printf("Invoicing ID: %s\n", profile.InvoicingID)
		fmt.Printf("Email:       %s\n", profile.Email)
		fmt.Printf("Package:     %s\n", profile.PackageName)
		fmt.Printf("Status:      %s\n", profile.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(whoamiCmd)
}
