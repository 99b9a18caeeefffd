package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var registerCmd = &cobra.Command{
	Use:   "register <username> <email>",
	Short: "Create an account and sign in",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		api := newAPIClient()
		m, err := newSession(api)
		if err != nil {
			return err
		}
		if err := m.Register(ctx, args[0], args[1], password); err != nil {
			return err
		}
		fmt.Printf("Welcome, %s!\n", m.User().Username)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login <email>",
	Short: "Sign in with an existing account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		password, err := promptPassword("Password: ")
		if err != nil {
			return err
		}
		api := newAPIClient()
		m, err := newSession(api)
		if err != nil {
			return err
		}
		if err := m.Login(ctx, args[0], password); err != nil {
			return err
		}
		fmt.Printf("Signed in as %s\n", m.User().Username)
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and revoke the session token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		api := newAPIClient()
		m, err := newSession(api)
		if err != nil {
			return err
		}
		m.Logout(ctx)
		fmt.Println("Signed out")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api := newAPIClient()
		m, err := requireSession(api)
		if err != nil {
			return err
		}
		u := m.User()
		fmt.Printf("%s <%s>\n", u.Username, u.Email)
		return nil
	},
}

func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(raw), nil
}

func init() {
	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)
}
