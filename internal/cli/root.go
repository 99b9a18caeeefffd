// Package cli implements the bookworm command-line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bookworm/pkg/client"
	"bookworm/pkg/session"
)

var apiURL string

const defaultAPIURL = "http://localhost:8080"

var rootCmd = &cobra.Command{
	Use:   "bookworm",
	Short: "Share and browse book recommendations",
	Long: `bookworm is a command-line client for the BookWorm API.

Sign in once with "bookworm login"; the session is stored in your user
config directory and reused by every other command.

Environment Variables:
  BOOKWORM_API_URL       Backend API URL (default: http://localhost:8080)
  BOOKWORM_SESSION_FILE  Session file location (default: per-user config dir)`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides BOOKWORM_API_URL)")
}

func resolveAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("BOOKWORM_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

func newAPIClient() *client.Client {
	return client.NewClient(resolveAPIURL())
}

// newSession restores the stored session, if any.
func newSession(api *client.Client) (*session.Manager, error) {
	path := os.Getenv("BOOKWORM_SESSION_FILE")
	if path == "" {
		var err error
		path, err = session.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	m := session.NewManager(api, session.NewFileStorage(path), nil)
	m.CheckAuth()
	return m, nil
}

func requireSession(api *client.Client) (*session.Manager, error) {
	m, err := newSession(api)
	if err != nil {
		return nil, err
	}
	if m.Token() == "" {
		return nil, fmt.Errorf("not signed in; run \"bookworm login\" first")
	}
	return m, nil
}
