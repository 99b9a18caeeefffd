package cli

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"bookworm/internal/tui"
	"bookworm/pkg/feed"
)

var feedPageLimit int

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Browse the shared feed interactively",
	Long:  `Open the feed in an interactive terminal view. Scroll past the bottom to pull the next page, refresh with r, delete your own posts with d.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		api := newAPIClient()
		m, err := requireSession(api)
		if err != nil {
			return err
		}
		sync := feed.New(api, m, feed.Options{PageLimit: feedPageLimit})
		program := tea.NewProgram(tui.NewFeedView(sync), tea.WithAltScreen())
		_, err = program.Run()
		return err
	},
}

func init() {
	feedCmd.Flags().IntVar(&feedPageLimit, "limit", feed.DefaultPageLimit, "Posts fetched per page")
	rootCmd.AddCommand(feedCmd)
}
