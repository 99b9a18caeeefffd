package cli

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
)

var postRating int

var postCmd = &cobra.Command{
	Use:   "post <title> <caption> <cover-image>",
	Short: "Share a book recommendation",
	Long:  `Post a recommendation with a cover image read from a local file.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		api := newAPIClient()
		m, err := requireSession(api)
		if err != nil {
			return err
		}
		imageData, err := encodeImageFile(args[2])
		if err != nil {
			return err
		}
		book, err := api.CreateBook(ctx, m.Token(), args[0], args[1], postRating, imageData)
		if err != nil {
			return err
		}
		fmt.Printf("Posted %q (%s)\n", book.Title, book.ID)
		return nil
	},
}

var mineCmd = &cobra.Command{
	Use:   "mine",
	Short: "List your own recommendations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		api := newAPIClient()
		m, err := requireSession(api)
		if err != nil {
			return err
		}
		books, err := api.ListMyBooks(ctx, m.Token())
		if err != nil {
			return err
		}
		if len(books) == 0 {
			fmt.Println("No recommendations yet.")
			return nil
		}
		for _, b := range books {
			fmt.Printf("%s  %s (%d/5)\n", b.ID, b.Title, b.Rating)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <book-id>",
	Short: "Delete one of your recommendations",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		api := newAPIClient()
		m, err := requireSession(api)
		if err != nil {
			return err
		}
		if err := api.DeleteBook(ctx, m.Token(), args[0]); err != nil {
			return err
		}
		fmt.Println("Book deleted")
		return nil
	},
}

// encodeImageFile reads a local image and produces the base64 data URI
// the API expects.
func encodeImageFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "image/jpeg"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

func init() {
	postCmd.Flags().IntVar(&postRating, "rating", 5, "Rating from 1 to 5")
	rootCmd.AddCommand(postCmd)
	rootCmd.AddCommand(mineCmd)
	rootCmd.AddCommand(deleteCmd)
}
