package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/cli"
	"github.com/trawldev/trawl/internal/query"
)

var (
	flagBookmarkCategories []string
	flagBookmarkQuery      string
)

var bookmarksCmd = &cobra.Command{
	Use:   "bookmarks <project-id>",
	Short: "List a project's bookmarked messages",
	Args:  cobra.ExactArgs(1),
	RunE:  runBookmarks,
}

var bookmarkToggleCmd = &cobra.Command{
	Use:   "toggle <project-id> <session-id> <message-source-id>",
	Short: "Pin a message, or unpin it when already pinned",
	Args:  cobra.ExactArgs(3),
	RunE:  runBookmarkToggle,
}

func init() {
	bookmarksCmd.Flags().StringSliceVar(&flagBookmarkCategories, "category", nil, "Filter by category")
	bookmarksCmd.Flags().StringVarP(&flagBookmarkQuery, "query", "q", "", "Substring match on message content")
	bookmarksCmd.AddCommand(bookmarkToggleCmd)
	rootCmd.AddCommand(bookmarksCmd)
}

func runBookmarks(_ *cobra.Command, args []string) error {
	categories, err := parseCategories(flagBookmarkCategories)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	resp, err := query.New(st).Bookmarks(query.BookmarksRequest{
		ProjectID:  args[0],
		Categories: categories,
		Query:      flagBookmarkQuery,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	if resp.TotalCount == 0 {
		fmt.Println("  No bookmarks for this project.")
		return nil
	}

	summary := fmt.Sprintf("  %d of %d bookmarks · %s",
		resp.FilteredCount, resp.TotalCount,
		cli.RenderHistogram(resp.CategoryCounts))
	if resp.OrphanCount > 0 {
		summary += fmt.Sprintf(" · %d orphaned", resp.OrphanCount)
	}
	fmt.Println(summary)
	fmt.Println()

	for _, hit := range resp.Results {
		if hit.Bookmark.IsOrphaned {
			fmt.Printf("  %s  %s (message no longer indexed)\n",
				cli.RenderOrphaned(), hit.Bookmark.MessageSourceID)
			continue
		}
		fmt.Printf("  [%s] %s · %s\n    %s\n",
			cli.RenderCategory(hit.Category),
			cli.Truncate(hit.SessionTitle, 40),
			cli.FormatTime(hit.MessageAt),
			cli.Truncate(hit.Content, 100))
	}
	return nil
}

func runBookmarkToggle(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	resp, err := query.New(st).ToggleBookmark(query.ToggleBookmarkRequest{
		ProjectID:       args[0],
		SessionID:       args[1],
		MessageSourceID: args[2],
	})
	if err != nil {
		return err
	}

	if resp.Bookmarked {
		fmt.Println("  Bookmarked.")
	} else {
		fmt.Println("  Bookmark removed.")
	}
	return nil
}
