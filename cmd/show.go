package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/cli"
	"github.com/trawldev/trawl/internal/query"
)

var (
	flagShowPage       int
	flagShowPageSize   int
	flagShowCategories []string
	flagShowQuery      string
	flagShowFocus      string
)

var showCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show one session's messages",
	Long: "Pages through a session's messages. With --focus the page containing\n" +
		"the given message source id is selected automatically.",
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().IntVar(&flagShowPage, "page", 0, "Zero-based page index")
	showCmd.Flags().IntVar(&flagShowPageSize, "page-size", 0, "Messages per page")
	showCmd.Flags().StringSliceVar(&flagShowCategories, "category", nil, "Filter by category")
	showCmd.Flags().StringVarP(&flagShowQuery, "query", "q", "", "Substring match on message content")
	showCmd.Flags().StringVar(&flagShowFocus, "focus", "", "Land on the page containing this message source id")
	rootCmd.AddCommand(showCmd)
}

func runShow(_ *cobra.Command, args []string) error {
	categories, err := parseCategories(flagShowCategories)
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

	resp, err := query.New(st).SessionDetail(query.SessionDetailRequest{
		SessionID:     args[0],
		Page:          flagShowPage,
		PageSize:      flagShowPageSize,
		Categories:    categories,
		Query:         flagShowQuery,
		FocusSourceID: flagShowFocus,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}

	title := resp.Session.Title
	if title == "" {
		title = resp.Session.ID
	}
	fmt.Println(cli.RenderTitle(cli.Truncate(title, 50)))
	fmt.Printf("  %s · %s · %s\n",
		resp.Session.Provider,
		cli.FormatTime(resp.Session.StartedAt),
		cli.FormatDuration(resp.Session.DurationMs))
	fmt.Printf("  %s\n\n", cli.RenderHistogram(resp.CategoryCounts))

	for i, m := range resp.Messages {
		marker := "  "
		if resp.Focus != nil && i == resp.Focus.IndexInPage {
			marker = "> "
		}
		fmt.Printf("%s[%s] %s  %s\n", marker,
			cli.RenderCategory(m.Category),
			cli.FormatTime(m.CreatedAt),
			cli.Truncate(m.Content, 100))
	}

	pages := (resp.TotalCount + resp.PageSize - 1) / resp.PageSize
	fmt.Printf("\n  Page %d/%d · %s messages\n",
		resp.Page+1, max(pages, 1), cli.FormatNumber(int64(resp.TotalCount)))
	return nil
}
