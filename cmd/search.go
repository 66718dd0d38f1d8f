package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/cli"
	"github.com/trawldev/trawl/internal/query"
)

var (
	flagSearchCategories []string
	flagSearchProviders  []string
	flagSearchProjects   []string
	flagSearchProjQuery  string
	flagSearchLimit      int
	flagSearchOffset     int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search across all indexed transcripts",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVar(&flagSearchCategories, "category", nil, "Filter by category")
	searchCmd.Flags().StringSliceVar(&flagSearchProviders, "provider", nil, "Filter by provider")
	searchCmd.Flags().StringSliceVar(&flagSearchProjects, "project", nil, "Filter by project id")
	searchCmd.Flags().StringVar(&flagSearchProjQuery, "project-query", "", "Substring match on project name or path")
	searchCmd.Flags().IntVar(&flagSearchLimit, "limit", 0, "Maximum results")
	searchCmd.Flags().IntVar(&flagSearchOffset, "offset", 0, "Result offset")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(_ *cobra.Command, args []string) error {
	categories, err := parseCategories(flagSearchCategories)
	if err != nil {
		return err
	}
	providers, err := parseProviders(flagSearchProviders)
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

	resp, err := query.New(st).Search(query.SearchRequest{
		Query:        strings.Join(args, " "),
		Categories:   categories,
		Providers:    providers,
		ProjectIDs:   flagSearchProjects,
		ProjectQuery: flagSearchProjQuery,
		Limit:        flagSearchLimit,
		Offset:       flagSearchOffset,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	if resp.TotalCount == 0 {
		fmt.Println("  No matches.")
		return nil
	}

	fmt.Printf("  %s matches · %s\n\n",
		cli.FormatNumber(int64(resp.TotalCount)),
		cli.RenderHistogram(resp.CategoryCounts))

	for _, hit := range resp.Results {
		title := hit.SessionTitle
		if title == "" {
			title = hit.SessionID
		}
		fmt.Printf("  %s · %s · [%s] %s\n",
			hit.ProjectName,
			cli.Truncate(title, 40),
			cli.RenderCategory(hit.Category),
			cli.FormatTime(hit.CreatedAt))
		fmt.Printf("    %s\n\n", cli.HighlightSnippet(hit.Snippet))
	}
	return nil
}
