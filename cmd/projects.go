package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/cli"
	"github.com/trawldev/trawl/internal/query"
)

var (
	flagProjectProviders []string
	flagProjectQuery     string
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List indexed projects",
	RunE:  runProjects,
}

func init() {
	projectsCmd.Flags().StringSliceVar(&flagProjectProviders, "provider", nil, "Filter by provider (claude, codex, gemini)")
	projectsCmd.Flags().StringVarP(&flagProjectQuery, "query", "q", "", "Substring match on project name or path")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(_ *cobra.Command, _ []string) error {
	providers, err := parseProviders(flagProjectProviders)
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

	resp, err := query.New(st).Projects(query.ProjectsRequest{
		Providers: providers,
		Query:     flagProjectQuery,
	})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	if len(resp.Projects) == 0 {
		fmt.Println("  No projects indexed. Run `trawl refresh` first.")
		return nil
	}

	t := cli.Table{
		Title:   "Projects",
		Headers: []string{"ID", "Name", "Provider", "Sessions", "Last Activity", "Path"},
	}
	for _, p := range resp.Projects {
		t.Rows = append(t.Rows, []string{
			p.ID,
			cli.Truncate(p.Name, 28),
			string(p.Provider),
			cli.FormatNumber(int64(p.SessionCount)),
			cli.FormatTime(p.LastActivity),
			cli.Truncate(p.Path, 48),
		})
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}
