package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/trawldev/trawl/internal/cli"
	"github.com/trawldev/trawl/internal/query"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions <project-id>",
	Short: "List a project's sessions",
	Args:  cobra.ExactArgs(1),
	RunE:  runSessions,
}

func init() {
	rootCmd.AddCommand(sessionsCmd)
}

func runSessions(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	resp, err := query.New(st).Sessions(query.SessionsRequest{ProjectID: args[0]})
	if err != nil {
		return err
	}

	if flagJSON {
		return printJSON(resp)
	}
	if len(resp.Sessions) == 0 {
		fmt.Println("  No sessions for this project.")
		return nil
	}

	t := cli.Table{
		Title:   "Sessions",
		Headers: []string{"ID", "Title", "Started", "Duration", "Msgs", "Tokens In/Out"},
	}
	for _, s := range resp.Sessions {
		title := s.Title
		if s.IsSubagent {
			title = "[subagent] " + title
		}
		t.Rows = append(t.Rows, []string{
			cli.Truncate(s.ID, 40),
			cli.Truncate(title, 44),
			cli.FormatTime(s.StartedAt),
			cli.FormatDuration(s.DurationMs),
			cli.FormatNumber(int64(s.MessageCount)),
			cli.FormatTokens(s.TokenInput) + "/" + cli.FormatTokens(s.TokenOutput),
		})
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}
