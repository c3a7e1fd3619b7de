package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/docsearch/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the documentation index",
	Long: `Loads the index artifact and prints the best matching pages.

Pages are ranked with fuzzy and typo-tolerant matching on titles and
content. Headings inside each page that match the query are listed below
it as deep links.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of pages (0 uses search.limit)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := args[0]

	svc, err := searchService()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	// One-shot queries wait for the token map so they never run in fallback.
	if err := svc.Warm(ctx); err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	resp, err := svc.Search(ctx, query, domain.SearchOptions{Limit: searchLimit})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	outputSearchTable(cmd, resp)
	return nil
}

// searchResultJSON is the --json shape of one page.
type searchResultJSON struct {
	ID      int          `json:"id"`
	Title   string       `json:"title"`
	Path    string       `json:"path"`
	Score   float64      `json:"score"`
	Snippet string       `json:"snippet,omitempty"`
	Anchors []anchorJSON `json:"anchors,omitempty"`
}

type anchorJSON struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	out := struct {
		Query    string             `json:"query"`
		Strategy string             `json:"strategy"`
		Results  []searchResultJSON `json:"results"`
	}{
		Query:    resp.Session.Query,
		Strategy: string(resp.Strategy),
		Results: lo.Map(resp.Matches, func(m domain.Match, _ int) searchResultJSON {
			return searchResultJSON{
				ID:      m.Document.ID,
				Title:   m.Document.Title,
				Path:    m.Document.Path,
				Score:   m.PageScore,
				Snippet: m.Snippet.String(),
				Anchors: lo.Map(m.MatchingAnchors, func(a domain.Anchor, _ int) anchorJSON {
					return anchorJSON{Text: a.Text, URL: m.Document.Link(a)}
				}),
			}
		}),
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) {
	if len(resp.Matches) == 0 {
		cmd.Println("No results found.")
		return
	}

	plain, mark := highlighter(cmd.OutOrStdout())

	cmd.Printf("Results (%s):\n\n", resp.Strategy)
	for i := range resp.Matches {
		m := &resp.Matches[i]
		// Format: [N] Title (Score)
		title := m.Document.Title
		if title == "" {
			title = fmt.Sprintf("Document %d", m.Document.ID)
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, m.PageScore)
		cmd.Printf("      %s\n", m.Document.Path)
		if snippet := m.Snippet.Render(plain, mark); snippet != "" {
			cmd.Printf("      %s\n", snippet)
		}
		for _, a := range m.MatchingAnchors {
			cmd.Printf("      # %s  %s\n", a.Text, m.Document.Link(a))
		}
		cmd.Println()
	}
}

// highlighter returns snippet formatters. Highlights are styled only when
// w is a terminal.
func highlighter(w io.Writer) (plain, mark func(string) string) {
	identity := func(s string) string { return s }
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return identity, identity
	}
	style := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F59E0B"))
	return identity, func(s string) string { return style.Render(s) }
}
