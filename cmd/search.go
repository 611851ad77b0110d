package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rubiojr/wsearch/pkg/search"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1).
			Margin(0, 0, 1, 0)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			Margin(1, 0, 0, 0)

	resultStyle = lipgloss.NewStyle().
			Bold(true).
			PaddingLeft(2)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			PaddingLeft(4)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true).
			Margin(1, 0)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("208"))
)

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search a workspace",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:     "workspace",
				Usage:    "Workspace id",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "user",
				Usage:    "Email of the user searching",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "query",
				Usage:    "Search query",
				Required: true,
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of results (defaults to search.default_limit)",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of results to skip",
			},
			&cli.StringFlag{
				Name:  "type",
				Usage: "Search a single type, e.g. database_table",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print results as JSON",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			return searchWorkspace(ctx, c, os.Stdout)
		},
	}
}

type searchOutput struct {
	Results []search.SearchResult `json:"results"`
	HasMore bool                  `json:"has_more"`
}

func searchWorkspace(ctx context.Context, c *cli.Command, w io.Writer) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	query := strings.TrimSpace(c.String("query"))
	if query == "" || len([]rune(query)) > cfg.Search.MaxQueryLength {
		return fmt.Errorf("query must have between 1 and %d characters", cfg.Search.MaxQueryLength)
	}
	limit := c.Int("limit")
	if limit == 0 {
		limit = cfg.Search.DefaultLimit
	}
	if limit < 1 || limit > cfg.Search.MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d", cfg.Search.MaxLimit)
	}
	offset := c.Int("offset")
	if offset < 0 {
		return fmt.Errorf("offset must not be negative")
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore(store)

	handler, err := newSearchHandler(store, cfg)
	if err != nil {
		return err
	}

	user, err := store.GetUserByEmail(ctx, c.String("user"))
	if err != nil {
		return err
	}
	workspace, err := store.GetWorkspace(ctx, int64(c.Int("workspace")))
	if err != nil {
		return err
	}

	var out searchOutput
	var degraded []search.TypeError
	if typeName := c.String("type"); typeName != "" {
		// One extra result tells whether another page exists.
		out.Results, err = handler.SearchType(ctx, user, workspace, typeName, query, limit+1, offset)
		if err != nil {
			return err
		}
		if len(out.Results) > limit {
			out.Results = out.Results[:limit]
			out.HasMore = true
		}
	} else {
		resp, err := handler.SearchWorkspace(ctx, user, workspace, query, limit, offset)
		if err != nil {
			return err
		}
		out = searchOutput{Results: resp.Results, HasMore: resp.HasMore}
		degraded = resp.Degraded
	}
	if out.Results == nil {
		out.Results = []search.SearchResult{}
	}

	if c.Bool("json") {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	renderResults(w, workspace, query, out, degraded)
	return nil
}

// renderResults prints results grouped by consecutive type, in result order.
func renderResults(w io.Writer, workspace search.Workspace, query string, out searchOutput, degraded []search.TypeError) {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("🔍 %q in %s", query, workspace.Name)))

	if len(out.Results) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("No results found"))
	}

	caser := cases.Title(language.English)
	current := ""
	for _, r := range out.Results {
		if r.Type != current {
			current = r.Type
			fmt.Fprintln(w, headerStyle.Render(caser.String(strings.ReplaceAll(r.Type, "_", " "))))
		}
		fmt.Fprintln(w, resultStyle.Render(fmt.Sprintf("%s  #%s", r.Title, r.ID)))
		if r.Subtitle != nil {
			fmt.Fprintln(w, metaStyle.Render(*r.Subtitle))
		}
		if r.Description != nil && *r.Description != "" {
			fmt.Fprintln(w, metaStyle.Render(*r.Description))
		}
	}

	if out.HasMore {
		fmt.Fprintln(w, noDataStyle.Render("More results available, use --offset to see them"))
	}
	for _, te := range degraded {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("⚠ %s results are missing: %v", te.Type, te.Err)))
	}
}
