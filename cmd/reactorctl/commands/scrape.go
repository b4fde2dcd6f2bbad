package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kapu/post-reactors/internal/app"
	"github.com/kapu/post-reactors/internal/domain"
)

var (
	scrapeURLs    []string
	scrapeProject int64
	scrapeJSON    bool
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape --project <id> --url <post url> [--url <post url>...]",
	Short: "Scrapes the reactors of one or more posts into a project.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			out := cmd.OutOrStdout()

			entries, unsubscribe := c.Logs.Subscribe()
			defer unsubscribe()
			go func() {
				for entry := range entries {
					fmt.Fprintf(cmd.ErrOrStderr(), "[%s] %s\n", entry.Type, entry.Message)
				}
			}()

			if len(scrapeURLs) == 1 {
				result, err := c.Scraper.Scrape(ctx, scrapeURLs[0], scrapeProject)
				if err != nil {
					return err
				}
				return printResult(out, result)
			}

			items, err := c.Scraper.ScrapeBatch(ctx, scrapeURLs, scrapeProject)
			if err != nil {
				return err
			}
			failed := 0
			for _, item := range items {
				if item.Error != nil {
					failed++
					fmt.Fprintf(out, "%s: %s (%s)\n", item.PostURL, item.Error.Message, item.Error.Kind)
					continue
				}
				if err := printResult(out, item.Result); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d posts failed", failed, len(items))
			}
			return nil
		})
	},
}

func printResult(out io.Writer, result *domain.ScrapeResult) error {
	if scrapeJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	fmt.Fprintf(out, "post %d: %d profiles in %d attempts\n", result.PostID, len(result.Profiles), result.Attempts)
	for _, p := range result.Profiles {
		fmt.Fprintf(out, "  %s\t%s\t%s\n", domain.Deref(p.Name), domain.Deref(p.Headline), p.ProfileURL)
	}
	return nil
}

func init() {
	scrapeCmd.Flags().StringArrayVar(&scrapeURLs, "url", nil, "LinkedIn post URL (repeatable)")
	scrapeCmd.Flags().Int64Var(&scrapeProject, "project", 0, "project id to store results under")
	scrapeCmd.Flags().BoolVar(&scrapeJSON, "json", false, "print results as JSON")
	_ = scrapeCmd.MarkFlagRequired("url")
	_ = scrapeCmd.MarkFlagRequired("project")
	rootCmd.AddCommand(scrapeCmd)
}
