package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kapu/post-reactors/internal/app"
)

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List or create projects.",
}

var projectsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists every project, oldest first.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			projects, err := c.Repo.ListProjects(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(projects) == 0 {
				fmt.Fprintln(out, "no projects")
				return nil
			}
			for _, p := range projects {
				fmt.Fprintf(out, "%d\t%s\t%s\n", p.ID, p.Name, p.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		})
	},
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Creates a project.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := strings.Join(args, " ")
		return withContainer(cmd, func(ctx context.Context, c *app.Container) error {
			project, err := c.Repo.CreateProject(ctx, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created project %d (%s)\n", project.ID, project.Name)
			return nil
		})
	},
}

func init() {
	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd)
	rootCmd.AddCommand(projectsCmd)
}
