package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kapu/post-reactors/internal/constants"
	"github.com/kapu/post-reactors/internal/validation"
)

var estimateCmd = &cobra.Command{
	Use:   "estimate <likers>",
	Short: "Prints the expected scrape duration for a reactor count.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		likers, err := strconv.Atoi(args[0])
		if err != nil || likers < 0 {
			return fmt.Errorf("likers must be a non-negative integer, got %q", args[0])
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "~%ds for %d reactors\n", validation.EstimateExecutionTime(likers), likers)
		if likers > constants.LinkedInLimits.MaxLikers {
			fmt.Fprintf(out, "LinkedIn only exposes the first %d reactors\n", constants.LinkedInLimits.MaxLikers)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(estimateCmd)
}
