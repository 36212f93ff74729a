package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

var searchTargets bool

var searchCmd = &cobra.Command{
	Use:   "search [term]",
	Short: "Search short links, or targets with --targets",
	Long: `Search link paths containing term. With --targets, search target URLs
instead and print each one with the links pointing to it.

Examples:
  links-cli search docs
  links-cli search --targets example.com`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var term string
		if len(args) == 1 {
			term = args[0]
		}
		out := cmd.OutOrStdout()

		if !searchTargets {
			paths, err := service.SearchShortLinks(cmd.Context(), term)
			if err != nil {
				return err
			}
			for _, p := range paths {
				fmt.Fprintln(out, p)
			}
			return nil
		}

		found, err := service.SearchTargetLinks(cmd.Context(), term)
		if err != nil {
			return err
		}
		targets := make([]string, 0, len(found))
		for target := range found {
			targets = append(targets, target)
		}
		slices.Sort(targets)
		for _, target := range targets {
			fmt.Fprintln(out, target)
			for _, p := range found[target] {
				fmt.Fprintf(out, "  %s\n", p)
			}
		}
		return nil
	},
}

var completeCmd = &cobra.Command{
	Use:   "complete <prefix>",
	Short: "List links completing a path prefix",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := service.CompleteLink(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().BoolVarP(&searchTargets, "targets", "t", false, "search target URLs")

	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(completeCmd)
}
