package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ivlev/cyoaseg/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report [dir]",
	Short: "Summarise the latest result found below dir (default: output)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "output"
		if len(args) == 1 {
			root = args[0]
		}
		path, err := report.FindLatestResult(root)
		if err != nil {
			return err
		}
		result, err := report.ReadResult(path)
		if err != nil {
			return err
		}
		report.PrintSummary(os.Stdout, result)
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the build version",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("cyoaseg %s\n", buildVersion)
	},
}
