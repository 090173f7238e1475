package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemamend/schemamend/internal/report"
)

var (
	reportOut       string
	reportFixScript bool
)

var reportCmd = &cobra.Command{
	Use:   "report [tables...]",
	Short: "Diagnose schema drift without changing anything",
	Long: `Inspect each table (all known tables when none are named) and print a
drift report, including the fix statements an operator could apply by hand.
The database is never modified.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		r, err := report.Generate(ctx, s.reader, s.reg, s.cfg.Database.Database, targetTables(args))
		if err != nil {
			return err
		}

		if reportFixScript {
			fmt.Print(r.FixScript())
			return nil
		}

		fmt.Print(r.FormatText())

		if reportOut != "" {
			if err := report.WriteJSON(r, reportOut); err != nil {
				return err
			}
			fmt.Printf("\nReport saved to: %s\n", reportOut)
		}
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportOut, "out", "", "write the report as JSON to this path")
	reportCmd.Flags().BoolVar(&reportFixScript, "fix-script", false, "print only the SQL fix script")
	rootCmd.AddCommand(reportCmd)
}
