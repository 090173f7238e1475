package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemamend/schemamend/internal/lock"
)

var fixConcurrency int

var fixCmd = &cobra.Command{
	Use:   "fix [tables...]",
	Short: "Repair schema drift",
	Long: `Bring each table (all known tables when none are named) into line with
its expected schema: create it if absent, add missing columns, and convert
mismatched column types. A PID lock ensures only one repair pass runs per
host at a time.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		if err := lock.Acquire(""); err != nil {
			return err
		}
		defer lock.Release("")

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		outcomes := s.orch.ReconcileAll(ctx, targetTables(args), fixConcurrency)

		failed := 0
		for _, o := range outcomes {
			switch {
			case o.Err != nil:
				failed++
				fmt.Printf("%-20s ERROR: %v\n", o.Table, o.Err)
			case !o.Valid:
				failed++
				fmt.Printf("%-20s STILL INVALID\n", o.Table)
			default:
				fmt.Printf("%-20s OK\n", o.Table)
			}
		}

		if recs := s.orch.Ledger().Records(); len(recs) > 0 {
			fmt.Println("\nType conversions performed:")
			for _, r := range recs {
				fmt.Printf("    %s.%s %s -> %s (%s)\n",
					r.Table, r.Column, r.FromType, r.ToType, r.Method)
			}
		}

		if failed > 0 {
			return fmt.Errorf("%d table(s) could not be repaired", failed)
		}
		fmt.Println("\nAll tables valid.")
		return nil
	},
}

func init() {
	fixCmd.Flags().IntVar(&fixConcurrency, "concurrency", 4, "tables repaired in parallel")
	rootCmd.AddCommand(fixCmd)
}
