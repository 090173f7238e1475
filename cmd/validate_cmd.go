package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var validateFix bool

var validateCmd = &cobra.Command{
	Use:   "validate [tables...]",
	Short: "Validate tables against their expected schemas",
	Long: `Compare the live columns of each table (all known tables when none are
named) against the expected schema and report missing columns and type
mismatches. With --fix, drift is repaired in place.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		tables := targetTables(args)
		if tables == nil {
			tables = s.reg.TableNames()
		}

		drifted := 0
		for _, table := range tables {
			res, err := s.orch.ValidateTableSchema(ctx, table, validateFix)
			if err != nil {
				return err
			}

			if res.Valid {
				fmt.Printf("%-20s OK\n", table)
				continue
			}
			drifted++
			fmt.Printf("%-20s DRIFT\n", table)
			for _, m := range res.MissingColumns {
				fmt.Printf("    missing column %s %s\n", m.Name, m.Type)
			}
			for _, m := range res.TypeMismatches {
				fmt.Printf("    column %s is %s, expected %s\n", m.Column, m.ActualType, m.ExpectedType)
			}
			for _, e := range res.Errors {
				fmt.Printf("    error: %s\n", e)
			}
			if len(res.FixedColumns) > 0 {
				fmt.Printf("    fixed: %v\n", res.FixedColumns)
			}
		}

		if drifted > 0 {
			return fmt.Errorf("%d table(s) with schema drift", drifted)
		}
		fmt.Println("\nAll tables valid.")
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "repair drift instead of only reporting it")
	rootCmd.AddCommand(validateCmd)
}
