package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create missing tables from the expected schemas",
	Long: `Create every known table that does not exist yet, with its declared
columns, a surrogate id key, and a created_at timestamp. Existing tables are
left untouched; run "schemamend fix" to repair their drift.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		s, err := newSession(ctx)
		if err != nil {
			return err
		}
		defer s.Close()

		created := 0
		for _, table := range s.reg.TableNames() {
			exists, err := s.reader.TableExists(ctx, table)
			if err != nil {
				return fmt.Errorf("checking table %q: %w", table, err)
			}
			if exists {
				fmt.Printf("%-20s exists\n", table)
				continue
			}

			stmt, err := s.reg.CreateTableSQL(table)
			if err != nil {
				return err
			}
			if _, err := s.pool.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("creating table %q: %w", table, err)
			}
			s.logger.Info("created table", "table", table)
			fmt.Printf("%-20s created\n", table)
			created++
		}

		fmt.Printf("\n%d table(s) created.\n", created)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initDBCmd)
}
