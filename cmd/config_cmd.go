package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/schemamend/schemamend/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long:  `View, validate, and manage schemamend configuration.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := &config.Config{
			Version: config.CurrentVersion,
			Database: config.DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				Database: "finance",
				Username: "postgres",
				Password: "${ENV:PGPASSWORD}",
			},
		}
		if err := cfg.Save(cfgFile); err != nil {
			return err
		}

		path := cfgFile
		if path == "" {
			path = config.ExpandHome(config.DefaultPath)
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current config (secrets masked)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(context.Background(), cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		fmt.Println("Current configuration:")
		fmt.Println()
		fmt.Printf("  Database:\n")
		fmt.Printf("    Host:           %s\n", cfg.Database.Host)
		fmt.Printf("    Port:           %d\n", cfg.Database.Port)
		fmt.Printf("    Database:       %s\n", cfg.Database.Database)
		fmt.Printf("    Schema:         %s\n", cfg.Database.Schema)
		fmt.Printf("    Username:       %s\n", cfg.Database.Username)
		fmt.Printf("    Password:       %s\n", maskSecret(cfg.Database.Password))
		fmt.Printf("    Max Conns:      %d\n", cfg.Database.MaxConnections)
		if cfg.Registry.Path != "" {
			fmt.Println()
			fmt.Printf("  Registry overlay: %s\n", cfg.Registry.Path)
		}

		return nil
	},
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(context.Background(), cfgFile)
		if err != nil {
			return fmt.Errorf("config invalid: %w", err)
		}

		var errors []string

		if cfg.Database.Host == "" {
			errors = append(errors, "database.host is required")
		}
		if cfg.Database.Database == "" {
			errors = append(errors, "database.database is required")
		}
		if cfg.Database.Username == "" {
			errors = append(errors, "database.username is required")
		}

		if len(errors) > 0 {
			fmt.Println("Validation errors:")
			for _, e := range errors {
				fmt.Printf("  - %s\n", e)
			}
			return fmt.Errorf("%d validation error(s)", len(errors))
		}

		fmt.Println("Configuration is valid.")
		return nil
	},
}

func maskSecret(s string) string {
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}
