package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/schemamend/schemamend/internal/registry"
)

var registryExportOut string

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Work with the expected-schema registry",
}

var registryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the compiled-in expected schemas to a YAML file",
	Long: `Dump the built-in expected schemas as a YAML file that can be edited
and pointed at via registry.path in the config to overlay or extend them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := registry.Default()
		if err := reg.WriteYAML(registryExportOut); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", registryExportOut)
		return nil
	},
}

func init() {
	registryExportCmd.Flags().StringVar(&registryExportOut, "out", "schemas.yaml", "output file")
	registryCmd.AddCommand(registryExportCmd)
	rootCmd.AddCommand(registryCmd)
}
