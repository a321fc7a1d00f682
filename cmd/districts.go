package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rcview/rcview-cli/internal/districts"
	"github.com/rcview/rcview-cli/pkg/portal"
)

var districtsCmd = &cobra.Command{
	Use:   "districts",
	Short: "Build incident district boundaries",
}

var districtsBuildCmd = &cobra.Command{
	Use:   "build DEFINITION_FILE",
	Short: "Dissolve counties, chapters, or regions into district polygons",
	Long: `Reads a YAML definition listing the units within each district, queries
their generalized boundaries, and dissolves them into one polygon per
district. With --layer-url the result replaces the contents of an existing
districts layer; otherwise the district attributes are printed.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		def, err := districts.LoadDefinition(args[0])
		if err != nil {
			return err
		}

		client, err := newPortalClient()
		if err != nil {
			return err
		}

		units := portal.NewFeatureLayer(client, def.Type.LayerURL())
		built, err := districts.NewBuilder(units, def).Build(ctx)
		if err != nil {
			return err
		}

		for _, d := range built {
			fmt.Printf("%s: %s\n", d.Name, strings.Join(d.Units, ", "))
			if len(d.Missing) > 0 {
				fmt.Printf("  not found: %s\n", strings.Join(d.Missing, ", "))
			}
		}

		layerURL, _ := cmd.Flags().GetString("layer-url")
		if layerURL == "" {
			return nil
		}

		target := portal.NewFeatureLayer(client, layerURL)
		if err := districts.Publish(ctx, target, built); err != nil {
			return err
		}
		fmt.Println("Districts layer updated")
		return nil
	},
}

func init() {
	districtsBuildCmd.Flags().String("layer-url", "", "feature layer to replace with the built districts")
	districtsCmd.AddCommand(districtsBuildCmd)
	rootCmd.AddCommand(districtsCmd)
}
