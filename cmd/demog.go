package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rcview/rcview-cli/internal/demographics"
	"github.com/rcview/rcview-cli/pkg/portal"
)

var demogCmd = &cobra.Command{
	Use:   "demog",
	Short: "Census demographics for portal areas",
}

var demogSummarizeCmd = &cobra.Command{
	Use:   "summarize LAYER_URL",
	Short: "Summarize population and housing within area polygons",
	Long: `Queries census blocks intersecting each polygon of an areas layer,
totals population and housing units, and writes the configured method's
counts back to the layer. The layer needs integer population and housing
fields, a double area_sq_mi field, and a string method field, and must be
editable by the signed-in user.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("demographics"); err != nil {
			return err
		}

		methodStr, _ := cmd.Flags().GetString("method")
		if methodStr == "" {
			methodStr = cfg.Demographics.Method
		}
		method, err := demographics.ParseMethod(methodStr)
		if err != nil {
			return err
		}

		where, _ := cmd.Flags().GetString("where")
		report, _ := cmd.Flags().GetString("report")
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		client, err := newPortalClient()
		if err != nil {
			return err
		}

		areas := portal.NewFeatureLayer(client, args[0])
		blocks := portal.NewFeatureLayer(client, cfg.Demographics.BlocksLayerURL)

		surveyor := demographics.NewSurveyor(areas,
			demographics.WithBlocksLayer(blocks),
			demographics.WithMethod(method),
			demographics.WithSpatialReference(cfg.Demographics.SpatialReference),
			demographics.WithConcurrency(cfg.Demographics.Concurrency),
			demographics.WithDryRun(dryRun),
		)

		summaries, err := surveyor.Survey(ctx, where)
		if err != nil {
			return eris.Wrap(err, "demog: survey")
		}

		warned := 0
		for _, s := range summaries {
			pop, housing := s.Counts(method)
			fmt.Printf("area %d: %d blocks, population %d, housing %d\n",
				s.ObjectID, s.Blocks, pop, housing)
			if len(s.Warnings) > 0 {
				warned++
				for _, w := range s.Warnings {
					fmt.Printf("  warning: %s\n", w)
				}
			}
		}
		if warned > 0 {
			zap.L().Warn("demog: some areas had processing issues", zap.Int("areas", warned))
		}

		if report != "" {
			if err := demographics.WriteReport(report, summaries); err != nil {
				return err
			}
			fmt.Println("Report written to " + report)
		}
		return nil
	},
}

func init() {
	demogSummarizeCmd.Flags().String("where", "", "area selection query (default: population is null)")
	demogSummarizeCmd.Flags().String("method", "", "summary method: all, gt50, or wtd (default from config)")
	demogSummarizeCmd.Flags().String("report", "", "write an XLSX report comparing all methods")
	demogSummarizeCmd.Flags().Bool("dry-run", false, "summarize without updating the layer")
	demogCmd.AddCommand(demogSummarizeCmd)
	rootCmd.AddCommand(demogCmd)
}
