package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rcview/rcview-cli/internal/maplink"
)

var maplinkCmd = &cobra.Command{
	Use:   "maplink LAT LON",
	Short: "Shareable map URLs for a point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := parseLatLon(args[0], args[1])
		if err != nil {
			return err
		}
		label, _ := cmd.Flags().GetString("label")

		fmt.Println("Google: " + maplink.GoogleMaps(lat, lon))
		fmt.Println("Apple:  " + maplink.AppleMaps(lat, lon, label))
		return nil
	},
}

func init() {
	maplinkCmd.Flags().String("label", "", "pin label for Apple Maps")
	rootCmd.AddCommand(maplinkCmd)
}
