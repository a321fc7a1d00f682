package main

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcview/rcview-cli/internal/grid"
)

var gridCmd = &cobra.Command{
	Use:   "grid",
	Short: "Convert between coordinates and US National Grid references",
}

var gridToCmd = &cobra.Command{
	Use:   "to LAT LON",
	Short: "US National Grid reference for a point",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := parseLatLon(args[0], args[1])
		if err != nil {
			return err
		}
		precision, _ := cmd.Flags().GetInt("precision")

		ref, err := grid.ToUSNG(lat, lon, precision)
		if err != nil {
			return err
		}
		fmt.Println(ref)
		return nil
	},
}

var gridFromCmd = &cobra.Command{
	Use:   "from REFERENCE",
	Short: "Coordinates of a US National Grid reference",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lat, lon, err := grid.FromUSNG(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%.6f %.6f\n", lat, lon)
		return nil
	},
}

func init() {
	gridToCmd.Flags().Int("precision", 4, "grid precision, 0 (100 km square) to 5 (1 m)")
	gridCmd.AddCommand(gridToCmd)
	gridCmd.AddCommand(gridFromCmd)
	rootCmd.AddCommand(gridCmd)
}

// parseLatLon parses decimal degree arguments.
func parseLatLon(latArg, lonArg string) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(latArg, 64)
	if err != nil {
		return 0, 0, eris.Errorf("invalid latitude %q", latArg)
	}
	lon, err = strconv.ParseFloat(lonArg, 64)
	if err != nil {
		return 0, 0, eris.Errorf("invalid longitude %q", lonArg)
	}
	if lat < -90 || lat > 90 {
		return 0, 0, eris.Errorf("latitude %v out of range", lat)
	}
	if lon < -180 || lon > 180 {
		return 0, 0, eris.Errorf("longitude %v out of range", lon)
	}
	return lat, lon, nil
}
