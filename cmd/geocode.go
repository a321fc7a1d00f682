package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/rcview/rcview-cli/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode addresses via the Census Bureau with portal fallback",
	Long: `Geocodes a single address given by flags, or a CSV file with --in. The
CSV needs a header row with street, city, state, and zip columns (id is
optional). Matched coordinates are appended as new columns.

The free Census Bureau geocoder is tried first. With --portal, addresses
it cannot match are retried against the portal's geocode service, which
consumes service credits.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		usePortal, _ := cmd.Flags().GetBool("portal")
		client, cleanup, err := newGeocoder(usePortal)
		if err != nil {
			return err
		}
		defer cleanup()

		inPath, _ := cmd.Flags().GetString("in")
		if inPath == "" {
			return geocodeSingle(ctx, cmd, client)
		}

		outPath, _ := cmd.Flags().GetString("out")
		return geocodeFile(ctx, client, inPath, outPath)
	},
}

func init() {
	geocodeCmd.Flags().String("street", "", "street address")
	geocodeCmd.Flags().String("city", "", "city")
	geocodeCmd.Flags().String("state", "", "2-letter state")
	geocodeCmd.Flags().String("zip", "", "ZIP code")
	geocodeCmd.Flags().String("in", "", "input CSV file")
	geocodeCmd.Flags().String("out", "", "output CSV file (default: stdout)")
	geocodeCmd.Flags().Bool("portal", false, "retry unmatched addresses against the portal geocode service")
	rootCmd.AddCommand(geocodeCmd)
}

func geocodeSingle(ctx context.Context, cmd *cobra.Command, client geocode.Client) error {
	street, _ := cmd.Flags().GetString("street")
	city, _ := cmd.Flags().GetString("city")
	state, _ := cmd.Flags().GetString("state")
	zip, _ := cmd.Flags().GetString("zip")
	if street == "" && city == "" && zip == "" {
		return eris.New("geocode: give an address with --street/--city/--state/--zip, or a file with --in")
	}

	result, err := client.Geocode(ctx, geocode.Address{
		Street: street, City: city, State: state, Zip: zip,
	})
	if err != nil {
		return err
	}
	if !result.Matched {
		fmt.Println("No match")
		return nil
	}
	fmt.Printf("%s\n%.6f %.6f (%s, %s)\n",
		result.Address, result.Latitude, result.Longitude, result.MatchType, result.Source)
	return nil
}

// geocodeFile geocodes a CSV of addresses in batches and writes the input
// rows back out with match columns appended.
func geocodeFile(ctx context.Context, client geocode.Client, inPath, outPath string) error {
	addrs, header, err := readAddressCSV(inPath)
	if err != nil {
		return err
	}

	results := make([]geocode.Result, 0, len(addrs))
	for start := 0; start < len(addrs); start += geocode.MaxBatchSize {
		end := min(start+geocode.MaxBatchSize, len(addrs))
		batch, err := client.BatchGeocode(ctx, addrs[start:end])
		if err != nil {
			return err
		}
		results = append(results, batch...)
	}

	out := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return eris.Wrap(err, "geocode: create output")
		}
		defer f.Close()
		out = f
	}

	w := csv.NewWriter(out)
	if err := w.Write(append(header, "matched", "match_type", "source", "latitude", "longitude", "matched_address")); err != nil {
		return eris.Wrap(err, "geocode: write header")
	}
	matched := 0
	for i, addr := range addrs {
		r := results[i]
		if r.Matched {
			matched++
		}
		row := []string{addr.ID, addr.Street, addr.City, addr.State, addr.Zip,
			strconv.FormatBool(r.Matched), r.MatchType, r.Source,
			formatCoord(r.Latitude, r.Matched), formatCoord(r.Longitude, r.Matched),
			r.Address,
		}
		if err := w.Write(row); err != nil {
			return eris.Wrap(err, "geocode: write row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return eris.Wrap(err, "geocode: flush output")
	}

	fmt.Fprintf(os.Stderr, "Matched %d of %d addresses\n", matched, len(addrs))
	return nil
}

// readAddressCSV reads addresses from a CSV with a header row naming its
// columns. Column order does not matter.
func readAddressCSV(path string) ([]geocode.Address, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, eris.Wrap(err, "geocode: open input")
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, nil, eris.Wrap(err, "geocode: parse input")
	}
	if len(rows) < 2 {
		return nil, nil, eris.New("geocode: input has no address rows")
	}

	col := make(map[string]int)
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := col["street"]; !ok {
		return nil, nil, eris.New("geocode: input needs a street column")
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	addrs := make([]geocode.Address, 0, len(rows)-1)
	for i, row := range rows[1:] {
		addr := geocode.Address{
			ID:     field(row, "id"),
			Street: field(row, "street"),
			City:   field(row, "city"),
			State:  field(row, "state"),
			Zip:    field(row, "zip"),
		}
		if addr.ID == "" {
			addr.ID = strconv.Itoa(i)
		}
		addrs = append(addrs, addr)
	}

	header := []string{"id", "street", "city", "state", "zip"}
	return addrs, header, nil
}

func formatCoord(v float64, matched bool) string {
	if !matched {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}
