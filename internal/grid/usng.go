// Package grid converts between geographic coordinates and US National
// Grid (MGRS) references.
package grid

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/im7mortal/UTM"
	"github.com/rotisserie/eris"
)

// MaxPrecision is a 1 m grid. Precision 4 is 10 m, 3 is 100 m, and so on
// down to 0, which identifies the 100 km square only.
const MaxPrecision = 5

const (
	squareSize = 100000 // meters per 100 km grid square
	rowLetters = "ABCDEFGHJKLMNPQRSTUV"
)

// Column lettering repeats every three zones.
var colLetterSets = [3]string{"ABCDEFGH", "JKLMNPQR", "STUVWXYZ"}

// minNorthings gives the lowest UTM northing of each latitude band,
// truncated to 100 km. Row letters repeat every 2,000 km, so the band
// is needed to pick the right cycle.
var minNorthings = map[byte]float64{
	'C': 1100000, 'D': 2000000, 'E': 2800000, 'F': 3700000,
	'G': 4600000, 'H': 5500000, 'J': 6400000, 'K': 7300000,
	'L': 8200000, 'M': 9100000, 'N': 0, 'P': 800000,
	'Q': 1700000, 'R': 2600000, 'S': 3500000, 'T': 4400000,
	'U': 5300000, 'V': 6200000, 'W': 7000000, 'X': 7900000,
}

// ToUSNG returns the US National Grid reference for a point, formatted
// with spaces between the zone, the 100 km square, and the coordinates,
// e.g. "18S UJ 2348 0647" at precision 4.
func ToUSNG(latitude, longitude float64, precision int) (string, error) {
	if precision < 0 || precision > MaxPrecision {
		return "", eris.Errorf("grid: precision must be between 0 and %d, got %d", MaxPrecision, precision)
	}

	easting, northing, zone, band, err := UTM.FromLatLon(latitude, longitude, latitude >= 0)
	if err != nil {
		return "", eris.Wrap(err, "grid: project to utm")
	}

	colSet := colLetterSets[(zone-1)%3]
	colIdx := int(easting)/squareSize - 1
	if colIdx < 0 || colIdx >= len(colSet) {
		return "", eris.Errorf("grid: easting %f out of range", easting)
	}
	rowIdx := (int(northing)/squareSize + rowOffset(zone)) % len(rowLetters)

	ref := fmt.Sprintf("%02d%s %c%c", zone, band, colSet[colIdx], rowLetters[rowIdx])
	if precision == 0 {
		return ref, nil
	}

	scale := int(math.Pow10(MaxPrecision - precision))
	e := (int(easting) % squareSize) / scale
	n := (int(northing) % squareSize) / scale
	return fmt.Sprintf("%s %0*d %0*d", ref, precision, e, precision, n), nil
}

// FromUSNG returns the latitude and longitude of a grid reference's
// southwest corner. Spaces in the reference are ignored.
func FromUSNG(ref string) (latitude, longitude float64, err error) {
	s := strings.ToUpper(strings.ReplaceAll(ref, " ", ""))
	if len(s) < 5 {
		return 0, 0, eris.Errorf("grid: reference %q too short", ref)
	}

	// zone number, 1 or 2 digits
	zoneEnd := 1
	if len(s) > 1 && s[1] >= '0' && s[1] <= '9' {
		zoneEnd = 2
	}
	zone, err := strconv.Atoi(s[:zoneEnd])
	if err != nil || zone < 1 || zone > 60 {
		return 0, 0, eris.Errorf("grid: invalid zone in %q", ref)
	}
	if len(s) < zoneEnd+3 {
		return 0, 0, eris.Errorf("grid: reference %q too short", ref)
	}

	band := s[zoneEnd]
	minNorthing, ok := minNorthings[band]
	if !ok {
		return 0, 0, eris.Errorf("grid: invalid latitude band %q in %q", string(band), ref)
	}

	colSet := colLetterSets[(zone-1)%3]
	colIdx := strings.IndexByte(colSet, s[zoneEnd+1])
	if colIdx < 0 {
		return 0, 0, eris.Errorf("grid: invalid column letter %q for zone %d", string(s[zoneEnd+1]), zone)
	}
	rowIdx := strings.IndexByte(rowLetters, s[zoneEnd+2])
	if rowIdx < 0 {
		return 0, 0, eris.Errorf("grid: invalid row letter %q in %q", string(s[zoneEnd+2]), ref)
	}

	digits := s[zoneEnd+3:]
	if len(digits)%2 != 0 || len(digits) > 2*MaxPrecision {
		return 0, 0, eris.Errorf("grid: invalid coordinate digits %q in %q", digits, ref)
	}
	precision := len(digits) / 2

	easting := float64((colIdx + 1) * squareSize)
	if precision > 0 {
		e, err := strconv.Atoi(digits[:precision])
		if err != nil {
			return 0, 0, eris.Wrapf(err, "grid: parse easting in %q", ref)
		}
		easting += float64(e) * math.Pow10(MaxPrecision-precision)
	}

	// Row letters cycle every 2,000 km; advance until inside the band.
	rowIdx = (rowIdx - rowOffset(zone) + len(rowLetters)) % len(rowLetters)
	northing := float64(rowIdx * squareSize)
	for northing < minNorthing {
		northing += float64(len(rowLetters) * squareSize)
	}
	if precision > 0 {
		n, err := strconv.Atoi(digits[precision:])
		if err != nil {
			return 0, 0, eris.Wrapf(err, "grid: parse northing in %q", ref)
		}
		northing += float64(n) * math.Pow10(MaxPrecision-precision)
	}

	latitude, longitude, err = UTM.ToLatLon(easting, northing, zone, string(band))
	if err != nil {
		return 0, 0, eris.Wrap(err, "grid: unproject from utm")
	}
	return latitude, longitude, nil
}

// rowOffset shifts row lettering by five squares in even-numbered zones.
func rowOffset(zone int) int {
	if zone%2 == 0 {
		return 5
	}
	return 0
}
