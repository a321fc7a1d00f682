// Package maplink builds shareable map URLs for point locations.
package maplink

import (
	"fmt"
	"net/url"
)

// GoogleMaps returns a Google Maps URL centered on a point at street
// level.
func GoogleMaps(latitude, longitude float64) string {
	return fmt.Sprintf("https://www.google.com/maps/place/%.5f,%.5f/@%.5f,%.5f,18z",
		latitude, longitude, latitude, longitude)
}

// AppleMaps returns an Apple Maps URL with a labeled pin. An empty label
// falls back to "X".
func AppleMaps(latitude, longitude float64, label string) string {
	if label == "" {
		label = "X"
	}
	return fmt.Sprintf("http://maps.apple.com/?ll=%.5f,%.5f&q=%s",
		latitude, longitude, url.QueryEscape(label))
}
