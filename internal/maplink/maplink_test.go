package maplink

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGoogleMaps(t *testing.T) {
	url := GoogleMaps(38.8977, -77.0365)
	assert.Equal(t, "https://www.google.com/maps/place/38.89770,-77.03650/@38.89770,-77.03650,18z", url)
}

func TestAppleMaps(t *testing.T) {
	url := AppleMaps(38.8977, -77.0365, "White House")
	assert.Equal(t, "http://maps.apple.com/?ll=38.89770,-77.03650&q=White+House", url)
}

func TestAppleMaps_DefaultLabel(t *testing.T) {
	url := AppleMaps(0, 0, "")
	assert.Equal(t, "http://maps.apple.com/?ll=0.00000,0.00000&q=X", url)
}
