// Package esri holds the portal REST API geometry types and their
// conversions to and from go-geom shapes.
package esri

// SpatialReference identifies a coordinate system by well-known ID.
type SpatialReference struct {
	WKID       int `json:"wkid,omitempty"`
	LatestWKID int `json:"latestWkid,omitempty"`
}

// WGS84 is the latitude/longitude spatial reference.
var WGS84 = &SpatialReference{WKID: 4326}

// WebMercator is the projection used by the portal's hosted layers.
var WebMercator = &SpatialReference{WKID: 3857}

// Point is a point geometry in the REST API wire form.
type Point struct {
	X                float64           `json:"x"`
	Y                float64           `json:"y"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Envelope is an axis-aligned bounding box, used as a spatial query filter.
type Envelope struct {
	XMin             float64           `json:"xmin"`
	YMin             float64           `json:"ymin"`
	XMax             float64           `json:"xmax"`
	YMax             float64           `json:"ymax"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}

// Polygon is a polygon geometry in the REST API wire form: a list of rings,
// each a list of [x, y] positions, with winding direction marking exteriors
// and holes.
type Polygon struct {
	Rings            [][][]float64     `json:"rings"`
	SpatialReference *SpatialReference `json:"spatialReference,omitempty"`
}
