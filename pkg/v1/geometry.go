package extract

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// ErrInvalidCoordinate reports a coordinate outside the WGS-84 range.
// Only returned when Options.ValidateGeometry is set.
type ErrInvalidCoordinate struct {
	EntityType string
	ID         int64
	Lat        float64
	Lon        float64
}

func (e *ErrInvalidCoordinate) Error() string {
	return fmt.Sprintf("%s %d: coordinate (%g, %g) outside valid range", e.EntityType, e.ID, e.Lat, e.Lon)
}

// geometryBuilder turns filtered entities into GeoJSON geometry objects.
//
// Way refs are looked up in the node store in ref order. Unresolved ids
// are skipped and counted; the caller decides how loudly to complain.
// Ring detection is by node identity: a way whose first and last refs
// are the same id, with at least four refs, closes a ring and becomes a
// Polygon. Everything else becomes a LineString.
type geometryBuilder struct {
	store    NodeStore
	validate bool
}

// nodeGeometry returns the Point for a matched node, with coordinates
// rounded to the given number of decimal places.
func (g *geometryBuilder) nodeGeometry(n pbf.Node, decimals int) (*geojson.Geometry, error) {
	lat := roundTo(n.Lat, decimals)
	lon := roundTo(n.Lon, decimals)
	if g.validate && !validCoordinate(lat, lon) {
		return nil, &ErrInvalidCoordinate{EntityType: "node", ID: n.ID, Lat: lat, Lon: lon}
	}
	return geojson.NewGeometry(orb.Point{lon, lat}), nil
}

// wayGeometry returns the LineString or Polygon for a matched way along
// with the number of dangling refs skipped. A way none of whose refs
// resolved has no geometry; the returned *Geometry is nil.
func (g *geometryBuilder) wayGeometry(w pbf.Way) (*geojson.Geometry, int, error) {
	ring := len(w.Refs) >= 4 && w.Refs[0] == w.Refs[len(w.Refs)-1]

	coords := make(orb.LineString, 0, len(w.Refs))
	dangling := 0
	for _, ref := range w.Refs {
		lat, lon, ok := g.store.Get(ref)
		if !ok {
			dangling++
			continue
		}
		if g.validate && !validCoordinate(lat, lon) {
			return nil, dangling, &ErrInvalidCoordinate{EntityType: "way", ID: w.ID, Lat: lat, Lon: lon}
		}
		coords = append(coords, orb.Point{lon, lat})
	}

	if len(coords) == 0 {
		return nil, dangling, nil
	}
	if ring {
		return geojson.NewGeometry(orb.Polygon{orb.Ring(coords)}), dangling, nil
	}
	return geojson.NewGeometry(coords), dangling, nil
}

func validCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// decimalsForGranularity maps a block granularity in nanodegrees to the
// number of decimal places it can actually resolve. The standard
// granularity of 100 resolves 1e-7 degree, so 7 decimal places.
func decimalsForGranularity(granularity int64) int {
	decimals := 9
	for granularity >= 10 && decimals > 0 {
		granularity /= 10
		decimals--
	}
	return decimals
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}
