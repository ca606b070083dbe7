package extract

import (
	"github.com/dhconnelly/rtreego"
)

// FeatureIndex collects extracted features into an in-memory R-tree for
// bounding-box queries. It implements FeatureSink, so it plugs directly
// into ExtractToSink for programmatic consumers that want spatial access
// instead of a JSON stream.
//
// Example:
//
//	idx := extract.NewFeatureIndex()
//	ex := extract.NewExtractor(extract.MatchKey("amenity"))
//	if _, err := ex.ExtractToSink("washington.osm.pbf", idx, extract.DefaultOptions()); err != nil {
//	    log.Fatal(err)
//	}
//
//	downtown := idx.Query(extract.Bounds{
//	    MinLon: -122.36, MaxLon: -122.32,
//	    MinLat: 47.59, MaxLat: 47.62,
//	})
type FeatureIndex struct {
	rtree *rtreego.Rtree
	all   []*Feature
}

// indexedFeature wraps a feature for R-tree storage.
type indexedFeature struct {
	feature *Feature
	bounds  Bounds
}

// Bounds implements rtreego.Spatial.
func (f *indexedFeature) Bounds() rtreego.Rect {
	return boundsRect(f.bounds)
}

// boundsRect converts Bounds to an rtreego rectangle. The R-tree
// requires non-zero side lengths, so point features get a small epsilon
// extent (about 11 meters at the equator).
func boundsRect(b Bounds) rtreego.Rect {
	point := rtreego.Point{b.MinLon, b.MinLat}

	lonLength := b.MaxLon - b.MinLon
	latLength := b.MaxLat - b.MinLat
	const epsilon = 0.0001
	if lonLength < epsilon {
		lonLength = epsilon
	}
	if latLength < epsilon {
		latLength = epsilon
	}

	rect, _ := rtreego.NewRect(point, []float64{lonLength, latLength})
	return rect
}

// NewFeatureIndex returns an empty index.
func NewFeatureIndex() *FeatureIndex {
	return &FeatureIndex{rtree: rtreego.NewTree(2, 25, 50)}
}

// Begin implements FeatureSink.
func (idx *FeatureIndex) Begin() error { return nil }

// Emit implements FeatureSink. Features without geometry (relations)
// are retained but not spatially indexed.
func (idx *FeatureIndex) Emit(f *Feature) error {
	idx.all = append(idx.all, f)
	if bounds, ok := geometryBounds(f.Geometry); ok {
		idx.rtree.Insert(&indexedFeature{feature: f, bounds: bounds})
	}
	return nil
}

// End implements FeatureSink.
func (idx *FeatureIndex) End() error { return nil }

// Query returns the features whose geometry intersects the given bounds.
func (idx *FeatureIndex) Query(bounds Bounds) []*Feature {
	spatials := idx.rtree.SearchIntersect(boundsRect(bounds))
	result := make([]*Feature, 0, len(spatials))
	for _, spatial := range spatials {
		result = append(result, spatial.(*indexedFeature).feature)
	}
	return result
}

// All returns every collected feature in emit order, including features
// without geometry.
func (idx *FeatureIndex) All() []*Feature {
	return idx.all
}

// Count returns the number of collected features.
func (idx *FeatureIndex) Count() int {
	return len(idx.all)
}
