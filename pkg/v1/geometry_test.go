package extract

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// resolvedStore returns a memory store holding coordinates for ids
// 1..n along a diagonal.
func resolvedStore(n int64) NodeStore {
	store := NewMemoryStore()
	for id := int64(1); id <= n; id++ {
		store.AddPending(id)
		store.Resolve(id, float64(id), float64(-id))
	}
	return store
}

func TestWayGeometryClassification(t *testing.T) {
	tests := []struct {
		name         string
		refs         []int64
		wantType     string
		wantCoords   int
		wantDangling int
	}{
		{
			name:       "closed ring becomes polygon",
			refs:       []int64{1, 2, 3, 1},
			wantType:   "Polygon",
			wantCoords: 4,
		},
		{
			name:       "open path becomes linestring",
			refs:       []int64{1, 2, 3, 4},
			wantType:   "LineString",
			wantCoords: 4,
		},
		{
			name:       "three refs cannot close a ring",
			refs:       []int64{1, 2, 1},
			wantType:   "LineString",
			wantCoords: 3,
		},
		{
			name:         "dangling ref skipped",
			refs:         []int64{1, 2, 99},
			wantType:     "LineString",
			wantCoords:   2,
			wantDangling: 1,
		},
		{
			name:         "ring stays a polygon despite dangling interior ref",
			refs:         []int64{1, 2, 99, 1},
			wantType:     "Polygon",
			wantCoords:   3,
			wantDangling: 1,
		},
	}

	builder := &geometryBuilder{store: resolvedStore(5)}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geom, dangling, err := builder.wayGeometry(pbf.Way{ID: 7, Refs: tt.refs})
			if err != nil {
				t.Fatalf("wayGeometry: %v", err)
			}
			if dangling != tt.wantDangling {
				t.Errorf("dangling = %d, want %d", dangling, tt.wantDangling)
			}
			if geom.Type != tt.wantType {
				t.Fatalf("type = %q, want %q", geom.Type, tt.wantType)
			}
			var coords int
			switch g := geom.Geometry().(type) {
			case orb.LineString:
				coords = len(g)
			case orb.Polygon:
				coords = len(g[0])
			}
			if coords != tt.wantCoords {
				t.Errorf("coords = %d, want %d", coords, tt.wantCoords)
			}
		})
	}
}

func TestWayGeometryAllRefsDangling(t *testing.T) {
	builder := &geometryBuilder{store: NewMemoryStore()}
	geom, dangling, err := builder.wayGeometry(pbf.Way{ID: 7, Refs: []int64{8, 9}})
	if err != nil {
		t.Fatalf("wayGeometry: %v", err)
	}
	if geom != nil {
		t.Errorf("geometry = %v, want nil when nothing resolves", geom)
	}
	if dangling != 2 {
		t.Errorf("dangling = %d, want 2", dangling)
	}
}

func TestWayGeometryCoordinateOrder(t *testing.T) {
	store := NewMemoryStore()
	store.AddPending(1)
	store.Resolve(1, 47.6, -122.3)
	store.AddPending(2)
	store.Resolve(2, 47.7, -122.4)

	builder := &geometryBuilder{store: store}
	geom, _, err := builder.wayGeometry(pbf.Way{ID: 1, Refs: []int64{1, 2}})
	if err != nil {
		t.Fatalf("wayGeometry: %v", err)
	}
	line := geom.Geometry().(orb.LineString)
	// GeoJSON positions are [lon, lat].
	if line[0][0] != -122.3 || line[0][1] != 47.6 {
		t.Errorf("first position = %v, want [-122.3 47.6]", line[0])
	}
	if line[1][0] != -122.4 || line[1][1] != 47.7 {
		t.Errorf("second position = %v, want [-122.4 47.7]", line[1])
	}
}

func TestNodeGeometryRounding(t *testing.T) {
	builder := &geometryBuilder{store: NewMemoryStore()}
	geom, err := builder.nodeGeometry(pbf.Node{ID: 1, Lat: 47.12345678901, Lon: -122.98765432109}, 7)
	if err != nil {
		t.Fatalf("nodeGeometry: %v", err)
	}
	p := geom.Geometry().(orb.Point)
	if p[1] != 47.1234568 {
		t.Errorf("lat = %.10f, want 47.1234568", p[1])
	}
	if p[0] != -122.9876543 {
		t.Errorf("lon = %.10f, want -122.9876543", p[0])
	}
}

func TestNodeGeometryValidation(t *testing.T) {
	builder := &geometryBuilder{store: NewMemoryStore(), validate: true}
	_, err := builder.nodeGeometry(pbf.Node{ID: 12, Lat: 91.0, Lon: 0}, 7)
	var invalid *ErrInvalidCoordinate
	if !errors.As(err, &invalid) {
		t.Fatalf("err = %v, want ErrInvalidCoordinate", err)
	}
	if invalid.ID != 12 || invalid.EntityType != "node" {
		t.Errorf("error identifies %s %d, want node 12", invalid.EntityType, invalid.ID)
	}
}

func TestDecimalsForGranularity(t *testing.T) {
	tests := []struct {
		granularity int64
		want        int
	}{
		{1, 9},
		{100, 7},
		{1000, 6},
		{1000000000, 0},
	}
	for _, tt := range tests {
		if got := decimalsForGranularity(tt.granularity); got != tt.want {
			t.Errorf("decimalsForGranularity(%d) = %d, want %d", tt.granularity, got, tt.want)
		}
	}
}
