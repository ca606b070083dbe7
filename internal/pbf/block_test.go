package pbf_test

import (
	"bytes"
	"math"
	"reflect"
	"testing"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
	"github.com/BrunoGrandePhD/filter-osm/internal/pbf/pbftest"
)

// decodeOne builds a single-data-blob file and returns its decoded block.
func decodeOne(t *testing.T, b *pbftest.Builder) *pbf.Block {
	t.Helper()
	r, err := pbf.NewReader(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	blob, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	blk, err := blob.Decode()
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return blk
}

func TestDecodeDenseNodes(t *testing.T) {
	want := []pbf.Node{
		{ID: 101, Lat: 47.0, Lon: -122.0, Tags: map[string]string{"amenity": "cafe", "name": "Latte"}},
		{ID: 102, Lat: 47.0001, Lon: -122.0001, Tags: map[string]string{}},
		{ID: 103, Lat: -0.5, Lon: 0.5, Tags: map[string]string{"highway": "crossing"}},
	}

	b := pbftest.New()
	b.WriteHeader()
	b.WriteDenseNodes(want...)

	blk := decodeOne(t, b)
	if len(blk.Nodes) != len(want) {
		t.Fatalf("got %d nodes, want %d", len(blk.Nodes), len(want))
	}
	for i, n := range blk.Nodes {
		if n.ID != want[i].ID {
			t.Errorf("node %d: id = %d, want %d", i, n.ID, want[i].ID)
		}
		if math.Abs(n.Lat-want[i].Lat) > 1e-7 || math.Abs(n.Lon-want[i].Lon) > 1e-7 {
			t.Errorf("node %d: coord = (%v, %v), want (%v, %v)", i, n.Lat, n.Lon, want[i].Lat, want[i].Lon)
		}
		if !reflect.DeepEqual(n.Tags, want[i].Tags) {
			t.Errorf("node %d: tags = %v, want %v", i, n.Tags, want[i].Tags)
		}
	}
}

func TestDecodeDenseNodesEmptyTagsNonNil(t *testing.T) {
	b := pbftest.New()
	b.WriteHeader()
	b.WriteDenseNodes(pbf.Node{ID: 1, Lat: 1, Lon: 1, Tags: map[string]string{}})

	blk := decodeOne(t, b)
	if blk.Nodes[0].Tags == nil {
		t.Fatal("tags map is nil, want empty map")
	}
}

func TestDecodeGranularityAndOffsets(t *testing.T) {
	b := pbftest.New()
	b.Granularity = 1000
	b.LatOffset = 470000000000 // 470 degrees worth of nanodegree offset is legal on the wire
	b.LonOffset = -122000000000
	b.WriteHeader()
	b.WriteDenseNodes(pbf.Node{ID: 1, Lat: 470.0000010, Lon: -122.0000010, Tags: map[string]string{}})

	blk := decodeOne(t, b)
	if blk.Granularity != 1000 {
		t.Errorf("granularity = %d, want 1000", blk.Granularity)
	}
	n := blk.Nodes[0]
	// 1e-9 * (offset + granularity * delta) with delta = 1.
	if math.Abs(n.Lat-470.000001) > 1e-9 {
		t.Errorf("lat = %.10f, want 470.0000010", n.Lat)
	}
	if math.Abs(n.Lon-(-122.000001)) > 1e-9 {
		t.Errorf("lon = %.10f, want -122.0000010", n.Lon)
	}
}

func TestDecodePlainNodes(t *testing.T) {
	b := pbftest.New()
	b.WriteHeader()
	b.WritePlainNodes(
		pbf.Node{ID: 9, Lat: 51.5, Lon: -0.1, Tags: map[string]string{"name": "pole"}},
		pbf.Node{ID: 10, Lat: -51.5, Lon: 0.1, Tags: map[string]string{}},
	)

	blk := decodeOne(t, b)
	if len(blk.Nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(blk.Nodes))
	}
	if blk.Nodes[0].Tags["name"] != "pole" {
		t.Errorf("tags = %v", blk.Nodes[0].Tags)
	}
	if math.Abs(blk.Nodes[1].Lat-(-51.5)) > 1e-7 {
		t.Errorf("lat = %v, want -51.5", blk.Nodes[1].Lat)
	}
}

func TestDecodeWayRefs(t *testing.T) {
	// Refs that go down as well as up exercise the signed delta decoding.
	refs := []int64{100, 50, 75, 100}
	b := pbftest.New()
	b.WriteHeader()
	b.WriteWays(pbf.Way{ID: 2001, Refs: refs, Tags: map[string]string{"building": "yes"}})

	blk := decodeOne(t, b)
	if len(blk.Ways) != 1 {
		t.Fatalf("got %d ways, want 1", len(blk.Ways))
	}
	w := blk.Ways[0]
	if w.ID != 2001 {
		t.Errorf("id = %d, want 2001", w.ID)
	}
	if !reflect.DeepEqual(w.Refs, refs) {
		t.Errorf("refs = %v, want %v", w.Refs, refs)
	}
	if w.Tags["building"] != "yes" {
		t.Errorf("tags = %v", w.Tags)
	}
}

func TestDecodeRelationMembers(t *testing.T) {
	members := []pbf.Member{
		{Type: pbf.MemberWay, Ref: 2001, Role: "outer"},
		{Type: pbf.MemberWay, Ref: 2002, Role: "inner"},
		{Type: pbf.MemberNode, Ref: 101, Role: "admin_centre"},
	}
	b := pbftest.New()
	b.WriteHeader()
	b.WriteRelations(pbf.Relation{ID: 3001, Members: members, Tags: map[string]string{"type": "multipolygon"}})

	blk := decodeOne(t, b)
	if len(blk.Relations) != 1 {
		t.Fatalf("got %d relations, want 1", len(blk.Relations))
	}
	r := blk.Relations[0]
	if r.ID != 3001 {
		t.Errorf("id = %d, want 3001", r.ID)
	}
	if !reflect.DeepEqual(r.Members, members) {
		t.Errorf("members = %+v, want %+v", r.Members, members)
	}
}

func TestDecodeMixedBlocks(t *testing.T) {
	b := pbftest.New()
	b.WriteHeader()
	b.WriteDenseNodes(pbf.Node{ID: 1, Lat: 1, Lon: 1, Tags: map[string]string{}})
	b.WriteWays(pbf.Way{ID: 2, Refs: []int64{1}, Tags: map[string]string{}})
	b.WriteRelations(pbf.Relation{ID: 3, Members: []pbf.Member{{Type: pbf.MemberWay, Ref: 2}}, Tags: map[string]string{}})

	r, err := pbf.NewReader(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	var nodes, ways, rels int
	for i := 0; i < 3; i++ {
		blob, err := r.Next()
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		blk, err := blob.Decode()
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		nodes += len(blk.Nodes)
		ways += len(blk.Ways)
		rels += len(blk.Relations)
	}
	if nodes != 1 || ways != 1 || rels != 1 {
		t.Errorf("counts = %d nodes, %d ways, %d relations, want 1 each", nodes, ways, rels)
	}
}

func TestDecodeIdempotent(t *testing.T) {
	b := pbftest.New()
	b.WriteHeader()
	b.WriteDenseNodes(pbf.Node{ID: 5, Lat: 12.34, Lon: 56.78, Tags: map[string]string{"k": "v"}})

	r, err := pbf.NewReader(bytes.NewReader(b.Bytes()))
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	blob, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}

	first, err := blob.Decode()
	if err != nil {
		t.Fatalf("first Decode: %v", err)
	}
	second, err := blob.Decode()
	if err != nil {
		t.Fatalf("second Decode: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated Decode produced different blocks")
	}
}

func TestMemberTypeString(t *testing.T) {
	cases := []struct {
		typ  pbf.MemberType
		want string
	}{
		{pbf.MemberNode, "node"},
		{pbf.MemberWay, "way"},
		{pbf.MemberRelation, "relation"},
	}
	for _, tc := range cases {
		if got := tc.typ.String(); got != tc.want {
			t.Errorf("MemberType(%d).String() = %q, want %q", tc.typ, got, tc.want)
		}
	}
}
