// Package extract filters OpenStreetMap PBF files by tag and streams the
// matching entities as a JSON feature array with resolved geometry.
//
// # Basic Usage
//
//	ex := extract.NewExtractor(extract.MatchKeyValue("amenity", "cafe"))
//	stats, err := ex.Extract("washington.osm.pbf", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Printf("emitted %d features\n", stats.Features)
//
// Matched nodes become Point features. Matched ways have their node
// references resolved to coordinates: a way whose first and last refs are
// the same node (with at least four refs) becomes a Polygon, any other way
// becomes a LineString. Matched relations are emitted with their member
// list and a null geometry.
//
// # How It Works
//
// Extraction makes three streaming passes over the file, so memory usage
// is bounded by the number of node ids referenced by matched ways, not by
// the size of the input:
//
//  1. Scan ways, record the node ids referenced by matches.
//  2. Scan nodes, resolve recorded ids to coordinates.
//  3. Scan everything again, build geometry, and stream features out.
//
// A node id referenced by a way but absent from the file is a dangling
// reference: the coordinate is skipped, a warning is logged, and the run
// continues.
//
// # Tuning
//
// ExtractWithOptions exposes the knobs:
//
//	stats, err := ex.ExtractWithOptions("planet.osm.pbf", out, extract.Options{
//	    Workers:      8,            // parallel block decoding
//	    NodeStoreDir: "/var/tmp",   // spill the node index to disk
//	})
//
// # Programmatic Consumers
//
// Instead of a JSON stream, features can be collected into a spatial
// index for bounding-box queries:
//
//	idx := extract.NewFeatureIndex()
//	stats, err := ex.ExtractToSink("washington.osm.pbf", idx, extract.DefaultOptions())
//
//	cafes := idx.Query(extract.Bounds{
//	    MinLon: -122.5, MaxLon: -122.2,
//	    MinLat: 47.4, MaxLat: 47.8,
//	})
package extract
