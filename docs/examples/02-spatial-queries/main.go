package main

import (
	"fmt"
	"log"

	extract "github.com/BrunoGrandePhD/filter-osm/pkg/v1"
)

func main() {
	// Collect features into a spatial index instead of a JSON stream
	ex := extract.NewExtractor(extract.MatchKey("amenity"))
	idx := extract.NewFeatureIndex()

	stats, err := ex.ExtractToSink("washington-latest.osm.pbf", idx, extract.DefaultOptions())
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("indexed %d features\n", stats.Features)

	// Query downtown Seattle
	downtown := extract.Bounds{
		MinLon: -122.36, MaxLon: -122.32,
		MinLat: 47.59, MaxLat: 47.62,
	}
	for _, f := range idx.Query(downtown) {
		fmt.Printf("%s %d: %s (%s)\n", f.Type, f.ID, f.Tags["name"], f.Tags["amenity"])
	}
}
