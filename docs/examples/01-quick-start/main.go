package main

import (
	"fmt"
	"log"
	"os"

	extract "github.com/BrunoGrandePhD/filter-osm/pkg/v1"
)

func main() {
	// Keep every cafe in the extract
	ex := extract.NewExtractor(extract.MatchKeyValue("amenity", "cafe"))

	// Stream matches to stdout as a JSON array
	stats, err := ex.Extract("washington-latest.osm.pbf", os.Stdout)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Fprintf(os.Stderr, "scanned %d nodes, %d ways, %d relations\n",
		stats.NodesScanned, stats.WaysScanned, stats.RelationsScanned)
	fmt.Fprintf(os.Stderr, "emitted %d features\n", stats.Features)
}
