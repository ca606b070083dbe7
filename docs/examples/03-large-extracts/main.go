package main

import (
	"fmt"
	"log"
	"os"
	"runtime"

	extract "github.com/BrunoGrandePhD/filter-osm/pkg/v1"
)

func main() {
	out, err := os.Create("buildings.json")
	if err != nil {
		log.Fatal(err)
	}
	defer out.Close()

	// For continent-sized extracts: decode blocks on all cores and
	// spill the node index to disk instead of holding it in RAM.
	opts := extract.DefaultOptions()
	opts.Workers = runtime.NumCPU()
	opts.NodeStoreDir = os.TempDir()
	opts.BlockCacheSize = 256

	ex := extract.NewExtractor(extract.MatchKey("building"))
	stats, err := ex.ExtractWithOptions("europe-latest.osm.pbf", out, opts)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("emitted %d features from %d blocks\n", stats.Features, stats.Blocks)
	fmt.Printf("resolved %d referenced nodes\n", stats.ReferencedNodes)
	if stats.DanglingRefs > 0 {
		fmt.Printf("skipped %d dangling node references\n", stats.DanglingRefs)
	}
}
