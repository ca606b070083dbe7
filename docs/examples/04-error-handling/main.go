package main

import (
	"errors"
	"log"
	"os"

	extract "github.com/BrunoGrandePhD/filter-osm/pkg/v1"
)

func main() {
	ex := extract.NewExtractor(extract.MatchKeyValue("amenity", "cafe"))

	_, err := ex.Extract("washington-latest.osm.pbf", os.Stdout)
	if err == nil {
		return
	}

	// Format errors carry the file offset of the bad blob; feature
	// errors name the unsupported capability.
	var corrupt *extract.ErrCorruptBlob
	var truncated *extract.ErrTruncated
	var mismatch *extract.ErrSizeMismatch
	var unsupported *extract.ErrUnsupportedFeature

	switch {
	case errors.As(err, &corrupt):
		log.Fatalf("corrupt blob at offset %d: %s", corrupt.Offset, corrupt.Reason)
	case errors.As(err, &truncated):
		log.Fatalf("file truncated at offset %d", truncated.Offset)
	case errors.As(err, &mismatch):
		log.Fatalf("blob at offset %d declared %d bytes but held %d",
			mismatch.Offset, mismatch.Declared, mismatch.Actual)
	case errors.As(err, &unsupported):
		log.Fatalf("file requires %q, which this reader does not implement", unsupported.Feature)
	default:
		log.Fatal(err)
	}
}
