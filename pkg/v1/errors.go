package extract

import (
	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// The decoder's error types, re-exported so callers can match them with
// errors.As without reaching into internal packages. All four are
// fatal: extraction never skips a bad block.
type (
	// ErrCorruptBlob reports a blob that violates the file format.
	ErrCorruptBlob = pbf.ErrCorruptBlob

	// ErrSizeMismatch reports a blob whose decompressed size differs
	// from its declared raw_size.
	ErrSizeMismatch = pbf.ErrSizeMismatch

	// ErrTruncated reports a stream that ends mid-blob.
	ErrTruncated = pbf.ErrTruncated

	// ErrUnsupportedFeature reports a required feature this reader
	// does not implement.
	ErrUnsupportedFeature = pbf.ErrUnsupportedFeature
)
