package extract

import (
	"log/slog"
	"runtime"
)

// Options configures extraction behavior.
type Options struct {
	// Workers is the number of goroutines decompressing and decoding
	// blocks concurrently. Values below 2 select the serial path.
	// Block order on the output is the same either way.
	Workers int

	// ValidateGeometry rejects coordinates outside the WGS-84 range
	// (|lat| <= 90, |lon| <= 180) with ErrInvalidCoordinate.
	ValidateGeometry bool

	// Precision is the number of decimal places kept on emitted
	// coordinates. If 0, precision is derived from each block's
	// granularity (the standard granularity of 100 nanodegrees gives
	// 7 decimal places).
	Precision int

	// NodeStoreDir selects the disk-backed node index. When non-empty,
	// resolved coordinates are stored in a LevelDB database under a
	// scratch directory created inside NodeStoreDir and removed when
	// extraction finishes. When empty, the index is held in memory.
	NodeStoreDir string

	// BlockCacheSize is the number of decoded blocks kept in an LRU
	// cache across passes, keyed by file offset. Zero or negative
	// disables the cache.
	BlockCacheSize int

	// Logger receives dangling-reference warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger

	// Bounds restricts matched nodes to a geographic bounding box.
	// Ways and relations are not bounds-filtered; their coordinates
	// are not known at filter time.
	Bounds *Bounds
}

// DefaultOptions returns options suitable for most extracts: parallel
// decoding, in-memory node index, geometry validation on.
func DefaultOptions() Options {
	return Options{
		Workers:          runtime.NumCPU(),
		ValidateGeometry: true,
		BlockCacheSize:   64,
	}
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
