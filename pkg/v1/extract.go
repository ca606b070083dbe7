package extract

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// Extractor runs the tag-filtered extraction pipeline over a PBF file.
//
// Create one with NewExtractor and use Extract or ExtractWithOptions to
// stream JSON, or ExtractToSink to deliver features to any FeatureSink.
type Extractor interface {
	// Extract streams matching entities from the named PBF file to w as
	// a JSON feature array, using DefaultOptions.
	Extract(filename string, w io.Writer) (*Stats, error)

	// ExtractWithOptions is Extract with explicit options.
	ExtractWithOptions(filename string, w io.Writer, opts Options) (*Stats, error)

	// ExtractToSink delivers matching features to sink instead of
	// serializing them.
	ExtractToSink(filename string, sink FeatureSink, opts Options) (*Stats, error)
}

// Stats summarizes one extraction run.
type Stats struct {
	// Blocks is the number of data blocks in the file.
	Blocks int

	// Entities scanned during the emit pass, matched or not.
	NodesScanned     int64
	WaysScanned      int64
	RelationsScanned int64

	// Features is the number of features emitted.
	Features int64

	// DanglingRefs counts way refs that never resolved to a node.
	DanglingRefs int64

	// ReferencedNodes is the number of distinct node ids referenced by
	// matched ways. This, not the file's node count, bounds the memory
	// used by the node store.
	ReferencedNodes int
}

// NewExtractor returns an extractor keeping entities that satisfy the
// filter.
//
// Example:
//
//	ex := extract.NewExtractor(extract.MatchKeyValue("amenity", "cafe"))
//	stats, err := ex.Extract("washington.osm.pbf", os.Stdout)
func NewExtractor(filter *Filter) Extractor {
	return &extractor{filter: filter}
}

type extractor struct {
	filter *Filter
}

func (e *extractor) Extract(filename string, w io.Writer) (*Stats, error) {
	return e.ExtractToSink(filename, newJSONEmitter(w), DefaultOptions())
}

func (e *extractor) ExtractWithOptions(filename string, w io.Writer, opts Options) (*Stats, error) {
	return e.ExtractToSink(filename, newJSONEmitter(w), opts)
}

func (e *extractor) ExtractToSink(filename string, sink FeatureSink, opts Options) (*Stats, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filename, err)
	}
	defer f.Close()

	r, err := pbf.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return e.run(r, sink, opts)
}

// run executes the three streaming passes: collect the node ids
// referenced by matched ways, resolve those ids to coordinates, then
// build geometry and emit features in file order.
func (e *extractor) run(r *pbf.Reader, sink FeatureSink, opts Options) (*Stats, error) {
	store, err := newNodeStore(opts)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	ctx := context.Background()
	cache := newBlockCache(opts.BlockCacheSize)
	builder := &geometryBuilder{store: store, validate: opts.ValidateGeometry}
	logger := opts.logger()
	stats := &Stats{}

	// Pass 1: record every node id referenced by a matched way.
	err = forEachBlock(ctx, r, opts.Workers, cache, func(b *pbf.Block) error {
		for i := range b.Ways {
			w := &b.Ways[i]
			if !e.filter.Matches(w.Tags) {
				continue
			}
			for _, ref := range w.Refs {
				store.AddPending(ref)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.ReferencedNodes = store.PendingCount()
	if err := r.Rewind(); err != nil {
		return nil, err
	}

	// Pass 2: resolve recorded ids to coordinates, rounded to the
	// precision the source block can actually express.
	err = forEachBlock(ctx, r, opts.Workers, cache, func(b *pbf.Block) error {
		decimals := blockDecimals(b, opts)
		for i := range b.Nodes {
			n := &b.Nodes[i]
			if !store.IsPending(n.ID) {
				continue
			}
			if err := store.Resolve(n.ID, roundTo(n.Lat, decimals), roundTo(n.Lon, decimals)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := r.Rewind(); err != nil {
		return nil, err
	}

	// Pass 3: re-filter, build geometry, emit in file order.
	if err := sink.Begin(); err != nil {
		return nil, err
	}
	err = forEachBlock(ctx, r, opts.Workers, cache, func(b *pbf.Block) error {
		stats.Blocks++
		decimals := blockDecimals(b, opts)

		for i := range b.Nodes {
			n := &b.Nodes[i]
			stats.NodesScanned++
			if !e.filter.Matches(n.Tags) {
				continue
			}
			if opts.Bounds != nil && !opts.Bounds.Contains(n.Lon, n.Lat) {
				continue
			}
			geom, err := builder.nodeGeometry(*n, decimals)
			if err != nil {
				return err
			}
			if err := sink.Emit(&Feature{ID: n.ID, Type: "node", Tags: n.Tags, Geometry: geom}); err != nil {
				return err
			}
			stats.Features++
		}

		for i := range b.Ways {
			w := &b.Ways[i]
			stats.WaysScanned++
			if !e.filter.Matches(w.Tags) {
				continue
			}
			geom, dangling, err := builder.wayGeometry(*w)
			if err != nil {
				return err
			}
			if dangling > 0 {
				stats.DanglingRefs += int64(dangling)
				logger.Warn("way references missing nodes", "way", w.ID, "missing", dangling, "refs", len(w.Refs))
			}
			if err := sink.Emit(&Feature{ID: w.ID, Type: "way", Tags: w.Tags, Geometry: geom}); err != nil {
				return err
			}
			stats.Features++
		}

		for i := range b.Relations {
			rel := &b.Relations[i]
			stats.RelationsScanned++
			if !e.filter.Matches(rel.Tags) {
				continue
			}
			members := make([]FeatureMember, len(rel.Members))
			for j, m := range rel.Members {
				members[j] = FeatureMember{Type: m.Type.String(), Ref: m.Ref, Role: m.Role}
			}
			if err := sink.Emit(&Feature{ID: rel.ID, Type: "relation", Tags: rel.Tags, Members: members}); err != nil {
				return err
			}
			stats.Features++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := sink.End(); err != nil {
		return nil, err
	}
	return stats, nil
}

func newNodeStore(opts Options) (NodeStore, error) {
	if opts.NodeStoreDir != "" {
		return NewLevelDBStore(opts.NodeStoreDir)
	}
	return NewMemoryStore(), nil
}

func blockDecimals(b *pbf.Block, opts Options) int {
	if opts.Precision > 0 {
		return opts.Precision
	}
	return decimalsForGranularity(b.Granularity)
}
