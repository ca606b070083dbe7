package extract

import (
	"context"
	"io"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// forEachBlock streams every data block of r through fn, in file order.
//
// With fewer than two workers, blocks are read and decoded serially.
// Otherwise framing stays sequential on a producer goroutine while
// decompression and decoding fan out to a worker pool; a reordering
// buffer on the consumer side restores file order before fn runs, so
// the two paths are observably identical.
//
// fn is always called from a single goroutine. Any error, from decoding
// or from fn, cancels the pool and is returned.
func forEachBlock(ctx context.Context, r *pbf.Reader, workers int, cache *blockCache, fn func(*pbf.Block) error) error {
	if workers < 2 {
		return forEachBlockSerial(r, cache, fn)
	}

	type job struct {
		seq  int
		blob *pbf.RawBlob
	}
	type result struct {
		seq   int
		block *pbf.Block
	}

	g, ctx := errgroup.WithContext(ctx)
	jobs := make(chan job, workers)
	results := make(chan result, workers)

	g.Go(func() error {
		defer close(jobs)
		for seq := 0; ; seq++ {
			blob, err := r.Next()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return err
			}
			select {
			case jobs <- job{seq: seq, blob: blob}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	// Workers close the results channel once all of them are done, so
	// the consumer's range terminates even when a worker fails.
	var wg sync.WaitGroup
	wg.Add(workers)
	go func() {
		wg.Wait()
		close(results)
	}()
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			defer wg.Done()
			for j := range jobs {
				block, err := decodeCached(j.blob, cache)
				if err != nil {
					return err
				}
				select {
				case results <- result{seq: j.seq, block: block}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	g.Go(func() error {
		pending := make(map[int]*pbf.Block)
		next := 0
		for res := range results {
			pending[res.seq] = res.block
			for {
				block, ok := pending[next]
				if !ok {
					break
				}
				delete(pending, next)
				if err := fn(block); err != nil {
					return err
				}
				next++
			}
		}
		return nil
	})

	return g.Wait()
}

func forEachBlockSerial(r *pbf.Reader, cache *blockCache, fn func(*pbf.Block) error) error {
	for {
		blob, err := r.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		block, err := decodeCached(blob, cache)
		if err != nil {
			return err
		}
		if err := fn(block); err != nil {
			return err
		}
	}
}

func decodeCached(blob *pbf.RawBlob, cache *blockCache) (*pbf.Block, error) {
	if block, ok := cache.get(blob.Offset); ok {
		return block, nil
	}
	block, err := blob.Decode()
	if err != nil {
		return nil, err
	}
	cache.add(blob.Offset, block)
	return block, nil
}
