package extract

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// blockCache keeps recently decoded blocks across extraction passes,
// keyed by blob file offset, so small files are decompressed once
// instead of three times. A nil cache is valid and always misses.
type blockCache struct {
	c *lru.Cache[int64, *pbf.Block]
}

func newBlockCache(size int) *blockCache {
	if size <= 0 {
		return nil
	}
	c, err := lru.New[int64, *pbf.Block](size)
	if err != nil {
		return nil
	}
	return &blockCache{c: c}
}

func (bc *blockCache) get(offset int64) (*pbf.Block, bool) {
	if bc == nil {
		return nil, false
	}
	return bc.c.Get(offset)
}

func (bc *blockCache) add(offset int64, b *pbf.Block) {
	if bc == nil {
		return
	}
	bc.c.Add(offset, b)
}
