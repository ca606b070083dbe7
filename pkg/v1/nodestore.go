package extract

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/syndtr/goleveldb/leveldb"
)

// NodeStore indexes the coordinates of nodes referenced by matched ways.
//
// The store holds only referenced ids, never the whole file: AddPending
// records an id seen in a kept way's ref list, Resolve attaches the
// coordinate once the node itself is scanned, and Get serves geometry
// building. Ids still pending after every node has been scanned are
// dangling references.
//
// Implementations are not safe for concurrent use; the extraction passes
// consume blocks sequentially.
type NodeStore interface {
	// AddPending records a node id awaiting resolution.
	AddPending(id int64)

	// IsPending reports whether the id is recorded and unresolved.
	IsPending(id int64) bool

	// Resolve stores the coordinate for a pending id and clears its
	// pending mark.
	Resolve(id int64, lat, lon float64) error

	// Get returns the resolved coordinate for an id.
	Get(id int64) (lat, lon float64, ok bool)

	// PendingCount returns the number of unresolved ids.
	PendingCount() int

	// Len returns the number of resolved coordinates.
	Len() int

	// Close releases any resources held by the store.
	Close() error
}

// coordinate is a resolved node position in decimal degrees.
type coordinate struct {
	lat, lon float64
}

// memoryStore keeps the node index in process memory.
type memoryStore struct {
	pending map[int64]struct{}
	coords  map[int64]coordinate
}

// NewMemoryStore returns an in-memory NodeStore. Suitable whenever the
// set of node ids referenced by matched ways fits in RAM.
func NewMemoryStore() NodeStore {
	return &memoryStore{
		pending: make(map[int64]struct{}),
		coords:  make(map[int64]coordinate),
	}
}

func (s *memoryStore) AddPending(id int64) {
	if _, ok := s.coords[id]; ok {
		return
	}
	s.pending[id] = struct{}{}
}

func (s *memoryStore) IsPending(id int64) bool {
	_, ok := s.pending[id]
	return ok
}

func (s *memoryStore) Resolve(id int64, lat, lon float64) error {
	delete(s.pending, id)
	s.coords[id] = coordinate{lat: lat, lon: lon}
	return nil
}

func (s *memoryStore) Get(id int64) (float64, float64, bool) {
	c, ok := s.coords[id]
	return c.lat, c.lon, ok
}

func (s *memoryStore) PendingCount() int { return len(s.pending) }
func (s *memoryStore) Len() int          { return len(s.coords) }
func (s *memoryStore) Close() error      { return nil }

// leveldbStore spills resolved coordinates to a LevelDB database so
// extracts whose referenced-node set exceeds RAM stay bounded. The
// pending id set stays in memory (8 bytes per id); only coordinates go
// to disk.
type leveldbStore struct {
	db      *leveldb.DB
	dir     string
	pending map[int64]struct{}
	len     int
}

// NewLevelDBStore returns a disk-backed NodeStore. The database lives in
// a scratch directory created under dir and removed by Close.
func NewLevelDBStore(dir string) (NodeStore, error) {
	scratch, err := os.MkdirTemp(dir, "nodestore-")
	if err != nil {
		return nil, fmt.Errorf("create node store directory: %w", err)
	}
	db, err := leveldb.OpenFile(scratch, nil)
	if err != nil {
		os.RemoveAll(scratch)
		return nil, fmt.Errorf("open node store: %w", err)
	}
	return &leveldbStore{
		db:      db,
		dir:     scratch,
		pending: make(map[int64]struct{}),
	}, nil
}

func (s *leveldbStore) AddPending(id int64) {
	s.pending[id] = struct{}{}
}

func (s *leveldbStore) IsPending(id int64) bool {
	_, ok := s.pending[id]
	return ok
}

func (s *leveldbStore) Resolve(id int64, lat, lon float64) error {
	var val [16]byte
	binary.BigEndian.PutUint64(val[:8], math.Float64bits(lat))
	binary.BigEndian.PutUint64(val[8:], math.Float64bits(lon))
	if err := s.db.Put(nodeKey(id), val[:], nil); err != nil {
		return fmt.Errorf("store node %d: %w", id, err)
	}
	delete(s.pending, id)
	s.len++
	return nil
}

func (s *leveldbStore) Get(id int64) (float64, float64, bool) {
	val, err := s.db.Get(nodeKey(id), nil)
	if err != nil || len(val) != 16 {
		return 0, 0, false
	}
	lat := math.Float64frombits(binary.BigEndian.Uint64(val[:8]))
	lon := math.Float64frombits(binary.BigEndian.Uint64(val[8:]))
	return lat, lon, true
}

func (s *leveldbStore) PendingCount() int { return len(s.pending) }
func (s *leveldbStore) Len() int          { return s.len }

func (s *leveldbStore) Close() error {
	err := s.db.Close()
	if rmErr := os.RemoveAll(s.dir); err == nil {
		err = rmErr
	}
	return err
}

func nodeKey(id int64) []byte {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], uint64(id))
	return key[:]
}
