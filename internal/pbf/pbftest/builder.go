// Package pbftest builds small synthetic PBF files for tests.
//
// The builder writes the same wire layout the decoder reads: a 4-byte
// big-endian BlobHeader length prefix, the BlobHeader, and a Blob whose
// body is an optionally zlib-compressed PrimitiveBlock. It exists so
// package tests can exercise the decoder against files with known
// contents instead of fixture binaries.
package pbftest

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"math"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/BrunoGrandePhD/filter-osm/internal/pbf"
)

// Builder accumulates a PBF byte stream.
//
// The zero value is not usable; call New. Granularity and the offsets
// apply to all subsequently written blocks.
type Builder struct {
	buf bytes.Buffer

	// Granularity in nanodegrees (default 100).
	Granularity int64
	// LatOffset and LonOffset in nanodegrees.
	LatOffset int64
	LonOffset int64
	// Compress selects zlib blob bodies (default) or raw passthrough.
	Compress bool
	// BBox, when set, is written into the file header.
	BBox *pbf.BBox
}

// New returns a builder with the standard granularity and zlib
// compression enabled.
func New() *Builder {
	return &Builder{Granularity: 100, Compress: true}
}

// Bytes returns the accumulated file contents.
func (b *Builder) Bytes() []byte {
	return b.buf.Bytes()
}

// WriteHeader writes the OSMHeader blob. Every file must start with one.
func (b *Builder) WriteHeader(required ...string) {
	if required == nil {
		required = []string{"OsmSchema-V0.6", "DenseNodes"}
	}
	var body []byte
	if b.BBox != nil {
		var bbox []byte
		for i, deg := range []float64{b.BBox.Left, b.BBox.Right, b.BBox.Top, b.BBox.Bottom} {
			bbox = protowire.AppendTag(bbox, protowire.Number(i+1), protowire.VarintType)
			bbox = protowire.AppendVarint(bbox, protowire.EncodeZigZag(int64(math.Round(deg*1e9))))
		}
		body = protowire.AppendTag(body, 1, protowire.BytesType)
		body = protowire.AppendBytes(body, bbox)
	}
	for _, f := range required {
		body = protowire.AppendTag(body, 4, protowire.BytesType)
		body = protowire.AppendString(body, f)
	}
	body = protowire.AppendTag(body, 16, protowire.BytesType)
	body = protowire.AppendString(body, "pbftest")
	b.WriteBlob("OSMHeader", body)
}

// WriteDenseNodes writes one OSMData blob holding the nodes as a dense
// group: delta-encoded ids and coordinates, tags flattened into a
// keys_vals run with a 0 sentinel per node.
func (b *Builder) WriteDenseNodes(nodes ...pbf.Node) {
	st := newStringTable()
	var ids, lats, lons, keysVals []byte

	var prevID, prevLat, prevLon int64
	for _, n := range nodes {
		ids = protowire.AppendVarint(ids, protowire.EncodeZigZag(n.ID-prevID))
		lat := b.coordToInt(n.Lat, b.LatOffset)
		lon := b.coordToInt(n.Lon, b.LonOffset)
		lats = protowire.AppendVarint(lats, protowire.EncodeZigZag(lat-prevLat))
		lons = protowire.AppendVarint(lons, protowire.EncodeZigZag(lon-prevLon))
		prevID, prevLat, prevLon = n.ID, lat, lon

		for _, k := range sortedKeys(n.Tags) {
			keysVals = protowire.AppendVarint(keysVals, uint64(st.index(k)))
			keysVals = protowire.AppendVarint(keysVals, uint64(st.index(n.Tags[k])))
		}
		keysVals = protowire.AppendVarint(keysVals, 0)
	}

	var dense []byte
	dense = appendPacked(dense, 1, ids)
	dense = appendPacked(dense, 8, lats)
	dense = appendPacked(dense, 9, lons)
	dense = appendPacked(dense, 10, keysVals)

	var group []byte
	group = protowire.AppendTag(group, 2, protowire.BytesType)
	group = protowire.AppendBytes(group, dense)

	b.writeDataBlob(st, group)
}

// WritePlainNodes writes one OSMData blob with per-entity (non-dense)
// node encoding.
func (b *Builder) WritePlainNodes(nodes ...pbf.Node) {
	st := newStringTable()
	var group []byte
	for _, n := range nodes {
		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(n.ID))
		msg = appendTagIndexes(msg, st, n.Tags)
		msg = protowire.AppendTag(msg, 8, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(b.coordToInt(n.Lat, b.LatOffset)))
		msg = protowire.AppendTag(msg, 9, protowire.VarintType)
		msg = protowire.AppendVarint(msg, protowire.EncodeZigZag(b.coordToInt(n.Lon, b.LonOffset)))

		group = protowire.AppendTag(group, 1, protowire.BytesType)
		group = protowire.AppendBytes(group, msg)
	}
	b.writeDataBlob(st, group)
}

// WriteWays writes one OSMData blob holding the ways, refs
// delta-encoded.
func (b *Builder) WriteWays(ways ...pbf.Way) {
	st := newStringTable()
	var group []byte
	for _, w := range ways {
		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(w.ID))
		msg = appendTagIndexes(msg, st, w.Tags)

		var refs []byte
		var prev int64
		for _, r := range w.Refs {
			refs = protowire.AppendVarint(refs, protowire.EncodeZigZag(r-prev))
			prev = r
		}
		msg = appendPacked(msg, 8, refs)

		group = protowire.AppendTag(group, 3, protowire.BytesType)
		group = protowire.AppendBytes(group, msg)
	}
	b.writeDataBlob(st, group)
}

// WriteRelations writes one OSMData blob holding the relations, member
// ids delta-encoded.
func (b *Builder) WriteRelations(rels ...pbf.Relation) {
	st := newStringTable()
	var group []byte
	for _, r := range rels {
		var msg []byte
		msg = protowire.AppendTag(msg, 1, protowire.VarintType)
		msg = protowire.AppendVarint(msg, uint64(r.ID))
		msg = appendTagIndexes(msg, st, r.Tags)

		var roles, memids, types []byte
		var prev int64
		for _, m := range r.Members {
			roles = protowire.AppendVarint(roles, uint64(st.index(m.Role)))
			memids = protowire.AppendVarint(memids, protowire.EncodeZigZag(m.Ref-prev))
			prev = m.Ref
			types = protowire.AppendVarint(types, uint64(m.Type))
		}
		msg = appendPacked(msg, 8, roles)
		msg = appendPacked(msg, 9, memids)
		msg = appendPacked(msg, 10, types)

		group = protowire.AppendTag(group, 4, protowire.BytesType)
		group = protowire.AppendBytes(group, msg)
	}
	b.writeDataBlob(st, group)
}

// WriteBlob frames an arbitrary payload as a blob of the given type,
// honoring the builder's compression setting.
func (b *Builder) WriteBlob(typ string, payload []byte) {
	b.writeBlobSized(typ, payload, len(payload))
}

// WriteBlobDeclaredSize frames a payload with a deliberately wrong
// raw_size, for size-mismatch tests.
func (b *Builder) WriteBlobDeclaredSize(typ string, payload []byte, declared int) {
	b.writeBlobSized(typ, payload, declared)
}

func (b *Builder) writeBlobSized(typ string, payload []byte, declared int) {
	var blob []byte
	if b.Compress {
		var zbuf bytes.Buffer
		zw := zlib.NewWriter(&zbuf)
		zw.Write(payload)
		zw.Close()
		blob = protowire.AppendTag(blob, 2, protowire.VarintType)
		blob = protowire.AppendVarint(blob, uint64(declared))
		blob = protowire.AppendTag(blob, 3, protowire.BytesType)
		blob = protowire.AppendBytes(blob, zbuf.Bytes())
	} else {
		blob = protowire.AppendTag(blob, 1, protowire.BytesType)
		blob = protowire.AppendBytes(blob, payload)
		blob = protowire.AppendTag(blob, 2, protowire.VarintType)
		blob = protowire.AppendVarint(blob, uint64(declared))
	}

	var header []byte
	header = protowire.AppendTag(header, 1, protowire.BytesType)
	header = protowire.AppendString(header, typ)
	header = protowire.AppendTag(header, 3, protowire.VarintType)
	header = protowire.AppendVarint(header, uint64(len(blob)))

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(header)))
	b.buf.Write(prefix[:])
	b.buf.Write(header)
	b.buf.Write(blob)
}

func (b *Builder) writeDataBlob(st *stringTable, group []byte) {
	var block []byte
	block = protowire.AppendTag(block, 1, protowire.BytesType)
	block = protowire.AppendBytes(block, st.encode())
	block = protowire.AppendTag(block, 2, protowire.BytesType)
	block = protowire.AppendBytes(block, group)
	block = protowire.AppendTag(block, 17, protowire.VarintType)
	block = protowire.AppendVarint(block, uint64(b.Granularity))
	block = protowire.AppendTag(block, 19, protowire.VarintType)
	block = protowire.AppendVarint(block, uint64(b.LatOffset))
	block = protowire.AppendTag(block, 20, protowire.VarintType)
	block = protowire.AppendVarint(block, uint64(b.LonOffset))
	b.WriteBlob("OSMData", block)
}

// coordToInt converts degrees to the block-local integer representation.
func (b *Builder) coordToInt(deg float64, offset int64) int64 {
	return int64(math.Round((deg*1e9 - float64(offset)) / float64(b.Granularity)))
}

func appendTagIndexes(msg []byte, st *stringTable, tags map[string]string) []byte {
	var keys, vals []byte
	for _, k := range sortedKeys(tags) {
		keys = protowire.AppendVarint(keys, uint64(st.index(k)))
		vals = protowire.AppendVarint(vals, uint64(st.index(tags[k])))
	}
	msg = appendPacked(msg, 2, keys)
	msg = appendPacked(msg, 3, vals)
	return msg
}

// appendPacked appends a packed repeated field, skipping the field
// entirely when it has no elements.
func appendPacked(msg []byte, num protowire.Number, packed []byte) []byte {
	if len(packed) == 0 {
		return msg
	}
	msg = protowire.AppendTag(msg, num, protowire.BytesType)
	return protowire.AppendBytes(msg, packed)
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// stringTable interns strings; index 0 is reserved for the empty string.
type stringTable struct {
	byValue map[string]int
	values  []string
}

func newStringTable() *stringTable {
	return &stringTable{byValue: map[string]int{"": 0}, values: []string{""}}
}

func (st *stringTable) index(s string) int {
	if i, ok := st.byValue[s]; ok {
		return i
	}
	i := len(st.values)
	st.byValue[s] = i
	st.values = append(st.values, s)
	return i
}

func (st *stringTable) encode() []byte {
	var out []byte
	for _, s := range st.values {
		out = protowire.AppendTag(out, 1, protowire.BytesType)
		out = protowire.AppendString(out, s)
	}
	return out
}
