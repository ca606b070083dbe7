package pbf

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// defaultGranularity is the coordinate resolution assumed when a block
// omits the granularity field: 100 nanodegrees, i.e. 1e-7 degree.
const defaultGranularity = 100

// decodePrimitiveBlock decodes an OSMData payload.
//
// Wire layout (osmformat.proto PrimitiveBlock):
//
//	 1: stringtable (StringTable)
//	 2: primitivegroup (repeated PrimitiveGroup)
//	17: granularity (int32, default 100)
//	19: lat_offset (int64, nanodegrees)
//	20: lon_offset (int64, nanodegrees)
//
// Granularity and the offsets may appear after the groups in the byte
// stream, so groups are collected first and decoded once the block-level
// parameters are known.
func decodePrimitiveBlock(data []byte) (*Block, error) {
	blk := &Block{Granularity: defaultGranularity}

	var stringTable []string
	var groups [][]byte

	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			st, err := decodeStringTable(v)
			if err != nil {
				return nil, err
			}
			stringTable = st
		case 2:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			groups = append(groups, v)
		case 17:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			if v == 0 {
				return nil, fmt.Errorf("granularity must be positive")
			}
			blk.Granularity = int64(v)
		case 19:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			blk.LatOffset = int64(v)
		case 20:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			blk.LonOffset = int64(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	for _, g := range groups {
		if err := decodePrimitiveGroup(g, stringTable, blk); err != nil {
			return nil, err
		}
	}
	return blk, nil
}

// decodeStringTable decodes the shared string table (repeated bytes s=1).
// Index 0 is always the empty string and is never a valid tag key.
func decodeStringTable(data []byte) ([]string, error) {
	var table []string
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if num != 1 {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		table = append(table, string(v))
	}
	return table, nil
}

// decodePrimitiveGroup decodes one PrimitiveGroup into blk.
//
// A group carries exactly one entity kind: plain nodes (1), dense nodes
// (2), ways (3), relations (4), or changesets (5, skipped).
func decodePrimitiveGroup(data []byte, st []string, blk *Block) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1, 2, 3, 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			var err error
			switch num {
			case 1:
				err = decodeNode(v, st, blk)
			case 2:
				err = decodeDenseNodes(v, st, blk)
			case 3:
				err = decodeWay(v, st, blk)
			case 4:
				err = decodeRelation(v, st, blk)
			}
			if err != nil {
				return err
			}
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return nil
}

// repeatedVarint consumes one occurrence of a repeated varint field,
// which may be packed (length-delimited) or a single unpacked value, and
// calls fn for each element. Returns the number of bytes consumed.
func repeatedVarint(data []byte, typ protowire.Type, fn func(uint64)) (int, error) {
	if typ == protowire.BytesType {
		v, n := protowire.ConsumeBytes(data)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(v) > 0 {
			u, m := protowire.ConsumeVarint(v)
			if m < 0 {
				return 0, protowire.ParseError(m)
			}
			v = v[m:]
			fn(u)
		}
		return n, nil
	}
	u, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	fn(u)
	return n, nil
}

// coord converts an integer coordinate to decimal degrees:
// 1e-9 * (offset + granularity * value).
func (b *Block) coord(offset, value int64) float64 {
	return 1e-9 * float64(offset+b.Granularity*value)
}

// tagsFromIndexes builds a tag map from parallel key/value string-table
// index lists. The map is always non-nil so empty tag sets serialize
// as an empty object downstream.
func tagsFromIndexes(keys, vals []uint64, st []string) (map[string]string, error) {
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("tag key/value count mismatch (%d keys, %d values)", len(keys), len(vals))
	}
	tags := make(map[string]string, len(keys))
	for i := range keys {
		k, err := tableString(st, keys[i])
		if err != nil {
			return nil, err
		}
		v, err := tableString(st, vals[i])
		if err != nil {
			return nil, err
		}
		tags[k] = v
	}
	return tags, nil
}

func tableString(st []string, i uint64) (string, error) {
	if i >= uint64(len(st)) {
		return "", fmt.Errorf("string table index %d out of range (table size %d)", i, len(st))
	}
	return st[i], nil
}

// decodeNode decodes a plain (non-dense) Node message:
// id=1 sint64, keys=2, vals=3, lat=8 sint64, lon=9 sint64.
func decodeNode(data []byte, st []string, blk *Block) error {
	var (
		id, lat, lon int64
		keys, vals   []uint64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1, 8, 9:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			switch num {
			case 1:
				id = protowire.DecodeZigZag(v)
			case 8:
				lat = protowire.DecodeZigZag(v)
			case 9:
				lon = protowire.DecodeZigZag(v)
			}
		case 2:
			n, err := repeatedVarint(data, typ, func(u uint64) { keys = append(keys, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 3:
			n, err := repeatedVarint(data, typ, func(u uint64) { vals = append(vals, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	tags, err := tagsFromIndexes(keys, vals, st)
	if err != nil {
		return fmt.Errorf("node %d: %w", id, err)
	}
	blk.Nodes = append(blk.Nodes, Node{
		ID:   id,
		Lat:  blk.coord(blk.LatOffset, lat),
		Lon:  blk.coord(blk.LonOffset, lon),
		Tags: tags,
	})
	return nil
}

// decodeDenseNodes decodes a DenseNodes message:
// id=1 packed sint64 (delta), lat=8/lon=9 packed sint64 (delta),
// keys_vals=10 packed int32 index runs terminated by 0.
//
// Ids and coordinates are delta-encoded relative to the previous entry in
// the same group; the cumulative sums are reconstructed here so callers
// only ever see absolute values.
func decodeDenseNodes(data []byte, st []string, blk *Block) error {
	var (
		ids, lats, lons []int64
		keysVals        []int64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			n, err := repeatedVarint(data, typ, func(u uint64) { ids = append(ids, protowire.DecodeZigZag(u)) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 8:
			n, err := repeatedVarint(data, typ, func(u uint64) { lats = append(lats, protowire.DecodeZigZag(u)) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 9:
			n, err := repeatedVarint(data, typ, func(u uint64) { lons = append(lons, protowire.DecodeZigZag(u)) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 10:
			n, err := repeatedVarint(data, typ, func(u uint64) { keysVals = append(keysVals, int64(int32(u))) })
			if err != nil {
				return err
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	if len(lats) != len(ids) || len(lons) != len(ids) {
		return fmt.Errorf("dense nodes: parallel list length mismatch (%d ids, %d lats, %d lons)",
			len(ids), len(lats), len(lons))
	}

	var id, lat, lon int64
	kv := 0
	for i := range ids {
		id += ids[i]
		lat += lats[i]
		lon += lons[i]

		tags := map[string]string{}
		// keys_vals is a single flattened run: key/value index pairs per
		// node, each node's run terminated by a 0 sentinel. An empty
		// keys_vals list means no node in the group has tags.
		for kv < len(keysVals) {
			if keysVals[kv] == 0 {
				kv++
				break
			}
			if kv+1 >= len(keysVals) {
				return fmt.Errorf("dense nodes: unterminated key/value run")
			}
			k, err := tableString(st, uint64(keysVals[kv]))
			if err != nil {
				return fmt.Errorf("node %d: %w", id, err)
			}
			v, err := tableString(st, uint64(keysVals[kv+1]))
			if err != nil {
				return fmt.Errorf("node %d: %w", id, err)
			}
			tags[k] = v
			kv += 2
		}

		blk.Nodes = append(blk.Nodes, Node{
			ID:   id,
			Lat:  blk.coord(blk.LatOffset, lat),
			Lon:  blk.coord(blk.LonOffset, lon),
			Tags: tags,
		})
	}
	return nil
}

// decodeWay decodes a Way message:
// id=1 int64, keys=2, vals=3, refs=8 packed sint64 (delta).
//
// Refs are delta-encoded relative to the previous ref in the same way.
func decodeWay(data []byte, st []string, blk *Block) error {
	var (
		id         int64
		keys, vals []uint64
		refs       []int64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			id = int64(v)
		case 2:
			n, err := repeatedVarint(data, typ, func(u uint64) { keys = append(keys, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 3:
			n, err := repeatedVarint(data, typ, func(u uint64) { vals = append(vals, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 8:
			n, err := repeatedVarint(data, typ, func(u uint64) { refs = append(refs, protowire.DecodeZigZag(u)) })
			if err != nil {
				return err
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	// Undo delta encoding in place.
	var ref int64
	for i := range refs {
		ref += refs[i]
		refs[i] = ref
	}

	tags, err := tagsFromIndexes(keys, vals, st)
	if err != nil {
		return fmt.Errorf("way %d: %w", id, err)
	}
	blk.Ways = append(blk.Ways, Way{ID: id, Refs: refs, Tags: tags})
	return nil
}

// decodeRelation decodes a Relation message:
// id=1 int64, keys=2, vals=3, roles_sid=8, memids=9 packed sint64
// (delta), types=10 packed enum.
func decodeRelation(data []byte, st []string, blk *Block) error {
	var (
		id         int64
		keys, vals []uint64
		roles      []uint64
		memids     []int64
		types      []uint64
	)
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
			id = int64(v)
		case 2:
			n, err := repeatedVarint(data, typ, func(u uint64) { keys = append(keys, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 3:
			n, err := repeatedVarint(data, typ, func(u uint64) { vals = append(vals, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 8:
			n, err := repeatedVarint(data, typ, func(u uint64) { roles = append(roles, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 9:
			n, err := repeatedVarint(data, typ, func(u uint64) { memids = append(memids, protowire.DecodeZigZag(u)) })
			if err != nil {
				return err
			}
			data = data[n:]
		case 10:
			n, err := repeatedVarint(data, typ, func(u uint64) { types = append(types, u) })
			if err != nil {
				return err
			}
			data = data[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return protowire.ParseError(n)
			}
			data = data[n:]
		}
	}

	if len(roles) != len(memids) || len(types) != len(memids) {
		return fmt.Errorf("relation %d: member list length mismatch (%d roles, %d ids, %d types)",
			id, len(roles), len(memids), len(types))
	}

	members := make([]Member, len(memids))
	var ref int64
	for i := range memids {
		ref += memids[i]
		role, err := tableString(st, roles[i])
		if err != nil {
			return fmt.Errorf("relation %d: %w", id, err)
		}
		if types[i] > uint64(MemberRelation) {
			return fmt.Errorf("relation %d: unknown member type %d", id, types[i])
		}
		members[i] = Member{Type: MemberType(types[i]), Ref: ref, Role: role}
	}

	tags, err := tagsFromIndexes(keys, vals, st)
	if err != nil {
		return fmt.Errorf("relation %d: %w", id, err)
	}
	blk.Relations = append(blk.Relations, Relation{ID: id, Members: members, Tags: tags})
	return nil
}
