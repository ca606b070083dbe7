package pbf

import (
	"google.golang.org/protobuf/encoding/protowire"
)

// supportedFeatures lists the required feature flags this decoder
// implements. Anything else in required_features aborts decoding;
// optional_features are informational and ignored.
var supportedFeatures = map[string]bool{
	"OsmSchema-V0.6": true,
	"DenseNodes":     true,
}

// Header is the decoded OSMHeader blob: the file-level metadata record
// that precedes all data blocks.
type Header struct {
	// Bounds is the declared bounding box of the file, if present.
	Bounds *BBox

	RequiredFeatures []string
	OptionalFeatures []string

	WritingProgram string
	Source         string

	// ReplicationTimestamp is the osmosis replication timestamp in
	// seconds since the epoch, 0 if absent.
	ReplicationTimestamp int64
	// ReplicationSequence is the osmosis replication sequence number.
	ReplicationSequence int64
}

// BBox is a bounding box in decimal degrees.
type BBox struct {
	Left   float64
	Right  float64
	Top    float64
	Bottom float64
}

// decodeHeaderBlock decodes an OSMPBF HeaderBlock message.
//
// Wire layout (osmformat.proto):
//
//	 1: bbox (HeaderBBox, nanodegrees)
//	 4: required_features (repeated string)
//	 5: optional_features (repeated string)
//	16: writingprogram
//	17: source
//	32: osmosis_replication_timestamp
//	33: osmosis_replication_sequence_number
func decodeHeaderBlock(data []byte) (*Header, error) {
	h := &Header{}
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
			bbox, err := decodeHeaderBBox(v)
			if err != nil {
				return nil, err
			}
			h.Bounds = bbox
		case 4:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			h.RequiredFeatures = append(h.RequiredFeatures, string(v))
		case 5:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			h.OptionalFeatures = append(h.OptionalFeatures, string(v))
		case 16:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			h.WritingProgram = string(v)
		case 17:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			h.Source = string(v)
		case 32:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			h.ReplicationTimestamp = int64(v)
		case 33:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			h.ReplicationSequence = int64(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	return h, nil
}

// decodeHeaderBBox decodes a HeaderBBox message. All four edges are
// sint64 nanodegrees (left=1, right=2, top=3, bottom=4).
func decodeHeaderBBox(data []byte) (*BBox, error) {
	b := &BBox{}
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		if typ != protowire.VarintType {
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, protowire.ParseError(n)
			}
			data = data[n:]
			continue
		}
		v, n := protowire.ConsumeVarint(data)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		data = data[n:]
		deg := float64(protowire.DecodeZigZag(v)) / 1e9
		switch num {
		case 1:
			b.Left = deg
		case 2:
			b.Right = deg
		case 3:
			b.Top = deg
		case 4:
			b.Bottom = deg
		}
	}
	return b, nil
}
