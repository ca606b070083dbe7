package pbf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// RawBlob is one length-prefixed unit of the file, still compressed.
//
// Framing is read sequentially by the Reader; Decode may then run
// concurrently on distinct blobs, which is what allows block decoding to
// be parallelized without giving up deterministic output order.
type RawBlob struct {
	// Type is the blob type from the BlobHeader ("OSMHeader", "OSMData").
	Type string
	// Offset is the file offset of the blob's 4-byte length prefix.
	Offset int64

	data []byte // serialized Blob message
}

// blobHeader mirrors the fields of the OSMPBF BlobHeader message.
//
// Wire layout (fileformat.proto):
//
//	1: type     (string)
//	2: indexdata (bytes, ignored)
//	3: datasize (int32)
type blobHeader struct {
	typ      string
	datasize int64
}

func decodeBlobHeader(data []byte) (blobHeader, error) {
	var h blobHeader
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return h, protowire.ParseError(n)
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return h, protowire.ParseError(n)
			}
			data = data[n:]
			h.typ = string(v)
		case 3:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return h, protowire.ParseError(n)
			}
			data = data[n:]
			h.datasize = int64(v)
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return h, protowire.ParseError(n)
			}
			data = data[n:]
		}
	}
	if h.typ == "" {
		return h, fmt.Errorf("blob header missing type")
	}
	return h, nil
}

// Payload decompresses the blob body per its declared codec and verifies
// the decompressed length against the declared raw_size.
//
// Wire layout (fileformat.proto Blob):
//
//	1: raw       (bytes, uncompressed passthrough)
//	2: raw_size  (int32, size of the uncompressed data)
//	3: zlib_data (bytes)
//	4: lzma_data / 6: lz4_data / 7: zstd_data (unsupported codecs)
func (b *RawBlob) Payload() ([]byte, error) {
	var (
		raw      []byte
		zlibData []byte
		rawSize  = -1
	)

	data := b.data
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return nil, b.corrupt(protowire.ParseError(n).Error())
		}
		data = data[n:]
		switch num {
		case 1:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, b.corrupt(protowire.ParseError(n).Error())
			}
			data = data[n:]
			raw = v
		case 2:
			v, n := protowire.ConsumeVarint(data)
			if n < 0 {
				return nil, b.corrupt(protowire.ParseError(n).Error())
			}
			data = data[n:]
			rawSize = int(int32(v))
		case 3:
			v, n := protowire.ConsumeBytes(data)
			if n < 0 {
				return nil, b.corrupt(protowire.ParseError(n).Error())
			}
			data = data[n:]
			zlibData = v
		case 4, 5, 6, 7:
			return nil, b.corrupt(fmt.Sprintf("unsupported compression codec (field %d)", num))
		default:
			n := protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return nil, b.corrupt(protowire.ParseError(n).Error())
			}
			data = data[n:]
		}
	}

	switch {
	case raw != nil:
		if rawSize >= 0 && rawSize != len(raw) {
			return nil, &ErrSizeMismatch{Offset: b.Offset, Declared: rawSize, Actual: len(raw)}
		}
		return raw, nil

	case zlibData != nil:
		if rawSize < 0 {
			return nil, b.corrupt("compressed blob missing raw_size")
		}
		if rawSize > MaxBlobSize {
			return nil, b.corrupt(fmt.Sprintf("declared size %d exceeds maximum blob size", rawSize))
		}
		zr, err := zlib.NewReader(bytes.NewReader(zlibData))
		if err != nil {
			return nil, b.corrupt(fmt.Sprintf("zlib: %v", err))
		}
		defer zr.Close()

		// Read one byte past the declared size so an oversized body is
		// caught as a mismatch rather than silently trimmed.
		buf := make([]byte, 0, rawSize)
		out := bytes.NewBuffer(buf)
		n, err := io.Copy(out, io.LimitReader(zr, int64(rawSize)+1))
		if err != nil {
			return nil, b.corrupt(fmt.Sprintf("zlib: %v", err))
		}
		if int(n) != rawSize {
			return nil, &ErrSizeMismatch{Offset: b.Offset, Declared: rawSize, Actual: int(n)}
		}
		return out.Bytes(), nil

	default:
		return nil, b.corrupt("blob carries no data")
	}
}

// Decode decompresses the blob and decodes it as a PrimitiveBlock.
//
// Safe to call concurrently on distinct blobs.
func (b *RawBlob) Decode() (*Block, error) {
	payload, err := b.Payload()
	if err != nil {
		return nil, err
	}
	blk, err := decodePrimitiveBlock(payload)
	if err != nil {
		return nil, b.corrupt(err.Error())
	}
	return blk, nil
}

func (b *RawBlob) corrupt(reason string) error {
	return &ErrCorruptBlob{Offset: b.Offset, Reason: reason}
}
