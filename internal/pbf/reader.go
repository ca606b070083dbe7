package pbf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Size limits from the OSMPBF file format specification.
const (
	// MaxBlobHeaderSize is the maximum serialized BlobHeader size.
	MaxBlobHeaderSize = 64 * 1024
	// MaxBlobSize is the maximum size of an uncompressed blob body.
	MaxBlobSize = 32 * 1024 * 1024
)

const (
	blobTypeHeader = "OSMHeader"
	blobTypeData   = "OSMData"
)

// Reader streams the length-prefixed blobs of a PBF file.
//
// The first blob must be an OSMHeader; it is decoded eagerly by NewReader
// so that unsupported required features abort before any data is read.
// Next then yields OSMData blobs one at a time (unknown blob types are
// skipped per the format specification), and Rewind seeks back to the
// first data blob so the file can be streamed again for another pass.
//
// Framing is strictly sequential; decompression and block decoding live
// on RawBlob so they can be offloaded to worker goroutines.
type Reader struct {
	r         io.ReadSeeker
	offset    int64 // offset of the next length prefix
	dataStart int64 // offset of the first blob after the header
	header    *Header
}

// NewReader wraps r and decodes the file header.
//
// Returns ErrUnsupportedFeature if the header declares a required feature
// this decoder does not implement, or a format error if the stream does
// not begin with an OSMHeader blob.
func NewReader(r io.ReadSeeker) (*Reader, error) {
	rd := &Reader{r: r}
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek to start: %w", err)
	}

	blob, err := rd.readBlob()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &ErrTruncated{Offset: 0}
		}
		return nil, err
	}
	if blob.Type != blobTypeHeader {
		return nil, &ErrCorruptBlob{Offset: blob.Offset, Reason: fmt.Sprintf("first blob is %q, want %q", blob.Type, blobTypeHeader)}
	}

	payload, err := blob.Payload()
	if err != nil {
		return nil, err
	}
	header, err := decodeHeaderBlock(payload)
	if err != nil {
		return nil, &ErrCorruptBlob{Offset: blob.Offset, Reason: err.Error()}
	}
	for _, feature := range header.RequiredFeatures {
		if !supportedFeatures[feature] {
			return nil, &ErrUnsupportedFeature{Feature: feature}
		}
	}

	rd.header = header
	rd.dataStart = rd.offset
	return rd, nil
}

// Header returns the decoded file header.
func (r *Reader) Header() *Header {
	return r.header
}

// Next returns the next OSMData blob, or io.EOF at end of stream.
//
// Blobs of unknown type are skipped; the format reserves them for future
// use and instructs parsers to ignore them.
func (r *Reader) Next() (*RawBlob, error) {
	for {
		blob, err := r.readBlob()
		if err != nil {
			return nil, err
		}
		if blob.Type != blobTypeData {
			continue
		}
		return blob, nil
	}
}

// Rewind seeks back to the first data blob for the next streaming pass.
func (r *Reader) Rewind() error {
	if _, err := r.r.Seek(r.dataStart, io.SeekStart); err != nil {
		return fmt.Errorf("rewind: %w", err)
	}
	r.offset = r.dataStart
	return nil
}

// readBlob reads one length-prefixed blob: a 4-byte big-endian BlobHeader
// size, the BlobHeader, then datasize bytes of Blob body.
func (r *Reader) readBlob() (*RawBlob, error) {
	start := r.offset

	var prefix [4]byte
	if _, err := io.ReadFull(r.r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, io.EOF // clean end of stream
		}
		if err == io.ErrUnexpectedEOF {
			return nil, &ErrTruncated{Offset: start}
		}
		return nil, fmt.Errorf("read blob length at offset %d: %w", start, err)
	}
	headerSize := int64(binary.BigEndian.Uint32(prefix[:]))
	if headerSize <= 0 || headerSize > MaxBlobHeaderSize {
		return nil, &ErrCorruptBlob{Offset: start, Reason: fmt.Sprintf("blob header size %d out of range", headerSize)}
	}

	headerBytes := make([]byte, headerSize)
	if _, err := io.ReadFull(r.r, headerBytes); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &ErrTruncated{Offset: start}
		}
		return nil, fmt.Errorf("read blob header at offset %d: %w", start, err)
	}
	header, err := decodeBlobHeader(headerBytes)
	if err != nil {
		return nil, &ErrCorruptBlob{Offset: start, Reason: err.Error()}
	}
	if header.datasize <= 0 || header.datasize > MaxBlobSize {
		return nil, &ErrCorruptBlob{Offset: start, Reason: fmt.Sprintf("blob size %d out of range", header.datasize)}
	}

	body := make([]byte, header.datasize)
	if _, err := io.ReadFull(r.r, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, &ErrTruncated{Offset: start}
		}
		return nil, fmt.Errorf("read blob body at offset %d: %w", start, err)
	}

	r.offset = start + 4 + headerSize + header.datasize
	return &RawBlob{Type: header.typ, Offset: start, data: body}, nil
}
