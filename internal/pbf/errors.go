package pbf

import (
	"fmt"
)

// ErrCorruptBlob indicates a blob that cannot be decoded as written
type ErrCorruptBlob struct {
	Offset int64
	Reason string
}

func (e *ErrCorruptBlob) Error() string {
	return fmt.Sprintf("corrupt blob at offset %d: %s", e.Offset, e.Reason)
}

// ErrSizeMismatch indicates a blob whose decompressed size does not match
// the size declared in its raw_size field
type ErrSizeMismatch struct {
	Offset   int64
	Declared int
	Actual   int
}

func (e *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("blob at offset %d: size mismatch (declared %d bytes, got %d)",
		e.Offset, e.Declared, e.Actual)
}

// ErrTruncated indicates the stream ended inside a length-prefixed unit
type ErrTruncated struct {
	Offset int64
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("truncated stream at offset %d", e.Offset)
}

// ErrUnsupportedFeature indicates a required feature flag in the file
// header that this decoder does not implement
type ErrUnsupportedFeature struct {
	Feature string
}

func (e *ErrUnsupportedFeature) Error() string {
	return fmt.Sprintf("unsupported required feature: %q", e.Feature)
}
