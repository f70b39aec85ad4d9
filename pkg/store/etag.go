package store

import (
	"fmt"
	"io/fs"
)

// Metadata is the file metadata an ETag derives from. It is read from the
// filesystem on demand and never cached.
type Metadata struct {
	// Size is the object size in bytes.
	Size int64

	// ModSecs and ModNanos are the modification time split into whole
	// seconds since the Unix epoch and the nanosecond remainder.
	ModSecs  int64
	ModNanos int
}

// MetadataFromInfo extracts ETag-relevant metadata from a directory entry.
func MetadataFromInfo(fi fs.FileInfo) Metadata {
	mod := fi.ModTime()
	secs := mod.Unix()
	nanos := mod.Nanosecond()
	if secs < 0 {
		secs, nanos = 0, 0
	}
	return Metadata{
		Size:     fi.Size(),
		ModSecs:  secs,
		ModNanos: nanos,
	}
}

// ETag derives a weak validator from the metadata. Identical metadata always
// yields an identical tag; any change to size or modification time changes it.
func (m Metadata) ETag() string {
	return fmt.Sprintf("W/\"%d-%d-%d\"", m.Size, m.ModSecs, m.ModNanos)
}
