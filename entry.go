package zipcore

import (
	"io"
	"strings"
	"time"
)

// Entry is the read-side view of one archived item (spec.md §3
// "Entry (read-side view)"). It is constructed during Reader open and is
// immutable thereafter; LocalExtras is fetched lazily and memoized.
type Entry struct {
	Path             string
	Comment          string
	VersionMadeBy    Version
	VersionNeeded    Version
	Flags            uint16
	Method           uint16
	ModifiedTime     time.Time
	CRC32            uint32
	UncompressedSize uint64
	CompressedSize   uint64
	ExternalAttrs    uint32
	InternalAttrs    uint16
	Extras           []extraField

	localHeaderOffset uint64
	diskStart         uint32

	ra           io.ReaderAt
	localExtras  []extraField
	localFetched bool
}

// IsDirectory reports whether the entry represents a directory, using the
// same trailing-slash convention the format itself uses (spec.md §3).
func (e *Entry) IsDirectory() bool {
	return strings.HasSuffix(e.Path, "/")
}

// IsUTF8 reports whether Path/Comment must be interpreted as UTF-8, per
// the EFS general-purpose bit (spec.md §6).
func (e *Entry) IsUTF8() bool {
	return e.Flags&flagEFS != 0
}

// Extract streams the entry's decompressed body to sink, returning the
// number of uncompressed bytes written (spec.md §4.6 "Entry extraction").
func (e *Entry) Extract(sink io.Writer) (uint64, error) {
	return extractEntry(e, sink)
}

// LocalExtras returns the extra records carried in the entry's local
// header (as opposed to the CDR-side Extras), fetching and memoizing them
// on first call (spec.md §3 "Entry ... lazily ... memoized").
func (e *Entry) LocalExtras() ([]extraField, error) {
	if e.localFetched {
		return e.localExtras, nil
	}
	extras, err := fetchLocalExtras(e.ra, e.localHeaderOffset)
	if err != nil {
		return nil, err
	}
	e.localExtras = extras
	e.localFetched = true
	return extras, nil
}
