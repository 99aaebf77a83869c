// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"io"
	"os"
	"strings"
	"time"
)

// WriterOptions configures a Writer at construction (spec.md §6
// "open_writer").
type WriterOptions struct {
	// Comment is the archive-wide comment, up to 65535 bytes.
	Comment string

	// MadeByVersion overrides the version-made-by field; the zero Version
	// (0.0) is the spec.md §6 default.
	MadeByVersion Version

	// StartingOffset is the number of bytes the caller has already
	// written to the stream before this session begins (e.g. a
	// self-extracting stub), recovered from the teacher's
	// Template.PrefixSize field per SPEC_FULL.md §3. It participates in
	// ZIP64 promotion exactly as if the Writer itself had emitted that
	// many filler bytes (SPEC_FULL.md §9, resolving the starting_offset
	// Open Question).
	StartingOffset uint64
}

// AddOptions configures one call to Writer.Add/AddBytes/AddDir (spec.md §6
// "Recognized options").
type AddOptions struct {
	// Method is the compression method; Store or Deflate. The zero value
	// means "use the default" (Deflate for Add/AddBytes, Store is forced
	// for AddDir regardless of this field).
	Method uint16
	// HasMethod distinguishes "Method explicitly set to Store" from "left
	// at the zero value", since Store is also 0.
	HasMethod bool

	// ModifiedTime defaults to the current time if zero.
	ModifiedTime time.Time

	// Comment is the per-entry comment, 0-65535 bytes.
	Comment string

	// ForceZip64 forces ZIP64 promotion for this member regardless of its
	// observed size or offset (spec.md §6 "zip64" option).
	ForceZip64 bool

	// ExternalAttrs is stored and round-tripped as a raw integer only.
	ExternalAttrs uint32

	// NonUTF8 asserts Path/Comment are not UTF-8 (spec.md §3 "flags").
	NonUTF8 bool
}

// Writer is the streaming ZIP writer state machine of spec.md §4.5: Open
// until Close is called, one-way to Closed.
type Writer struct {
	w              io.Writer
	startingOffset uint64
	offset         uint64 // bytes emitted by this session, excludes startingOffset
	members        []*Member
	comment        string
	madeBy         Version
	closed         bool
}

// OpenWriter begins a streaming write session over w (spec.md §6
// "open_writer").
func OpenWriter(w io.Writer, opts WriterOptions) (*Writer, error) {
	if len(opts.Comment) > uint16max {
		return nil, newErr(InvalidInput, "archive comment too long")
	}
	return &Writer{
		w:              w,
		startingOffset: opts.StartingOffset,
		comment:        opts.Comment,
		madeBy:         opts.MadeByVersion,
	}, nil
}

// BytesWritten returns the number of bytes emitted by this session so far
// (excludes StartingOffset).
func (wr *Writer) BytesWritten() uint64 { return wr.offset }

func (wr *Writer) absoluteOffset() uint64 { return wr.startingOffset + wr.offset }

type countingWriterFunc struct {
	wr *Writer
}

func (c countingWriterFunc) Write(p []byte) (int, error) {
	n, err := c.wr.w.Write(p)
	c.wr.offset += uint64(n)
	return n, err
}

// Add streams body as a new file member named path and returns the number
// of bytes written to the archive stream for this member (header + body +
// footer), per spec.md §6 "Writer.add".
func (wr *Writer) Add(path string, body io.Reader, opts AddOptions) (uint64, error) {
	return wr.add(path, KindFile, body, opts)
}

// AddBytes streams a fixed payload as a new file member, per spec.md §6
// "Writer.add_bytes".
func (wr *Writer) AddBytes(path string, payload []byte, opts AddOptions) (uint64, error) {
	return wr.add(path, KindFile, strings.NewReader(string(payload)), opts)
}

// AddFile opens diskPath and streams its contents as a new file member
// named archivePath, defaulting ModifiedTime from the file's own mtime
// when unset. This is the ergonomic convenience the teacher's
// FileInfoHeader gave its HTTP-serving model, adapted here to the
// streaming Writer (SPEC_FULL.md §6).
func (wr *Writer) AddFile(archivePath, diskPath string, opts AddOptions) (uint64, error) {
	f, err := os.Open(diskPath)
	if err != nil {
		return 0, wrapErr(IoError, "opening source file", err)
	}
	defer f.Close()

	if opts.ModifiedTime.IsZero() {
		if fi, err := f.Stat(); err == nil {
			opts.ModifiedTime = fi.ModTime()
		}
	}
	return wr.add(archivePath, KindFile, f, opts)
}

// AddDir adds a zero-length directory member. Method is always Store.
func (wr *Writer) AddDir(path string, opts AddOptions) (uint64, error) {
	if !strings.HasSuffix(path, "/") {
		path += "/"
	}
	opts.Method = Store
	opts.HasMethod = true
	return wr.add(path, KindDirectory, nil, opts)
}

// add implements the spec.md §4.5 "add(member)" protocol.
func (wr *Writer) add(path string, kind Kind, body io.Reader, opts AddOptions) (uint64, error) {
	if wr.closed {
		return 0, newErr(InvalidInput, "writer already closed")
	}
	if err := validatePath(path); err != nil {
		return 0, err
	}
	if len(opts.Comment) > uint16max {
		return 0, newErr(InvalidInput, "member comment too long")
	}

	method := opts.Method
	if !opts.HasMethod {
		method = Deflate
	}
	if kind == KindDirectory {
		method = Store
	}
	if method != Store && method != Deflate {
		return 0, newErr(UnsupportedMethod, "compression method must be Store or Deflate")
	}

	modTime := opts.ModifiedTime
	if modTime.IsZero() {
		modTime = time.Now()
	}

	m := &Member{
		Path:          path,
		Kind:          kind,
		Method:        method,
		ModifiedTime:  modTime,
		Comment:       opts.Comment,
		NonUTF8:       opts.NonUTF8,
		ExternalAttrs: opts.ExternalAttrs,
		ForceZip64:    opts.ForceZip64,
	}
	if kind == KindDirectory {
		m.ExternalAttrs |= 0x10 // MS-DOS directory bit, matches the teacher's msdosDir
	}

	sessionStart := wr.offset
	start := wr.absoluteOffset()
	m.localHeaderOff = start
	// Rule (c) of spec.md §3's zip64 derivation: offset-based promotion.
	// This is the only decision available before the body is streamed;
	// rule (b) (size-based promotion) is evaluated again after streaming
	// and affects the data descriptor and CDR but, per spec.md §4.9,
	// never the already-written local header.
	offsetZip64 := start >= uint32max
	headerZip64 := opts.ForceZip64 || offsetZip64

	flags := flagFooter
	if kind == KindDirectory {
		flags &^= flagFooter
	}
	valid1, require1 := detectUTF8(m.Path)
	valid2, require2 := detectUTF8(m.Comment)
	if opts.NonUTF8 {
		flags &^= flagEFS
	} else if (require1 || require2) && valid1 && valid2 {
		flags |= flagEFS
	}

	versionNeeded := versionClassic
	if headerZip64 {
		versionNeeded = versionZip64
	}

	var extras []extraField
	var headerOffsetExtra *uint64
	if headerZip64 && offsetZip64 {
		v := start
		headerOffsetExtra = &v
	}
	if headerZip64 {
		// Placeholders for sizes are written now with zero values; the
		// true values are only known after streaming the body, so the
		// ZIP64 extra in the local header carries zeros here and is not
		// patched afterward (per spec.md §4.9: "must not seek backward to
		// patch the local header under any circumstance"). The data
		// descriptor carries the true sizes instead; readers that need
		// ZIP64 sizes from the local header alone (none in this spec) are
		// out of scope.
		var usize, csize uint64
		extras = append(extras, buildZip64Extra(&usize, &csize, headerOffsetExtra, nil))
	}
	extras = append(extras, extendedTimestampExtra(modTime.Unix()))
	extraBytes := serializeExtras(extras)

	date, dtime := timeToDOSTime(modTime)
	lh := localHeader{
		VersionNeeded: versionNeeded.encode(),
		Flags:         flags,
		Method:        method,
		ModTime:       dtime,
		ModDate:       date,
		NameLen:       uint16(len(m.Path)),
		ExtraLen:      uint16(len(extraBytes)),
	}
	if headerZip64 {
		lh.CompressedSize = uint32max
		lh.UncompressedSize = uint32max
	}
	if err := wr.emit(func(w io.Writer) error { return writeLocalHeader(w, lh) }); err != nil {
		return 0, err
	}
	if err := wr.emit(func(w io.Writer) error { _, err := io.WriteString(w, m.Path); return err }); err != nil {
		return 0, err
	}
	if err := wr.emit(func(w io.Writer) error { _, err := w.Write(extraBytes); return err }); err != nil {
		return 0, err
	}

	if kind == KindFile {
		res, err := compressStream(countingWriterFunc{wr}, body, method)
		if err != nil {
			return wr.offset - sessionStart, err
		}
		m.crc32 = res.CRC32
		m.uncompressedSize = res.UncompressedSize
		m.compressedSize = res.CompressedSize
	}

	finalZip64 := headerZip64 || m.isZip64()
	m.zip64 = finalZip64

	if kind == KindFile {
		dd := dataDescriptor{CRC32: m.crc32, CompressedSize: m.compressedSize, UncompressedSize: m.uncompressedSize, Zip64: finalZip64}
		if err := wr.emit(func(w io.Writer) error { return writeDataDescriptor(w, dd) }); err != nil {
			return wr.offset - sessionStart, err
		}
	}

	wr.members = append(wr.members, m)
	return wr.offset - sessionStart, nil
}

// emit is a small helper so every byte-producing step in add() updates
// wr.offset uniformly.
func (wr *Writer) emit(f func(io.Writer) error) error {
	cw := &countWriter{w: wr.w}
	if err := f(cw); err != nil {
		wr.offset += uint64(cw.count)
		return wrapErr(IoError, "writing to archive stream", err)
	}
	wr.offset += uint64(cw.count)
	return nil
}

// Close implements the spec.md §4.5 "close" protocol: walks the entry
// list emitting the central directory, conditionally emits a ZIP64
// trailer, and emits the EOCD. Close is idempotent: a second call is a
// no-op returning the same total.
func (wr *Writer) Close() (uint64, error) {
	if wr.closed {
		return wr.offset, nil
	}
	wr.closed = true

	cdrStart := wr.absoluteOffset()
	for _, m := range wr.members {
		if err := wr.writeCDREntryFor(m); err != nil {
			return wr.offset, err
		}
	}
	cdrEnd := wr.absoluteOffset()
	cdrLen := cdrEnd - cdrStart
	count := uint64(len(wr.members))

	needZip64 := cdrStart >= uint32max || cdrLen >= uint32max || count >= uint16max
	if needZip64 {
		end := zip64EOCD{
			VersionMadeBy: orDefault(wr.madeBy, versionDefault).encode(),
			VersionNeeded: versionZip64.encode(),
			DiskEntries:   count,
			TotalEntries:  count,
			CDRLength:     cdrLen,
			CDROffset:     cdrStart,
		}
		zip64EOCDOffset := wr.absoluteOffset()
		if err := wr.emit(func(w io.Writer) error { return writeZip64EOCD(w, end) }); err != nil {
			return wr.offset, err
		}
		loc := zip64Locator{Zip64EOCDOffset: zip64EOCDOffset, TotalDisks: 1}
		if err := wr.emit(func(w io.Writer) error { return writeZip64Locator(w, loc) }); err != nil {
			return wr.offset, err
		}
	}

	e := eocd{
		DiskEntries:  sentinel16(count, needZip64 || count >= uint16max),
		TotalEntries: sentinel16(count, needZip64 || count >= uint16max),
		CDRLength:    sentinel32(cdrLen, needZip64 || cdrLen >= uint32max),
		CDROffset:    sentinel32(cdrStart, needZip64 || cdrStart >= uint32max),
		CommentLen:   uint16(len(wr.comment)),
	}
	if err := wr.emit(func(w io.Writer) error { return writeEOCD(w, e) }); err != nil {
		return wr.offset, err
	}
	if err := wr.emit(func(w io.Writer) error { _, err := io.WriteString(w, wr.comment); return err }); err != nil {
		return wr.offset, err
	}

	return wr.offset, nil
}

func orDefault(v, fallback Version) Version {
	if v == (Version{}) {
		return fallback
	}
	return v
}

func sentinel16(v uint64, overflow bool) uint16 {
	if overflow || v >= uint16max {
		return uint16max
	}
	return uint16(v)
}

func sentinel32(v uint64, overflow bool) uint32 {
	if overflow || v >= uint32max {
		return uint32max
	}
	return uint32(v)
}

func (wr *Writer) writeCDREntryFor(m *Member) error {
	versionNeeded := versionClassic
	if m.zip64 {
		versionNeeded = versionZip64
	}
	madeBy := orDefault(wr.madeBy, versionDefault)

	flags := flagFooter
	if m.Kind == KindDirectory {
		flags &^= flagFooter
	}
	valid1, require1 := detectUTF8(m.Path)
	valid2, require2 := detectUTF8(m.Comment)
	if m.NonUTF8 {
		flags &^= flagEFS
	} else if (require1 || require2) && valid1 && valid2 {
		flags |= flagEFS
	}

	offsetOverflow := m.localHeaderOff >= uint32max
	var extras []extraField
	if m.zip64 {
		// The fixed-record size fields are always sentinelized below
		// whenever m.zip64 is set (see sentinel32 calls), so the ZIP64
		// extra must always carry both true sizes to match; the offset
		// field is added only when it actually overflows 32 bits, per
		// spec.md §3 and its scenario 6 ("CDR entry carries a ZIP64
		// extra with 16 bytes of payload (sizes only)").
		usize, csize := m.uncompressedSize, m.compressedSize
		var off *uint64
		if offsetOverflow {
			o := m.localHeaderOff
			off = &o
		}
		extras = append(extras, buildZip64Extra(&usize, &csize, off, nil))
	}
	extras = append(extras, extendedTimestampExtra(m.ModifiedTime.Unix()))
	extraBytes := serializeExtras(extras)

	date, dtime := timeToDOSTime(m.ModifiedTime)
	entry := cdrEntry{
		VersionMadeBy:    madeBy.encode(),
		VersionNeeded:    versionNeeded.encode(),
		Flags:            flags,
		Method:           m.Method,
		ModTime:          dtime,
		ModDate:          date,
		CRC32:            m.crc32,
		CompressedSize:   sentinel32(m.compressedSize, m.zip64),
		UncompressedSize: sentinel32(m.uncompressedSize, m.zip64),
		NameLen:          uint16(len(m.Path)),
		ExtraLen:         uint16(len(extraBytes)),
		CommentLen:       uint16(len(m.Comment)),
		ExternalAttrs:    m.ExternalAttrs,
		LocalHeaderOff:   sentinel32(m.localHeaderOff, offsetOverflow),
	}
	if err := wr.emit(func(w io.Writer) error { return writeCDREntry(w, entry) }); err != nil {
		return err
	}
	if err := wr.emit(func(w io.Writer) error { _, err := io.WriteString(w, m.Path); return err }); err != nil {
		return err
	}
	if err := wr.emit(func(w io.Writer) error { _, err := w.Write(extraBytes); return err }); err != nil {
		return err
	}
	if err := wr.emit(func(w io.Writer) error { _, err := io.WriteString(w, m.Comment); return err }); err != nil {
		return err
	}
	return nil
}
