package zipcore

import (
	"context"
	"encoding/binary"
	"io"
)

// OpenReader opens a streaming read session over r, which must expose the
// full archive of the given size (spec.md §6 "open_reader").
func OpenReader(r io.ReaderAt, size int64) (*Archive, error) {
	return OpenReaderContext(context.Background(), asReaderAt(r), size)
}

// OpenReaderContext is OpenReader with an explicit context threaded to
// every backing read, for callers whose ReaderAt implements the
// context-aware ReaderAt interface of this package (e.g. a remote store).
func OpenReaderContext(ctx context.Context, ra ReaderAt, size int64) (*Archive, error) {
	if size < directoryEndLen {
		return nil, newErr(FormatViolation, "EOCD not found")
	}

	eocdAbsOffset, eocdBuf, err := findEOCD(ctx, ra, size)
	if err != nil {
		return nil, err
	}
	e, err := parseEOCD(eocdBuf)
	if err != nil {
		return nil, err
	}
	comment := eocdBuf[directoryEndLen : directoryEndLen+int(e.CommentLen)]

	if e.ThisDisk != 0 || e.CDRDisk != 0 || e.DiskEntries != e.TotalEntries {
		return nil, newErr(UnsupportedMethod, "multi-disk not supported")
	}

	var (
		totalEntries uint64
		cdrLength    uint64
		cdrOffset    uint64
	)
	totalEntries = uint64(e.TotalEntries)
	cdrLength = uint64(e.CDRLength)
	cdrOffset = uint64(e.CDROffset)

	needsZip64 := e.TotalEntries == uint16max || e.CDRLength == uint32max || e.CDROffset == uint32max
	if needsZip64 {
		z64, err := chaseZip64(ctx, ra, eocdAbsOffset)
		if err != nil {
			return nil, err
		}
		if z64.ThisDisk != 0 || z64.CDRDisk != 0 || z64.DiskEntries != z64.TotalEntries {
			return nil, newErr(UnsupportedMethod, "multi-disk not supported")
		}
		totalEntries = z64.TotalEntries
		cdrLength = z64.CDRLength
		cdrOffset = z64.CDROffset
	}

	if cdrOffset+cdrLength > uint64(eocdAbsOffset) {
		return nil, newErr(FormatViolation, "invalid central directory offset/length")
	}

	entries, err := parseCDR(ctx, ra, cdrOffset, cdrLength, totalEntries)
	if err != nil {
		return nil, err
	}

	ar := &Archive{
		entries: entries,
		comment: string(comment),
		index:   make(map[string]int, len(entries)),
	}
	for i, ent := range entries {
		if _, ok := ar.index[ent.Path]; !ok {
			ar.index[ent.Path] = i
		}
	}
	return ar, nil
}

// tailScanWindow bounds how much of the archive's tail findEOCD reads in
// one shot: the fixed EOCD size plus the maximum possible comment length
// (spec.md §4.6, §9 resolving the "one byte at a time" Open Question).
const tailScanWindow = directoryEndLen + uint16max

// findEOCD implements spec.md §4.6's tail scan, reading a single bounded
// tail buffer and scanning backward within it rather than issuing one
// syscall per byte, while preserving "the match closest to EOF wins"
// semantics (SPEC_FULL.md §9).
func findEOCD(ctx context.Context, ra ReaderAt, size int64) (int64, []byte, error) {
	window := int64(tailScanWindow)
	if window > size {
		window = size
	}
	start := size - window
	buf := make([]byte, window)
	if err := readFullAt(ctx, ra, buf, start); err != nil {
		return 0, nil, err
	}

	for i := len(buf) - directoryEndLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) != directoryEndSignature {
			continue
		}
		commentLen := int(binary.LittleEndian.Uint16(buf[i+20 : i+22]))
		if i+directoryEndLen+commentLen == len(buf) {
			return start + int64(i), buf[i : i+directoryEndLen+commentLen], nil
		}
	}
	return 0, nil, newErr(FormatViolation, "EOCD not found")
}

// zip64LocatorScanWindow bounds the backward scan for the ZIP64 locator
// that must immediately precede the EOCD; real producers (including this
// package's own Writer) always place it there with no gap, but spec.md
// §4.6 allows a tolerant backward scan, so a small window is checked
// before giving up.
const zip64LocatorScanWindow = 4096

func chaseZip64(ctx context.Context, ra ReaderAt, eocdAbsOffset int64) (zip64EOCD, error) {
	window := int64(zip64LocatorScanWindow)
	if window > eocdAbsOffset {
		window = eocdAbsOffset
	}
	start := eocdAbsOffset - window
	buf := make([]byte, window)
	if err := readFullAt(ctx, ra, buf, start); err != nil {
		return zip64EOCD{}, err
	}

	locOffset := int64(-1)
	for i := len(buf) - directory64LocLen; i >= 0; i-- {
		if binary.LittleEndian.Uint32(buf[i:]) == directory64LocSignature {
			locOffset = start + int64(i)
			break
		}
	}
	if locOffset < 0 {
		return zip64EOCD{}, newErr(FormatViolation, "ZIP64 locator not found")
	}

	locBuf := make([]byte, directory64LocLen)
	if err := readFullAt(ctx, ra, locBuf, locOffset); err != nil {
		return zip64EOCD{}, err
	}
	loc, err := parseZip64Locator(locBuf)
	if err != nil {
		return zip64EOCD{}, err
	}
	if loc.Zip64EOCDDisk != 0 || loc.TotalDisks > 1 {
		return zip64EOCD{}, newErr(UnsupportedMethod, "multi-disk not supported")
	}

	fixedBuf := make([]byte, directory64EndLen)
	if err := readFullAt(ctx, ra, fixedBuf, int64(loc.Zip64EOCDOffset)); err != nil {
		return zip64EOCD{}, err
	}
	return parseZip64EOCD(fixedBuf)
}

// parseCDR implements spec.md §4.6 step 6: read exactly totalEntries CDR
// records sequentially starting at cdrOffset, failing if any record's end
// advances the cursor past cdrOffset+cdrLength.
func parseCDR(ctx context.Context, ra ReaderAt, cdrOffset, cdrLength, totalEntries uint64) ([]*Entry, error) {
	limit := cdrOffset + cdrLength
	cursor := cdrOffset
	entries := make([]*Entry, 0, totalEntries)

	for i := uint64(0); i < totalEntries; i++ {
		fixed := make([]byte, directoryHeaderLen)
		if err := readFullAt(ctx, ra, fixed, int64(cursor)); err != nil {
			return nil, err
		}
		rec, err := parseCDREntry(fixed)
		if err != nil {
			return nil, err
		}
		cursor += directoryHeaderLen

		varLen := int(rec.NameLen) + int(rec.ExtraLen) + int(rec.CommentLen)
		varBuf := make([]byte, varLen)
		if varLen > 0 {
			if err := readFullAt(ctx, ra, varBuf, int64(cursor)); err != nil {
				return nil, err
			}
		}
		cursor += uint64(varLen)
		if cursor > limit {
			return nil, newErr(FormatViolation, "read past CDR")
		}

		name := string(varBuf[:rec.NameLen])
		extraBytes := varBuf[rec.NameLen : int(rec.NameLen)+int(rec.ExtraLen)]
		comment := string(varBuf[int(rec.NameLen)+int(rec.ExtraLen):])

		extras, err := parseExtras(extraBytes)
		if err != nil {
			return nil, err
		}

		if rec.DiskStart != 0 && rec.DiskStart != uint16max {
			return nil, newErr(UnsupportedMethod, "multi-disk not supported")
		}

		uncompressed := uint64(rec.UncompressedSize)
		compressed := uint64(rec.CompressedSize)
		localOff := uint64(rec.LocalHeaderOff)
		var diskStart uint32

		wantUncompressed := rec.UncompressedSize == uint32max
		wantCompressed := rec.CompressedSize == uint32max
		wantOffset := rec.LocalHeaderOff == uint32max
		wantDisk := rec.DiskStart == uint16max

		if wantUncompressed || wantCompressed || wantOffset || wantDisk {
			for _, ex := range extras {
				if ex.Code != zip64ExtraID {
					continue
				}
				z64, err := parseZip64Extra(ex.Payload, wantUncompressed, wantCompressed, wantOffset, wantDisk)
				if err != nil {
					return nil, err
				}
				if z64.UncompressedSize != nil {
					uncompressed = *z64.UncompressedSize
				}
				if z64.CompressedSize != nil {
					compressed = *z64.CompressedSize
				}
				if z64.LocalHeaderOffset != nil {
					localOff = *z64.LocalHeaderOffset
				}
				if z64.DiskStart != nil {
					diskStart = *z64.DiskStart
				}
				break
			}
		}
		if diskStart != 0 {
			return nil, newErr(UnsupportedMethod, "multi-disk not supported")
		}

		entries = append(entries, &Entry{
			Path:              name,
			Comment:           comment,
			VersionMadeBy:     decodeVersion(rec.VersionMadeBy),
			VersionNeeded:     decodeVersion(rec.VersionNeeded),
			Flags:             rec.Flags,
			Method:            rec.Method,
			ModifiedTime:      dosTimeToTime(rec.ModDate, rec.ModTime),
			CRC32:             rec.CRC32,
			UncompressedSize:  uncompressed,
			CompressedSize:    compressed,
			ExternalAttrs:     rec.ExternalAttrs,
			InternalAttrs:     rec.InternalAttrs,
			Extras:            extras,
			localHeaderOffset: localOff,
			diskStart:         diskStart,
			ra:                withContext{ctx: ctx, r: ra},
		})
	}

	return entries, nil
}

// readFullAt reads exactly len(p) bytes at off, failing TruncatedInput on
// a short read and IoError on any other read failure.
func readFullAt(ctx context.Context, ra ReaderAt, p []byte, off int64) error {
	n, err := ra.ReadAtContext(ctx, p, off)
	if n == len(p) {
		return nil
	}
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return newErr(TruncatedInput, "short read")
	}
	if err != nil {
		return wrapErr(IoError, "reading archive stream", err)
	}
	return newErr(TruncatedInput, "short read")
}

// extractEntry implements spec.md §4.6 "Entry extraction".
func extractEntry(e *Entry, sink io.Writer) (uint64, error) {
	header := make([]byte, fileHeaderLen)
	if _, err := e.ra.ReadAt(header, int64(e.localHeaderOffset)); err != nil && err != io.EOF {
		return 0, wrapErr(IoError, "reading local header", err)
	}
	lh, err := parseLocalHeader(header)
	if err != nil {
		return 0, err
	}

	bodyOffset := e.localHeaderOffset + fileHeaderLen + uint64(lh.NameLen) + uint64(lh.ExtraLen)
	section := io.NewSectionReader(e.ra, int64(bodyOffset), int64(e.CompressedSize))

	return decompressStream(sink, section, e.Method, e.CompressedSize, e.UncompressedSize, e.CRC32)
}

// fetchLocalExtras implements spec.md §4.6 "Local extras".
func fetchLocalExtras(ra io.ReaderAt, localHeaderOffset uint64) ([]extraField, error) {
	header := make([]byte, fileHeaderLen)
	if _, err := ra.ReadAt(header, int64(localHeaderOffset)); err != nil && err != io.EOF {
		return nil, wrapErr(IoError, "reading local header", err)
	}
	lh, err := parseLocalHeader(header)
	if err != nil {
		return nil, err
	}
	extraOffset := localHeaderOffset + fileHeaderLen + uint64(lh.NameLen)
	extraBuf := make([]byte, lh.ExtraLen)
	if len(extraBuf) > 0 {
		if _, err := ra.ReadAt(extraBuf, int64(extraOffset)); err != nil && err != io.EOF {
			return nil, wrapErr(IoError, "reading local extras", err)
		}
	}
	return parseExtras(extraBuf)
}
