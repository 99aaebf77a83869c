// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

// Compression methods, per spec.md §1.
const (
	Store   uint16 = 0 // no compression
	Deflate uint16 = 8 // raw DEFLATE, RFC 1951
)

// General-purpose bit flags used by this codec (spec.md §3).
const (
	flagFooter uint16 = 0x8   // data descriptor follows the body
	flagEFS    uint16 = 0x800 // filenames/comment are UTF-8
)

const (
	fileHeaderSignature      = 0x04034b50
	directoryHeaderSignature = 0x02014b50
	directoryEndSignature    = 0x06054b50
	directory64LocSignature  = 0x07064b50
	directory64EndSignature  = 0x06064b50
	dataDescriptorSignature  = 0x08074b50

	fileHeaderLen       = 30 // + name + extras
	directoryHeaderLen  = 46 // + name + extras + comment
	directoryEndLen     = 22 // + comment
	dataDescriptorLen   = 16 // signature, crc32, compressed size, size (all u32)
	dataDescriptor64Len = 24 // signature, crc32 (u32), compressed size, size (u64)
	directory64LocLen   = 20
	directory64EndLen   = 56 // fixed portion; + optional extensible data

	zip64ExtraID   = 0x0001 // ZIP64 extended information
	extTimeExtraID = 0x5455 // Info-ZIP extended timestamp

	uint16max = 1<<16 - 1
	uint32max = 1<<32 - 1

	// compressionBufferSize is the fixed internal buffer size for the
	// streaming compression pipeline, per spec.md §4.3.
	compressionBufferSize = 8 << 10
)

// localHeader is the 30-byte fixed portion of the local file header,
// spec.md §4.4. Name and Extra follow it in the stream.
type localHeader struct {
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32 // or sentinel
	UncompressedSize uint32 // or sentinel
	NameLen          uint16
	ExtraLen         uint16
}

func writeLocalHeader(w ioWriter, h localHeader) error {
	var buf [fileHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(fileHeaderSignature)
	b.uint16(h.VersionNeeded)
	b.uint16(h.Flags)
	b.uint16(h.Method)
	b.uint16(h.ModTime)
	b.uint16(h.ModDate)
	b.uint32(h.CRC32)
	b.uint32(h.CompressedSize)
	b.uint32(h.UncompressedSize)
	b.uint16(h.NameLen)
	b.uint16(h.ExtraLen)
	_, err := w.Write(buf[:])
	return err
}

func parseLocalHeader(raw []byte) (localHeader, error) {
	if len(raw) < fileHeaderLen {
		return localHeader{}, newErr(TruncatedInput, "short local file header")
	}
	rb := readBuf(raw)
	if sig := rb.uint32(); sig != fileHeaderSignature {
		return localHeader{}, newErr(BadMagic, "local file header signature mismatch")
	}
	var h localHeader
	h.VersionNeeded = rb.uint16()
	h.Flags = rb.uint16()
	h.Method = rb.uint16()
	h.ModTime = rb.uint16()
	h.ModDate = rb.uint16()
	h.CRC32 = rb.uint32()
	h.CompressedSize = rb.uint32()
	h.UncompressedSize = rb.uint32()
	h.NameLen = rb.uint16()
	h.ExtraLen = rb.uint16()
	return h, nil
}

// dataDescriptor is the optional footer written when flagFooter is set.
type dataDescriptor struct {
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64
	Zip64            bool
}

func writeDataDescriptor(w ioWriter, d dataDescriptor) error {
	var buf []byte
	if d.Zip64 {
		buf = make([]byte, dataDescriptor64Len)
	} else {
		buf = make([]byte, dataDescriptorLen)
	}
	b := writeBuf(buf)
	b.uint32(dataDescriptorSignature)
	b.uint32(d.CRC32)
	if d.Zip64 {
		b.uint64(d.CompressedSize)
		b.uint64(d.UncompressedSize)
	} else {
		b.uint32(uint32(d.CompressedSize))
		b.uint32(uint32(d.UncompressedSize))
	}
	_, err := w.Write(buf)
	return err
}

// cdrEntry is the 46-byte fixed portion of a central directory record,
// spec.md §4.4. Name, Extra and Comment follow it in the stream.
type cdrEntry struct {
	VersionMadeBy    uint16
	VersionNeeded    uint16
	Flags            uint16
	Method           uint16
	ModTime          uint16
	ModDate          uint16
	CRC32            uint32
	CompressedSize   uint32 // or sentinel
	UncompressedSize uint32 // or sentinel
	NameLen          uint16
	ExtraLen         uint16
	CommentLen       uint16
	DiskStart        uint16 // or 0xFFFF
	InternalAttrs    uint16
	ExternalAttrs    uint32
	LocalHeaderOff   uint32 // or sentinel
}

func writeCDREntry(w ioWriter, e cdrEntry) error {
	var buf [directoryHeaderLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryHeaderSignature)
	b.uint16(e.VersionMadeBy)
	b.uint16(e.VersionNeeded)
	b.uint16(e.Flags)
	b.uint16(e.Method)
	b.uint16(e.ModTime)
	b.uint16(e.ModDate)
	b.uint32(e.CRC32)
	b.uint32(e.CompressedSize)
	b.uint32(e.UncompressedSize)
	b.uint16(e.NameLen)
	b.uint16(e.ExtraLen)
	b.uint16(e.CommentLen)
	b.uint16(e.DiskStart)
	b.uint16(e.InternalAttrs)
	b.uint32(e.ExternalAttrs)
	b.uint32(e.LocalHeaderOff)
	_, err := w.Write(buf[:])
	return err
}

func parseCDREntry(raw []byte) (cdrEntry, error) {
	if len(raw) < directoryHeaderLen {
		return cdrEntry{}, newErr(TruncatedInput, "short central directory entry")
	}
	rb := readBuf(raw)
	if sig := rb.uint32(); sig != directoryHeaderSignature {
		return cdrEntry{}, newErr(BadMagic, "central directory entry signature mismatch")
	}
	var e cdrEntry
	e.VersionMadeBy = rb.uint16()
	e.VersionNeeded = rb.uint16()
	e.Flags = rb.uint16()
	e.Method = rb.uint16()
	e.ModTime = rb.uint16()
	e.ModDate = rb.uint16()
	e.CRC32 = rb.uint32()
	e.CompressedSize = rb.uint32()
	e.UncompressedSize = rb.uint32()
	e.NameLen = rb.uint16()
	e.ExtraLen = rb.uint16()
	e.CommentLen = rb.uint16()
	e.DiskStart = rb.uint16()
	e.InternalAttrs = rb.uint16()
	e.ExternalAttrs = rb.uint32()
	e.LocalHeaderOff = rb.uint32()
	return e, nil
}

// eocd is the fixed 22-byte end-of-central-directory record, spec.md §4.4.
type eocd struct {
	ThisDisk     uint16
	CDRDisk      uint16
	DiskEntries  uint16 // or 0xFFFF
	TotalEntries uint16 // or 0xFFFF
	CDRLength    uint32 // or sentinel
	CDROffset    uint32 // or sentinel
	CommentLen   uint16
}

func writeEOCD(w ioWriter, e eocd) error {
	var buf [directoryEndLen]byte
	b := writeBuf(buf[:])
	b.uint32(directoryEndSignature)
	b.uint16(e.ThisDisk)
	b.uint16(e.CDRDisk)
	b.uint16(e.DiskEntries)
	b.uint16(e.TotalEntries)
	b.uint32(e.CDRLength)
	b.uint32(e.CDROffset)
	b.uint16(e.CommentLen)
	_, err := w.Write(buf[:])
	return err
}

func parseEOCD(raw []byte) (eocd, error) {
	if len(raw) < directoryEndLen {
		return eocd{}, newErr(TruncatedInput, "short end-of-central-directory record")
	}
	rb := readBuf(raw)
	if sig := rb.uint32(); sig != directoryEndSignature {
		return eocd{}, newErr(BadMagic, "end-of-central-directory signature mismatch")
	}
	var e eocd
	e.ThisDisk = rb.uint16()
	e.CDRDisk = rb.uint16()
	e.DiskEntries = rb.uint16()
	e.TotalEntries = rb.uint16()
	e.CDRLength = rb.uint32()
	e.CDROffset = rb.uint32()
	e.CommentLen = rb.uint16()
	return e, nil
}

// zip64EOCD is the fixed portion of the ZIP64 end-of-central-directory
// record, spec.md §4.4; optional extensible data may follow but this
// codec never writes any and ignores any on read.
type zip64EOCD struct {
	VersionMadeBy uint16
	VersionNeeded uint16
	ThisDisk      uint32
	CDRDisk       uint32
	DiskEntries   uint64
	TotalEntries  uint64
	CDRLength     uint64
	CDROffset     uint64
}

func writeZip64EOCD(w ioWriter, e zip64EOCD) error {
	var buf [directory64EndLen]byte
	b := writeBuf(buf[:])
	b.uint32(directory64EndSignature)
	b.uint64(directory64EndLen - 12) // size of remainder: length minus signature and this field
	b.uint16(e.VersionMadeBy)
	b.uint16(e.VersionNeeded)
	b.uint32(e.ThisDisk)
	b.uint32(e.CDRDisk)
	b.uint64(e.DiskEntries)
	b.uint64(e.TotalEntries)
	b.uint64(e.CDRLength)
	b.uint64(e.CDROffset)
	_, err := w.Write(buf[:])
	return err
}

func parseZip64EOCD(raw []byte) (zip64EOCD, error) {
	if len(raw) < directory64EndLen {
		return zip64EOCD{}, newErr(TruncatedInput, "short zip64 end-of-central-directory record")
	}
	rb := readBuf(raw)
	if sig := rb.uint32(); sig != directory64EndSignature {
		return zip64EOCD{}, newErr(BadMagic, "zip64 end-of-central-directory signature mismatch")
	}
	_ = rb.uint64() // size of remainder, not needed: we read the fixed portion only
	var e zip64EOCD
	e.VersionMadeBy = rb.uint16()
	e.VersionNeeded = rb.uint16()
	e.ThisDisk = rb.uint32()
	e.CDRDisk = rb.uint32()
	e.DiskEntries = rb.uint64()
	e.TotalEntries = rb.uint64()
	e.CDRLength = rb.uint64()
	e.CDROffset = rb.uint64()
	return e, nil
}

// zip64Locator is the fixed 20-byte ZIP64 EOCD locator, spec.md §4.4.
type zip64Locator struct {
	Zip64EOCDDisk   uint32
	Zip64EOCDOffset uint64
	TotalDisks      uint32
}

func writeZip64Locator(w ioWriter, l zip64Locator) error {
	var buf [directory64LocLen]byte
	b := writeBuf(buf[:])
	b.uint32(directory64LocSignature)
	b.uint32(l.Zip64EOCDDisk)
	b.uint64(l.Zip64EOCDOffset)
	b.uint32(l.TotalDisks)
	_, err := w.Write(buf[:])
	return err
}

func parseZip64Locator(raw []byte) (zip64Locator, error) {
	if len(raw) < directory64LocLen {
		return zip64Locator{}, newErr(TruncatedInput, "short zip64 locator")
	}
	rb := readBuf(raw)
	if sig := rb.uint32(); sig != directory64LocSignature {
		return zip64Locator{}, newErr(BadMagic, "zip64 locator signature mismatch")
	}
	var l zip64Locator
	l.Zip64EOCDDisk = rb.uint32()
	l.Zip64EOCDOffset = rb.uint64()
	l.TotalDisks = rb.uint32()
	return l, nil
}
