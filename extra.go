// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

// extraField is one opaque TLV record from an extras block: code:u16,
// size:u16, payload:bytes[size], per spec.md §4.2.
type extraField struct {
	Code    uint16
	Payload []byte
}

// parseExtras splits a raw extras block into its TLV records. Unrecognized
// codes are preserved opaquely — callers that don't understand a code just
// keep the extraField around for round-tripping.
func parseExtras(b []byte) ([]extraField, error) {
	var out []extraField
	for len(b) > 0 {
		if len(b) < 4 {
			return nil, newErr(FormatViolation, "truncated extra field header")
		}
		rb := readBuf(b)
		code := rb.uint16()
		size := rb.uint16()
		if int(size) > len(rb) {
			return nil, newErr(FormatViolation, "extra field payload overruns extras block")
		}
		payload := rb.bytes(int(size))
		out = append(out, extraField{Code: code, Payload: payload})
		b = []byte(rb)
	}
	return out, nil
}

// serializeExtras concatenates TLV records back into a single extras block.
func serializeExtras(fields []extraField) []byte {
	n := 0
	for _, f := range fields {
		n += 4 + len(f.Payload)
	}
	buf := make([]byte, n)
	b := writeBuf(buf)
	for _, f := range fields {
		b.uint16(f.Code)
		b.uint16(uint16(len(f.Payload)))
		copy(b, f.Payload)
		b = b[len(f.Payload):]
	}
	return buf
}

// zip64Extra carries whichever of uncompressed_size, compressed_size,
// local_header_offset and disk_start were sentinelized in the fixed
// record, in that fixed order, per spec.md §4.2. This codec picks the
// subset from the fixed record's sentinels, not from the payload length
// (0, 4, 8, 12, 16, 20, 24 or 28 bytes of payload — the 4-byte case is
// disk_start alone, which this codec never emits but still parses).
type zip64Extra struct {
	UncompressedSize  *uint64
	CompressedSize    *uint64
	LocalHeaderOffset *uint64
	DiskStart         *uint32
}

// parseZip64Extra decodes a ZIP64 extra payload. The caller determines
// which fields are present from the fixed record's sentinels; this
// function just walks the payload in the fixed field order that the
// format mandates, failing FormatViolation when the payload is too short
// for the requested fields. Bytes beyond those fields are ignored, so a
// longer payload is not rejected.
func parseZip64Extra(payload []byte, wantUncompressed, wantCompressed, wantOffset, wantDisk bool) (*zip64Extra, error) {
	need := 0
	if wantUncompressed {
		need += 8
	}
	if wantCompressed {
		need += 8
	}
	if wantOffset {
		need += 8
	}
	if wantDisk {
		need += 4
	}
	if len(payload) < need {
		return nil, newErr(FormatViolation, "zip64 extra too short for sentinelized fields")
	}
	rb := readBuf(payload)
	z := &zip64Extra{}
	if wantUncompressed {
		v := rb.uint64()
		z.UncompressedSize = &v
	}
	if wantCompressed {
		v := rb.uint64()
		z.CompressedSize = &v
	}
	if wantOffset {
		v := rb.uint64()
		z.LocalHeaderOffset = &v
	}
	if wantDisk {
		v := rb.uint32()
		z.DiskStart = &v
	}
	return z, nil
}

// buildZip64Extra serializes only the fields that were sentinelized,
// in the mandated fixed order, as an extraField ready for inclusion in
// the entry's extras block.
func buildZip64Extra(uncompressed, compressed, offset *uint64, disk *uint32) extraField {
	n := 0
	if uncompressed != nil {
		n += 8
	}
	if compressed != nil {
		n += 8
	}
	if offset != nil {
		n += 8
	}
	if disk != nil {
		n += 4
	}
	payload := make([]byte, n)
	b := writeBuf(payload)
	if uncompressed != nil {
		b.uint64(*uncompressed)
	}
	if compressed != nil {
		b.uint64(*compressed)
	}
	if offset != nil {
		b.uint64(*offset)
	}
	if disk != nil {
		b.uint32(*disk)
	}
	return extraField{Code: zip64ExtraID, Payload: payload}
}

// extendedTimestampExtra builds the Info-ZIP "extended timestamp" extra
// (code 0x5455) the teacher always emits, carrying the modification time
// with one-second resolution. It is written opaquely: this codec does not
// interpret it back on read, it is purely an interoperability courtesy for
// Info-ZIP-family tools, per SPEC_FULL.md §4.2.
func extendedTimestampExtra(mtime int64) extraField {
	payload := make([]byte, 5)
	b := writeBuf(payload)
	b.uint8(1) // flags: modification time present
	b.uint32(uint32(mtime))
	return extraField{Code: extTimeExtraID, Payload: payload}
}
