// Copyright 2011 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipcore

import (
	"encoding/binary"
	"time"
)

// writeBuf is a little-endian write cursor over a fixed-size byte slice,
// as used throughout the teacher's writer.go.
type writeBuf []byte

func (b *writeBuf) uint8(v uint8) {
	(*b)[0] = v
	*b = (*b)[1:]
}

func (b *writeBuf) uint16(v uint16) {
	binary.LittleEndian.PutUint16(*b, v)
	*b = (*b)[2:]
}

func (b *writeBuf) uint32(v uint32) {
	binary.LittleEndian.PutUint32(*b, v)
	*b = (*b)[4:]
}

func (b *writeBuf) uint64(v uint64) {
	binary.LittleEndian.PutUint64(*b, v)
	*b = (*b)[8:]
}

// readBuf is the symmetric little-endian read cursor; the teacher never
// needed one since it only wrote archives.
type readBuf []byte

func (b *readBuf) uint8() uint8 {
	v := (*b)[0]
	*b = (*b)[1:]
	return v
}

func (b *readBuf) uint16() uint16 {
	v := binary.LittleEndian.Uint16(*b)
	*b = (*b)[2:]
	return v
}

func (b *readBuf) uint32() uint32 {
	v := binary.LittleEndian.Uint32(*b)
	*b = (*b)[4:]
	return v
}

func (b *readBuf) uint64() uint64 {
	v := binary.LittleEndian.Uint64(*b)
	*b = (*b)[8:]
	return v
}

func (b *readBuf) bytes(n int) []byte {
	v := (*b)[:n]
	*b = (*b)[n:]
	return v
}

// countWriter tracks bytes written through it, as used by the teacher to
// size the central directory without a second pass.
type countWriter struct {
	w     ioWriter
	count int64
}

// ioWriter has the same method set as io.Writer and lets this file avoid
// importing io; defined here so countWriter can be reused by both the
// record codec and the writer state machine without every caller needing
// to spell out io.Writer.
type ioWriter interface {
	Write(p []byte) (int, error)
}

func (w *countWriter) Write(p []byte) (int, error) {
	n, err := w.w.Write(p)
	w.count += int64(n)
	return n, err
}

// timeToDOSTime converts a wall-clock time to an MS-DOS date/time pair,
// clamping years before 1980 to 1980 per spec.md §4.1. Resolution is 2s.
func timeToDOSTime(t time.Time) (date, dtime uint16) {
	year := t.Year()
	if year < 1980 {
		year = 1980
	}
	date = uint16(t.Day() + int(t.Month())<<5 + (year-1980)<<9)
	dtime = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return
}

// dosTimeToTime decodes an MS-DOS date/time pair into a wall-clock time in
// UTC, the inverse of timeToDOSTime modulo the 2-second resolution.
func dosTimeToTime(date, dtime uint16) time.Time {
	return time.Date(
		int(date>>9)+1980,
		time.Month(date>>5&0xf),
		int(date&0x1f),
		int(dtime>>11),
		int(dtime>>5&0x3f),
		int(dtime&0x1f)*2,
		0,
		time.UTC,
	)
}

// Version is a (major, minor, compatibility) triple as encoded in the
// CreatorVersion/ReaderVersion fields of the ZIP format.
type Version struct {
	Major, Minor uint8
	Compat       uint8
}

// encode packs the version into the single uint16 the format stores.
func (v Version) encode() uint16 {
	return uint16(v.Compat)<<8 | uint16((v.Major*10+v.Minor%10)&0xFF)
}

// decodeVersion unpacks a uint16 from the format into its Version triple.
func decodeVersion(v uint16) Version {
	compat := uint8(v >> 8)
	low := uint8(v & 0xFF)
	return Version{Major: low / 10, Minor: low % 10, Compat: compat}
}

// Classic and ZIP64 version-needed/version-made-by defaults (spec.md §6).
var (
	versionClassic = Version{Major: 2, Minor: 0}
	versionZip64   = Version{Major: 4, Minor: 6}
	versionDefault = Version{}
)
