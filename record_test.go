package zipcore

import "testing"

func TestLocalHeaderRoundTrip(t *testing.T) {
	want := localHeader{
		VersionNeeded:    versionClassic.encode(),
		Flags:            flagFooter | flagEFS,
		Method:           Deflate,
		ModTime:          0x1234,
		ModDate:          0x5678,
		CRC32:            0xDEADBEEF,
		CompressedSize:   100,
		UncompressedSize: 200,
		NameLen:          7,
		ExtraLen:         9,
	}
	var buf [fileHeaderLen]byte
	if err := writeLocalHeader(&countWriter{w: sliceWriter{buf[:]}}, want); err != nil {
		t.Fatalf("writeLocalHeader: %v", err)
	}
	got, err := parseLocalHeader(buf[:])
	if err != nil {
		t.Fatalf("parseLocalHeader: %v", err)
	}
	if got != want {
		t.Errorf("parseLocalHeader round trip = %+v, want %+v", got, want)
	}
}

func TestParseLocalHeaderBadMagic(t *testing.T) {
	buf := make([]byte, fileHeaderLen)
	if _, err := parseLocalHeader(buf); !IsKind(err, BadMagic) {
		t.Fatalf("expected BadMagic, got %v", err)
	}
}

func TestParseLocalHeaderTruncated(t *testing.T) {
	if _, err := parseLocalHeader(make([]byte, 10)); !IsKind(err, TruncatedInput) {
		t.Fatalf("expected TruncatedInput, got %v", err)
	}
}

func TestCDREntryRoundTrip(t *testing.T) {
	want := cdrEntry{
		VersionMadeBy:    versionDefault.encode(),
		VersionNeeded:    versionClassic.encode(),
		Flags:            flagFooter,
		Method:           Store,
		CRC32:            0x11223344,
		CompressedSize:   42,
		UncompressedSize: 42,
		NameLen:          3,
		ExtraLen:         0,
		CommentLen:       5,
		LocalHeaderOff:   1000,
	}
	buf := make([]byte, directoryHeaderLen)
	if err := writeCDREntry(&countWriter{w: sliceWriter{buf}}, want); err != nil {
		t.Fatalf("writeCDREntry: %v", err)
	}
	got, err := parseCDREntry(buf)
	if err != nil {
		t.Fatalf("parseCDREntry: %v", err)
	}
	if got != want {
		t.Errorf("parseCDREntry round trip = %+v, want %+v", got, want)
	}
}

func TestEOCDRoundTrip(t *testing.T) {
	want := eocd{
		DiskEntries:  3,
		TotalEntries: 3,
		CDRLength:    500,
		CDROffset:    1000,
		CommentLen:   0,
	}
	buf := make([]byte, directoryEndLen)
	if err := writeEOCD(&countWriter{w: sliceWriter{buf}}, want); err != nil {
		t.Fatalf("writeEOCD: %v", err)
	}
	got, err := parseEOCD(buf)
	if err != nil {
		t.Fatalf("parseEOCD: %v", err)
	}
	if got != want {
		t.Errorf("parseEOCD round trip = %+v, want %+v", got, want)
	}
}

func TestZip64EOCDRoundTrip(t *testing.T) {
	want := zip64EOCD{
		VersionMadeBy: versionDefault.encode(),
		VersionNeeded: versionZip64.encode(),
		DiskEntries:   70000,
		TotalEntries:  70000,
		CDRLength:     1 << 33,
		CDROffset:     1 << 34,
	}
	buf := make([]byte, directory64EndLen)
	if err := writeZip64EOCD(&countWriter{w: sliceWriter{buf}}, want); err != nil {
		t.Fatalf("writeZip64EOCD: %v", err)
	}
	got, err := parseZip64EOCD(buf)
	if err != nil {
		t.Fatalf("parseZip64EOCD: %v", err)
	}
	if got != want {
		t.Errorf("parseZip64EOCD round trip = %+v, want %+v", got, want)
	}
}

func TestZip64LocatorRoundTrip(t *testing.T) {
	want := zip64Locator{Zip64EOCDOffset: 1 << 34, TotalDisks: 1}
	buf := make([]byte, directory64LocLen)
	if err := writeZip64Locator(&countWriter{w: sliceWriter{buf}}, want); err != nil {
		t.Fatalf("writeZip64Locator: %v", err)
	}
	got, err := parseZip64Locator(buf)
	if err != nil {
		t.Fatalf("parseZip64Locator: %v", err)
	}
	if got != want {
		t.Errorf("parseZip64Locator round trip = %+v, want %+v", got, want)
	}
}

// sliceWriter copies each Write into the start of a fixed-size slice, used
// by the record round-trip tests in place of a bytes.Buffer; each record
// writer under test issues a single Write, and bytes beyond the slice's
// length are dropped without an error.
type sliceWriter struct {
	buf []byte
}

func (s sliceWriter) Write(p []byte) (int, error) {
	n := copy(s.buf, p)
	return n, nil
}
