package zipcore

import (
	stdzip "archive/zip"
	"bytes"
	"fmt"
	"testing"
)

// TestIntegrationForcedZip64RoundTrip exercises the zip64 derivation rule's
// caller-hint path (spec.md §3 rule (a)) end to end: write with ForceZip64,
// read back with both this package's Reader and stdlib archive/zip.
func TestIntegrationForcedZip64RoundTrip(t *testing.T) {
	raw := writeFixtureArchive(t, WriterOptions{}, func(wr *Writer) {
		if _, err := wr.AddBytes("z64.bin", []byte("small body, forced zip64"), AddOptions{
			Method: Store, HasMethod: true, ModifiedTime: fixedModTime, ForceZip64: true,
		}); err != nil {
			t.Fatalf("AddBytes: %v", err)
		}
	})

	ar, err := OpenReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	e, ok := ar.Get("z64.bin")
	if !ok {
		t.Fatal("z64.bin not found")
	}
	var out bytes.Buffer
	if _, err := e.Extract(&out); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if out.String() != "small body, forced zip64" {
		t.Fatalf("extracted = %q", out.String())
	}

	zr, err := stdzip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("stdlib zip.NewReader: %v", err)
	}
	if len(zr.File) != 1 {
		t.Fatalf("len(zr.File) = %d, want 1", len(zr.File))
	}
	rc, err := zr.File[0].Open()
	if err != nil {
		t.Fatalf("stdlib Open: %v", err)
	}
	defer rc.Close()
	var stdOut bytes.Buffer
	stdOut.ReadFrom(rc)
	if stdOut.String() != "small body, forced zip64" {
		t.Fatalf("stdlib extracted = %q", stdOut.String())
	}
}

// TestIntegrationStartingOffsetParticipatesInZip64Promotion resolves
// spec.md §9's starting_offset Open Question: a session that begins with a
// large StartingOffset (as if a self-extracting stub already occupies that
// many bytes) must promote members to ZIP64 purely from straight addition,
// exactly as if this Writer itself had emitted filler bytes.
func TestIntegrationStartingOffsetParticipatesInZip64Promotion(t *testing.T) {
	var buf bytes.Buffer
	wr, err := OpenWriter(&buf, WriterOptions{StartingOffset: uint32max + 10})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	if _, err := wr.AddBytes("after-stub.txt", []byte("hi"), AddOptions{Method: Store, HasMethod: true, ModifiedTime: fixedModTime}); err != nil {
		t.Fatalf("AddBytes: %v", err)
	}
	if _, err := wr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	m := wr.members[0]
	if !m.zip64 {
		t.Fatal("member not promoted to zip64 despite StartingOffset pushing its local header offset past the 32-bit sentinel")
	}
}

// TestIntegrationManyMembersPromotesCDRCountToZip64 exercises the
// entry-count ZIP64 promotion boundary (spec.md §4.5): once the archive
// holds uint16max or more members, the EOCD's entry-count fields must be
// sentinelized and a ZIP64 EOCD/locator pair emitted.
func TestIntegrationManyMembersPromotesCDRCountToZip64(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large member-count test in short mode")
	}
	var buf bytes.Buffer
	wr, err := OpenWriter(&buf, WriterOptions{})
	if err != nil {
		t.Fatalf("OpenWriter: %v", err)
	}
	const count = uint16max + 1
	for i := 0; i < count; i++ {
		name := fmt.Sprintf("f%05d.txt", i)
		if _, err := wr.AddBytes(name, nil, AddOptions{Method: Store, HasMethod: true, ModifiedTime: fixedModTime}); err != nil {
			t.Fatalf("AddBytes(%s): %v", name, err)
		}
	}
	if _, err := wr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	ar, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	if ar.Len() != count {
		t.Fatalf("Len() = %d, want %d", ar.Len(), count)
	}
}

// TestIntegrationWriteSessionHelperClosesOnError verifies the Write
// callback-scoped helper closes the Writer even when the callback returns
// an error (spec.md §5 resource-release requirement).
func TestIntegrationWriteSessionHelperClosesOnError(t *testing.T) {
	var buf bytes.Buffer
	wantErr := newErr(InvalidInput, "callback failed")
	_, err := Write(&buf, WriterOptions{}, func(wr *Writer) error {
		wr.AddBytes("a.txt", []byte("x"), AddOptions{Method: Store, HasMethod: true, ModifiedTime: fixedModTime})
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("Write returned %v, want %v", err, wantErr)
	}
	if _, err := OpenReader(bytes.NewReader(buf.Bytes()), int64(buf.Len())); err != nil {
		t.Fatalf("Writer was not closed: no EOCD trailer present: %v", err)
	}
}
