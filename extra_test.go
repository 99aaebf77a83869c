package zipcore

import (
	"bytes"
	"reflect"
	"testing"
)

func TestExtrasRoundTrip(t *testing.T) {
	fields := []extraField{
		{Code: 0x0001, Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}},
		{Code: 0x5455, Payload: []byte{1, 2, 3, 4, 5}},
		{Code: 0x9999, Payload: nil},
	}
	raw := serializeExtras(fields)
	got, err := parseExtras(raw)
	if err != nil {
		t.Fatalf("parseExtras: %v", err)
	}
	if len(got) != len(fields) {
		t.Fatalf("parseExtras returned %d fields, want %d", len(got), len(fields))
	}
	for i := range fields {
		if got[i].Code != fields[i].Code || !bytes.Equal(got[i].Payload, fields[i].Payload) {
			t.Errorf("field %d = %+v, want %+v", i, got[i], fields[i])
		}
	}
}

func TestParseExtrasTruncatedHeader(t *testing.T) {
	if _, err := parseExtras([]byte{1, 2, 3}); err == nil {
		t.Fatal("expected error for truncated extra field header")
	}
}

func TestParseExtrasOverrunsBlock(t *testing.T) {
	raw := []byte{0x01, 0x00, 0xFF, 0xFF} // code=1, size=65535, but no payload follows
	if _, err := parseExtras(raw); err == nil {
		t.Fatal("expected error for extra field payload overrunning the block")
	}
}

func TestZip64ExtraRoundTripSizesOnly(t *testing.T) {
	u, c := uint64(1<<33), uint64(1<<32+7)
	built := buildZip64Extra(&u, &c, nil, nil)
	if built.Code != zip64ExtraID {
		t.Fatalf("code = %x, want %x", built.Code, zip64ExtraID)
	}
	if len(built.Payload) != 16 {
		t.Fatalf("payload length = %d, want 16", len(built.Payload))
	}
	got, err := parseZip64Extra(built.Payload, true, true, false, false)
	if err != nil {
		t.Fatalf("parseZip64Extra: %v", err)
	}
	want := &zip64Extra{UncompressedSize: &u, CompressedSize: &c}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("parseZip64Extra = %+v, want %+v", got, want)
	}
}

func TestZip64ExtraRoundTripAllFour(t *testing.T) {
	u, c, off := uint64(1<<33), uint64(1<<33+1), uint64(1<<33+2)
	var disk uint32 = 0
	built := buildZip64Extra(&u, &c, &off, &disk)
	if len(built.Payload) != 28 {
		t.Fatalf("payload length = %d, want 28", len(built.Payload))
	}
	got, err := parseZip64Extra(built.Payload, true, true, true, true)
	if err != nil {
		t.Fatalf("parseZip64Extra: %v", err)
	}
	if *got.UncompressedSize != u || *got.CompressedSize != c || *got.LocalHeaderOffset != off || *got.DiskStart != disk {
		t.Errorf("parseZip64Extra = %+v, want u=%d c=%d off=%d disk=%d", got, u, c, off, disk)
	}
}

func TestParseZip64ExtraTooShort(t *testing.T) {
	if _, err := parseZip64Extra([]byte{1, 2, 3}, true, true, false, false); err == nil {
		t.Fatal("expected error for zip64 extra too short for the sentinelized fields")
	}
}

func TestExtendedTimestampExtra(t *testing.T) {
	f := extendedTimestampExtra(500000000)
	if f.Code != extTimeExtraID {
		t.Fatalf("code = %x, want %x", f.Code, extTimeExtraID)
	}
	if len(f.Payload) != 5 {
		t.Fatalf("payload length = %d, want 5", len(f.Payload))
	}
	if f.Payload[0] != 1 {
		t.Fatalf("flags byte = %d, want 1", f.Payload[0])
	}
}
