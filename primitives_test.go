package zipcore

import (
	"testing"
	"time"
)

func TestTimeToDOSTimeRoundTrip(t *testing.T) {
	cases := []time.Time{
		time.Date(1985, time.October, 26, 9, 0, 0, 0, time.UTC),
		time.Date(2026, time.July, 30, 23, 59, 58, 0, time.UTC),
		time.Date(1979, time.January, 1, 0, 0, 0, 0, time.UTC), // clamped to 1980
	}
	for _, tc := range cases {
		date, dtime := timeToDOSTime(tc)
		got := dosTimeToTime(date, dtime)
		want := tc
		if want.Year() < 1980 {
			want = time.Date(1980, want.Month(), want.Day(), want.Hour(), want.Minute(), want.Second(), 0, time.UTC)
		}
		if !got.Equal(want) {
			t.Errorf("dosTimeToTime(timeToDOSTime(%v)) = %v, want %v", tc, got, want)
		}
	}
}

func TestVersionEncodeDecode(t *testing.T) {
	cases := []Version{
		versionClassic,
		versionZip64,
		versionDefault,
		{Major: 6, Minor: 3, Compat: 19},
	}
	for _, v := range cases {
		got := decodeVersion(v.encode())
		if got != v {
			t.Errorf("decodeVersion(%v.encode()) = %v, want %v", v, got, v)
		}
	}
}

func TestWriteBufReadBufRoundTrip(t *testing.T) {
	buf := make([]byte, 19)
	b := writeBuf(buf)
	b.uint8(0x42)
	b.uint16(0x1234)
	b.uint32(0xDEADBEEF)
	b.uint64(0x0123456789ABCDEF)

	rb := readBuf(buf)
	if v := rb.uint8(); v != 0x42 {
		t.Fatalf("uint8 = %x, want 0x42", v)
	}
	if v := rb.uint16(); v != 0x1234 {
		t.Fatalf("uint16 = %x, want 0x1234", v)
	}
	if v := rb.uint32(); v != 0xDEADBEEF {
		t.Fatalf("uint32 = %x, want 0xDEADBEEF", v)
	}
	if v := rb.uint64(); v != 0x0123456789ABCDEF {
		t.Fatalf("uint64 = %x, want 0x0123456789ABCDEF", v)
	}
}
