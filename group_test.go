package kdb

import "testing"

func TestGroupRoundTrip(t *testing.T) {
	g := NewGroup(42, PackedDateTime{Year: 2020, Month: 1, Day: 1})
	g.GroupName = "Banking"
	g.Level = 1
	g.Flags = 7
	g.ImageID = 3
	g.Unknown = []UnknownField{{Type: 0x1234, Data: []byte("future-proofing")}}

	buf := encodeGroup(g)
	got, consumed, err := decodeGroup(buf)
	if err != nil {
		t.Fatalf("decodeGroup: %v", err)
	}
	if consumed != len(buf) {
		t.Fatalf("want consumed=%d, got %d", len(buf), consumed)
	}
	if got.GroupID != g.GroupID || got.GroupName != g.GroupName || got.Level != g.Level ||
		got.Flags != g.Flags || got.ImageID != g.ImageID {
		t.Fatalf("round trip mismatch: want %+v, got %+v", g, got)
	}
	if len(got.Unknown) != 1 || string(got.Unknown[0].Data) != "future-proofing" {
		t.Fatalf("unknown field not preserved: %+v", got.Unknown)
	}
}

func TestNewGroupDefaults(t *testing.T) {
	now := PackedDateTime{Year: 2024, Month: 6, Day: 1}
	g := NewGroup(5, now)
	if g.CreationTime != now || g.LastModTime != now || g.LastAccTime != now {
		t.Fatalf("expected timestamps seeded with now, got %+v", g)
	}
	if g.ExpireTime != defaultExpireTime {
		t.Fatalf("expected default expiry, got %+v", g.ExpireTime)
	}
}
