package chunk

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
)

func testChunk() *Chunk {
	return &Chunk{
		Stats: SystemStats{
			Timestamp: 1700000060,
			IntervalStats: Percentiles{
				P0: 5, P25: 20, P50: 35, P75: 50, P80: 55, P85: 60,
				P90: 70, P95: 90, P98: 120, P99: 150, P995: 180, P999: 300,
			},
			LatencyStats: Percentiles{P50: 3, P999: 12},
			SampleCount:  3,
		},
		Records: map[string][]Record{
			"4012": {
				{Interval: 30, EndOfInterval: 1700000010, Latency: 2, Rank: 50},
				{Interval: 310, EndOfInterval: 1700000050, Latency: 4, Rank: 100},
			},
			"7785": {
				{Interval: 65535, EndOfInterval: 1700000040, Latency: 65535, Rank: 100},
			},
		},
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	want := testChunk()

	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if !reflect.DeepEqual(got.Stats, want.Stats) {
		t.Errorf("Stats = %+v, want %+v", got.Stats, want.Stats)
	}
	if !reflect.DeepEqual(got.Records, want.Records) {
		t.Errorf("Records = %+v, want %+v", got.Records, want.Records)
	}
}

func TestCodec_EmptyChunk(t *testing.T) {
	want := &Chunk{
		Stats:   SystemStats{Timestamp: 1700000060},
		Records: map[string][]Record{},
	}

	got, err := Decode(Encode(want))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got.Records) != 0 {
		t.Errorf("Records has %d entities, want 0", len(got.Records))
	}
	if got.Stats.Timestamp != want.Stats.Timestamp {
		t.Errorf("Timestamp = %d, want %d", got.Stats.Timestamp, want.Stats.Timestamp)
	}
}

func TestCodec_Deterministic(t *testing.T) {
	c := testChunk()
	if !bytes.Equal(Encode(c), Encode(c)) {
		t.Error("Encode() is not deterministic for identical chunks")
	}
}

func TestDecode_Corrupt(t *testing.T) {
	valid := Encode(testChunk())

	tests := []struct {
		name   string
		mutate func([]byte) []byte
	}{
		{"empty", func(b []byte) []byte { return nil }},
		{"short header", func(b []byte) []byte { return b[:10] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"bad version", func(b []byte) []byte { b[6] = 99; return b }},
		{"truncated payload", func(b []byte) []byte { return b[:len(b)-5] }},
		{"flipped payload byte", func(b []byte) []byte { b[len(b)-1] ^= 0xff; return b }},
		{"flipped checksum", func(b []byte) []byte { b[12] ^= 0xff; return b }},
		{"trailing garbage", func(b []byte) []byte { return append(b, 0xde, 0xad) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob := tt.mutate(append([]byte(nil), valid...))
			_, err := Decode(blob)
			if err == nil {
				t.Fatal("Decode() succeeded on corrupt input")
			}
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Decode() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestDecode_ValidAfterCompression(t *testing.T) {
	// Large repetitive chunk should compress well and still round-trip.
	c := &Chunk{
		Stats:   SystemStats{Timestamp: 1700000060, SampleCount: 1000},
		Records: map[string][]Record{},
	}
	recs := make([]Record, 1000)
	for i := range recs {
		recs[i] = Record{Interval: 60, EndOfInterval: uint64(1700000000 + i), Latency: 2, Rank: 50}
	}
	c.Records["9001"] = recs

	blob := Encode(c)
	got, err := Decode(blob)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got.Records["9001"]) != 1000 {
		t.Errorf("decoded %d records, want 1000", len(got.Records["9001"]))
	}
}
