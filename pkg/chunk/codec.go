package chunk

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"sort"

	"github.com/golang/snappy"
)

// ErrCorrupt marks a chunk blob that cannot be decoded: bad magic, unknown
// version, checksum mismatch, or truncation. Callers must skip such chunks
// rather than fail the whole merge pass.
var ErrCorrupt = errors.New("chunk: corrupt or incompatible encoding")

const (
	codecMagic   = "BPCHK1"
	codecVersion = 1

	// magic + u16 version + u32 payload length + u32 crc32
	frameHeaderSize = len(codecMagic) + 2 + 4 + 4

	recordSize = 13 // u16 interval + u64 end + u16 latency + u8 rank
)

// Encode serializes a chunk into a self-describing blob: a fixed header
// (magic, version, compressed length, CRC32 over the compressed payload)
// followed by the snappy-compressed payload. Entity order inside the payload
// is sorted, so identical chunks encode to identical bytes.
func Encode(c *Chunk) []byte {
	payload := encodePayload(c)
	compressed := snappy.Encode(nil, payload)

	buf := make([]byte, frameHeaderSize, frameHeaderSize+len(compressed))
	copy(buf, codecMagic)
	binary.LittleEndian.PutUint16(buf[6:], codecVersion)
	binary.LittleEndian.PutUint32(buf[8:], uint32(len(compressed)))
	binary.LittleEndian.PutUint32(buf[12:], crc32.ChecksumIEEE(compressed))

	return append(buf, compressed...)
}

// Decode parses a blob produced by Encode. Any structural problem returns an
// error wrapping ErrCorrupt.
func Decode(data []byte) (*Chunk, error) {
	if len(data) < frameHeaderSize {
		return nil, fmt.Errorf("%w: blob shorter than header (%d bytes)", ErrCorrupt, len(data))
	}
	if string(data[:6]) != codecMagic {
		return nil, fmt.Errorf("%w: bad magic %q", ErrCorrupt, data[:6])
	}
	if v := binary.LittleEndian.Uint16(data[6:]); v != codecVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, v)
	}

	payloadLen := binary.LittleEndian.Uint32(data[8:])
	checksum := binary.LittleEndian.Uint32(data[12:])
	compressed := data[frameHeaderSize:]
	if uint32(len(compressed)) != payloadLen {
		return nil, fmt.Errorf("%w: payload length %d, header says %d", ErrCorrupt, len(compressed), payloadLen)
	}
	if crc32.ChecksumIEEE(compressed) != checksum {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("%w: snappy: %v", ErrCorrupt, err)
	}

	return decodePayload(payload)
}

func encodePayload(c *Chunk) []byte {
	size := statsSize() + 4
	for id, recs := range c.Records {
		size += 2 + len(id) + 4 + len(recs)*recordSize
	}
	buf := make([]byte, 0, size)

	buf = appendStats(buf, c.Stats)

	ids := make([]string, 0, len(c.Records))
	for id := range c.Records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(ids)))
	for _, id := range ids {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(id)))
		buf = append(buf, id...)
		recs := c.Records[id]
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(recs)))
		for _, r := range recs {
			buf = binary.LittleEndian.AppendUint16(buf, r.Interval)
			buf = binary.LittleEndian.AppendUint64(buf, r.EndOfInterval)
			buf = binary.LittleEndian.AppendUint16(buf, r.Latency)
			buf = append(buf, r.Rank)
		}
	}
	return buf
}

func decodePayload(payload []byte) (*Chunk, error) {
	r := reader{buf: payload}

	var c Chunk
	var err error
	if c.Stats, err = r.stats(); err != nil {
		return nil, err
	}

	entityCount, err := r.u32()
	if err != nil {
		return nil, err
	}
	c.Records = make(map[string][]Record, entityCount)

	for range entityCount {
		idLen, err := r.u16()
		if err != nil {
			return nil, err
		}
		idBytes, err := r.bytes(int(idLen))
		if err != nil {
			return nil, err
		}
		id := string(idBytes)

		recCount, err := r.u32()
		if err != nil {
			return nil, err
		}
		recs := make([]Record, 0, recCount)
		for range recCount {
			var rec Record
			if rec.Interval, err = r.u16(); err != nil {
				return nil, err
			}
			if rec.EndOfInterval, err = r.u64(); err != nil {
				return nil, err
			}
			if rec.Latency, err = r.u16(); err != nil {
				return nil, err
			}
			if rec.Rank, err = r.u8(); err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		c.Records[id] = recs
	}

	if r.off != len(r.buf) {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(r.buf)-r.off)
	}
	return &c, nil
}

func statsSize() int {
	return 8 + 12*8 + 12*8 + 4
}

func appendStats(buf []byte, s SystemStats) []byte {
	buf = binary.LittleEndian.AppendUint64(buf, s.Timestamp)
	buf = appendPercentiles(buf, s.IntervalStats)
	buf = appendPercentiles(buf, s.LatencyStats)
	return binary.LittleEndian.AppendUint32(buf, s.SampleCount)
}

func appendPercentiles(buf []byte, p Percentiles) []byte {
	for _, v := range p.breakpoints() {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	return buf
}

// breakpoints returns the breakpoint values in ascending label order.
func (p Percentiles) breakpoints() [12]float64 {
	return [12]float64{p.P0, p.P25, p.P50, p.P75, p.P80, p.P85, p.P90, p.P95, p.P98, p.P99, p.P995, p.P999}
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.buf) {
		return nil, fmt.Errorf("%w: truncated payload at offset %d", ErrCorrupt, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) u8() (uint8, error) {
	b, err := r.bytes(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *reader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *reader) u64() (uint64, error) {
	b, err := r.bytes(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (r *reader) f64() (float64, error) {
	u, err := r.u64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

func (r *reader) percentiles() (Percentiles, error) {
	var vals [12]float64
	for i := range vals {
		v, err := r.f64()
		if err != nil {
			return Percentiles{}, err
		}
		vals[i] = v
	}
	return Percentiles{
		P0: vals[0], P25: vals[1], P50: vals[2], P75: vals[3],
		P80: vals[4], P85: vals[5], P90: vals[6], P95: vals[7],
		P98: vals[8], P99: vals[9], P995: vals[10], P999: vals[11],
	}, nil
}

func (r *reader) stats() (SystemStats, error) {
	var s SystemStats
	var err error
	if s.Timestamp, err = r.u64(); err != nil {
		return s, err
	}
	if s.IntervalStats, err = r.percentiles(); err != nil {
		return s, err
	}
	if s.LatencyStats, err = r.percentiles(); err != nil {
		return s, err
	}
	s.SampleCount, err = r.u32()
	return s, err
}
