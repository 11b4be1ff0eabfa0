package wal

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/klauspost/compress/zstd"

	"github.com/xtxerr/trackside/internal/errors"
)

// Op identifies a journal entry type.
type Op byte

const (
	// OpCreate records session creation.
	OpCreate Op = 1
	// OpAppend records one sample append.
	OpAppend Op = 2
	// OpSeal records the Open → Sealed transition.
	OpSeal Op = 3
)

// Entry is one journaled session mutation.
type Entry struct {
	Op      Op
	Session string

	// Append fields; unused for OpCreate and OpSeal.
	Channel string
	Time    float64
	Values  []float64
}

// Entry encoding format (binary, little-endian), per record:
// - Entry count (4 bytes)
// - Per entry:
//   - Op (1 byte)
//   - Session length (2 bytes) + Session string
//   - OpAppend only:
//     - Channel length (2 bytes) + Channel string
//     - Time (8 bytes, float64)
//     - Width (2 bytes) + Width * Value (8 bytes, float64)
//
// The encoded batch is zstd-compressed before it is framed with the
// length+CRC record header.

var (
	zstdEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	zstdDecoder, _ = zstd.NewReader(nil)
)

// encodeEntries encodes and compresses a batch of entries.
func encodeEntries(entries []Entry) ([]byte, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	// Estimate: ~48 bytes per entry average before compression
	buf := make([]byte, 0, len(entries)*48)

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(entries)))

	for _, e := range entries {
		buf = append(buf, byte(e.Op))
		buf = appendString(buf, e.Session)

		if e.Op != OpAppend {
			continue
		}
		buf = appendString(buf, e.Channel)
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(e.Time))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Values)))
		for _, v := range e.Values {
			buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
		}
	}

	return zstdEncoder.EncodeAll(buf, nil), nil
}

// decodeEntries decompresses and decodes a batch of entries.
func decodeEntries(payload []byte) ([]Entry, error) {
	data, err := zstdDecoder.DecodeAll(payload, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCorruptRecord, fmt.Sprintf("zstd decode: %v", err))
	}

	if len(data) < 4 {
		return nil, errors.Wrap(errors.ErrCorruptRecord, "data too short for entry count")
	}

	count := int(binary.LittleEndian.Uint32(data[0:4]))
	if count == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, count)
	offset := 4

	for i := 0; i < count; i++ {
		var e Entry

		if offset+1 > len(data) {
			return nil, errors.Wrapf(errors.ErrCorruptRecord, "entry %d: missing op", i)
		}
		e.Op = Op(data[offset])
		offset++

		e.Session, offset, err = readString(data, offset)
		if err != nil {
			return nil, errors.Wrapf(err, "entry %d session", i)
		}

		if e.Op == OpAppend {
			e.Channel, offset, err = readString(data, offset)
			if err != nil {
				return nil, errors.Wrapf(err, "entry %d channel", i)
			}

			if offset+8 > len(data) {
				return nil, errors.Wrapf(errors.ErrCorruptRecord, "entry %d: missing time", i)
			}
			e.Time = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
			offset += 8

			if offset+2 > len(data) {
				return nil, errors.Wrapf(errors.ErrCorruptRecord, "entry %d: missing width", i)
			}
			width := int(binary.LittleEndian.Uint16(data[offset:]))
			offset += 2

			if offset+8*width > len(data) {
				return nil, errors.Wrapf(errors.ErrCorruptRecord, "entry %d: missing values", i)
			}
			e.Values = make([]float64, width)
			for j := 0; j < width; j++ {
				e.Values[j] = math.Float64frombits(binary.LittleEndian.Uint64(data[offset:]))
				offset += 8
			}
		}

		entries = append(entries, e)
	}

	return entries, nil
}

// appendString appends a length-prefixed string to the buffer.
func appendString(buf []byte, s string) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

// readString reads a length-prefixed string from the buffer.
func readString(data []byte, offset int) (string, int, error) {
	if offset+2 > len(data) {
		return "", offset, errors.Wrap(errors.ErrCorruptRecord, "data too short for string length")
	}

	length := int(binary.LittleEndian.Uint16(data[offset:]))
	offset += 2

	if offset+length > len(data) {
		return "", offset, errors.Wrap(errors.ErrCorruptRecord, "data too short for string content")
	}

	s := string(data[offset : offset+length])
	return s, offset + length, nil
}
