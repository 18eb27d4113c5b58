package base

import (
	"fmt"

	"github.com/ValentinKolb/tKV/lib/db"
	"github.com/goccy/go-json"
	"github.com/klauspost/compress/zstd"
)

// Format flags, stored as the first byte of every encoded record
const (
	formatJSON     byte = 0x01
	formatJSONZstd byte = 0x02
)

// codec encodes records for storage. Records are stored as JSON, optionally compressed with zstd.
// Decoding always supports both formats, so compression can be toggled for existing data.
type codec struct {
	compress bool
	encoder  *zstd.Encoder
	decoder  *zstd.Decoder
}

func newCodec(compress bool) (*codec, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &codec{compress: compress, encoder: enc, decoder: dec}, nil
}

// encode serializes a record
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *codec) encode(rec db.Record) ([]byte, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}
	if !c.compress {
		return append([]byte{formatJSON}, raw...), nil
	}
	out := make([]byte, 1, len(raw)/2+1)
	out[0] = formatJSONZstd
	return c.encoder.EncodeAll(raw, out), nil
}

// decode deserializes a record
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (c *codec) decode(data []byte) (db.Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty record", db.ErrCorrupted)
	}
	raw := data[1:]
	switch data[0] {
	case formatJSON:
	case formatJSONZstd:
		var err error
		raw, err = c.decoder.DecodeAll(raw, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", db.ErrCorrupted, err)
		}
	default:
		return nil, fmt.Errorf("%w: unknown record format 0x%02x", db.ErrCorrupted, data[0])
	}
	rec := db.Record{}
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", db.ErrCorrupted, err)
	}
	return rec, nil
}

func (c *codec) close() {
	_ = c.encoder.Close()
	c.decoder.Close()
}
