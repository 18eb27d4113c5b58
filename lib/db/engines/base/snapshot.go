package base

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/ValentinKolb/tKV/lib/db"
)

// Snapshot format
//
//	magic
//	'B' <n uvarint> n * (<len uvarint> <name>)         start of bucket at path
//	'K' <len uvarint> <key> <len uvarint> <value>      pair of the last bucket
//	'E'                                                end of snapshot
var snapshotMagic = []byte("TKVSNAP1")

const (
	frameBucket byte = 'B'
	frameKV     byte = 'K'
	frameEnd    byte = 'E'
)

// maxFieldSize limits the size of a single snapshot field (1 GiB)
const maxFieldSize = 1 << 30

// writeSnapshot writes all buckets and pairs of tx to w
func writeSnapshot(w io.Writer, tx IBackendTx) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.Write(snapshotMagic); err != nil {
		return err
	}
	if err := writeBuckets(bw, tx, nil); err != nil {
		return err
	}
	if err := bw.WriteByte(frameEnd); err != nil {
		return err
	}
	return bw.Flush()
}

func writeBuckets(w *bufio.Writer, tx IBackendTx, parent [][]byte) error {
	for _, name := range tx.Buckets(parent...) {
		path := append(append([][]byte{}, parent...), name)

		if err := w.WriteByte(frameBucket); err != nil {
			return err
		}
		writeUvarint(w, uint64(len(path)))
		for _, p := range path {
			writeField(w, p)
		}

		b := tx.Bucket(path...)
		if b == nil {
			return fmt.Errorf("%w: bucket vanished during snapshot", db.ErrCorrupted)
		}
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if err := w.WriteByte(frameKV); err != nil {
				return err
			}
			writeField(w, k)
			writeField(w, v)
		}

		if err := writeBuckets(w, tx, path); err != nil {
			return err
		}
	}
	return nil
}

// readSnapshot replaces the content of tx with the snapshot read from r
func readSnapshot(r io.Reader, tx IBackendTx) error {
	br := bufio.NewReader(r)

	magic := make([]byte, len(snapshotMagic))
	if _, err := io.ReadFull(br, magic); err != nil {
		return fmt.Errorf("%w: failed to read snapshot header: %v", db.ErrCorrupted, err)
	}
	if !bytes.Equal(magic, snapshotMagic) {
		return fmt.Errorf("%w: invalid snapshot header", db.ErrCorrupted)
	}

	// drop the current content
	for _, name := range tx.Buckets() {
		if err := tx.DeleteBucket(name); err != nil {
			return err
		}
	}

	var current IBucket
	buckets, pairs := 0, 0
	for {
		frame, err := br.ReadByte()
		if err != nil {
			return fmt.Errorf("%w: unexpected end of snapshot: %v", db.ErrCorrupted, err)
		}

		switch frame {
		case frameBucket:
			n, err := binary.ReadUvarint(br)
			if err != nil || n == 0 || n > 64 {
				return fmt.Errorf("%w: invalid bucket path", db.ErrCorrupted)
			}
			path := make([][]byte, n)
			for i := range path {
				if path[i], err = readField(br); err != nil {
					return err
				}
			}
			if current, err = tx.CreateBucket(path...); err != nil {
				return err
			}
			buckets++
		case frameKV:
			if current == nil {
				return fmt.Errorf("%w: pair outside of bucket", db.ErrCorrupted)
			}
			k, err := readField(br)
			if err != nil {
				return err
			}
			v, err := readField(br)
			if err != nil {
				return err
			}
			if err := current.Put(k, v); err != nil {
				return err
			}
			pairs++
		case frameEnd:
			Logger.Infof("loaded snapshot (%d buckets, %d pairs)", buckets, pairs)
			return nil
		default:
			return fmt.Errorf("%w: unknown snapshot frame 0x%02x", db.ErrCorrupted, frame)
		}
	}
}

func writeUvarint(w *bufio.Writer, v uint64) {
	var buf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(buf[:], v)
	_, _ = w.Write(buf[:n]) // errors are sticky and reported by the next WriteByte or Flush
}

func writeField(w *bufio.Writer, b []byte) {
	writeUvarint(w, uint64(len(b)))
	_, _ = w.Write(b)
}

func readField(r *bufio.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", db.ErrCorrupted, err)
	}
	if n > maxFieldSize {
		return nil, fmt.Errorf("%w: field too large (%d bytes)", db.ErrCorrupted, n)
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: truncated snapshot", db.ErrCorrupted)
		}
		return nil, err
	}
	return b, nil
}
