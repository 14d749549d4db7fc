// Package codec is a thin compression wrapper around a Message payload
// (spec §1: "payload transport, serialization and compression are out of
// scope for the resolver package itself"). It exists so callers that do
// want to compress large payloads before handing them to mbus.Message
// don't have to reach past the module for a library mbus already depends
// on.
package codec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/xerrors"
)

// Level selects a zstd compression/speed tradeoff.
type Level int

const (
	// LevelFastest favors throughput over ratio; suited to latency-
	// sensitive hops.
	LevelFastest Level = iota
	// LevelDefault is a balanced setting, the usual choice.
	LevelDefault
	// LevelBest favors ratio over throughput; suited to archival payloads.
	LevelBest
)

func (l Level) toZstd() zstd.EncoderLevel {
	switch l {
	case LevelFastest:
		return zstd.SpeedFastest
	case LevelBest:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}

// Compress returns the zstd-compressed form of data at the given level.
func Compress(data []byte, level Level) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(level.toZstd()))
	if err != nil {
		return nil, xerrors.Errorf("creating zstd writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, xerrors.Errorf("compressing payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, xerrors.Errorf("closing zstd writer: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, xerrors.Errorf("creating zstd reader: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, xerrors.Errorf("decompressing payload: %w", err)
	}
	return out, nil
}
