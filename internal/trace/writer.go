package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// JSONLZstdWriter appends one JSON line per tick record to a
// zstd-compressed per-episode file.
type JSONLZstdWriter struct {
	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer
}

func NewJSONLZstdWriter(dir, episodeID string) (*JSONLZstdWriter, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, fmt.Sprintf("rollout-%s.jsonl.zst", episodeID))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &JSONLZstdWriter{
		f:   f,
		enc: enc,
		w:   bufio.NewWriterSize(enc, 128*1024),
	}, nil
}

func (w *JSONLZstdWriter) RecordTick(r TickRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.w == nil {
		return os.ErrClosed
	}
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
		w.w = nil
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	return err1
}
