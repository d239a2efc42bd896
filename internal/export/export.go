// Package export serializes memories into the downloadable JSON document.
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"memorygrid-backend/internal/domain"
)

// FileNamePrefix starts every suggested export file name.
const FileNamePrefix = "humanity-memory-grid-"

// Encode renders memories as a two-space indented JSON array. A nil slice encodes as [].
func Encode(memories []domain.Memory) ([]byte, error) {
	if memories == nil {
		memories = []domain.Memory{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(memories); err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode parses a document produced by Encode.
func Decode(data []byte) ([]domain.Memory, error) {
	var memories []domain.Memory
	if err := json.Unmarshal(data, &memories); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if memories == nil {
		memories = []domain.Memory{}
	}
	return memories, nil
}

// FileName suggests the export file name for the UTC date of at.
func FileName(at time.Time) string {
	return FileNamePrefix + at.UTC().Format("2006-01-02") + ".json"
}

// Sink receives a finished export document.
type Sink interface {
	Save(ctx context.Context, filename string, data []byte) error
}

// FileSink writes exports into Dir, the working directory when empty.
type FileSink struct {
	Dir string
}

// Save implements Sink; the file lands at Path(filename).
func (s FileSink) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
	}
	if err := os.WriteFile(s.Path(filename), data, 0o644); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

// Path is where Save puts filename.
func (s FileSink) Path(filename string) string {
	return filepath.Join(s.Dir, filepath.Base(filename))
}

// MemorySink keeps the last saved document; useful in tests.
type MemorySink struct {
	Filename string
	Data     []byte
	Err      error
}

// Save implements Sink.
func (s *MemorySink) Save(_ context.Context, filename string, data []byte) error {
	if s.Err != nil {
		return s.Err
	}
	s.Filename = filename
	s.Data = append([]byte(nil), data...)
	return nil
}
