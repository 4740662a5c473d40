package units

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/aryankumar/fanout/internal/executor"
	"github.com/aryankumar/fanout/internal/objectid"
	"github.com/aryankumar/fanout/internal/sink"
	"github.com/aryankumar/fanout/internal/util"
)

// ReadBytesConfig is shared by all read-bytes units of a pool
type ReadBytesConfig struct {
	// Path of the input file; expanded like a shell would
	Path string

	// ChunkSize is the soft upper bound of a chunk in bytes. Chunks always
	// hold whole lines, so a single longer line makes a larger chunk.
	ChunkSize int64

	// SkipHeader drops the first line of the file
	SkipHeader bool

	// Sink receives the chunks and the partition manifest
	Sink sink.Driver

	// NewID allocates object ids; defaults to objectid.New
	NewID func() objectid.ID

	Logger *slog.Logger
}

// Partition describes the part of the input one unit ingested
type Partition struct {
	Index  int           `json:"index" yaml:"index"`
	Offset int64         `json:"offset" yaml:"offset"`
	Length int64         `json:"length" yaml:"length"`
	Lines  int64         `json:"lines" yaml:"lines"`
	Chunks []objectid.ID `json:"chunks" yaml:"chunks"`

	// Stream is the id of the stored manifest listing the chunks
	Stream objectid.ID `json:"stream" yaml:"stream"`
}

// ReadBytes reads slot Index of Total of a line-oriented file and stores it
// in the sink as a sequence of chunks
type ReadBytes struct {
	cfg  ReadBytesConfig
	slot executor.Slot
}

// NewReadBytes is the executor.Factory for read-bytes units
func NewReadBytes(cfg ReadBytesConfig, slot executor.Slot) (executor.Unit[*Partition], error) {
	if cfg.Path == "" {
		return nil, util.NewValidationError("path", nil, "input path is required")
	}
	if cfg.ChunkSize <= 0 {
		return nil, util.NewValidationError("chunkSize", cfg.ChunkSize, "must be a positive integer")
	}
	if cfg.Sink == nil {
		return nil, util.NewValidationError("sink", nil, "a sink is required")
	}

	cfg.Path = util.ExpandFullPath(cfg.Path)
	if cfg.NewID == nil {
		cfg.NewID = objectid.New
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &ReadBytes{cfg: cfg, slot: slot}, nil
}

// Execute implements executor.Unit
func (r *ReadBytes) Execute(ctx context.Context) (*Partition, error) {
	f, err := os.Open(r.cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	start, end, err := r.bounds(f, info.Size())
	if err != nil {
		return nil, err
	}

	part := &Partition{
		Index:  r.slot.Index,
		Offset: start,
		Length: end - start,
		Chunks: []objectid.ID{},
	}

	r.cfg.Logger.Debug("reading partition",
		"unit", r.slot.Index,
		"path", r.cfg.Path,
		"offset", start,
		"length", end-start)

	if err := r.ingest(ctx, io.NewSectionReader(f, start, end-start), part); err != nil {
		r.discard(ctx, part.Chunks)
		return nil, err
	}

	if err := r.storeManifest(ctx, part); err != nil {
		r.discard(ctx, append(part.Chunks, part.Stream))
		return nil, err
	}
	return part, nil
}

// discard removes objects a failed unit already stored. It runs even when
// ctx is cancelled, which is the usual reason for the failure.
func (r *ReadBytes) discard(ctx context.Context, ids []objectid.ID) {
	ctx = context.WithoutCancel(ctx)
	for _, id := range ids {
		if err := r.cfg.Sink.Delete(ctx, id); err != nil {
			r.cfg.Logger.Warn("failed to discard stored object",
				"unit", r.slot.Index,
				"object", id.String(),
				"error", err)
		}
	}
}

// bounds returns the byte range owned by this slot. A line belongs to the
// partition containing its first byte.
func (r *ReadBytes) bounds(f io.ReaderAt, size int64) (int64, int64, error) {
	total := int64(r.slot.Total)
	index := int64(r.slot.Index)

	start, err := lineStart(f, size*index/total, size)
	if err != nil {
		return 0, 0, err
	}
	end, err := lineStart(f, size*(index+1)/total, size)
	if err != nil {
		return 0, 0, err
	}

	if r.cfg.SkipHeader {
		header, err := lineStart(f, 1, size)
		if err != nil {
			return 0, 0, err
		}
		start = max(start, header)
		end = max(end, header)
	}
	return start, end, nil
}

// ingest splits the section into line-aligned chunks and stores them
func (r *ReadBytes) ingest(ctx context.Context, section io.Reader, part *Partition) error {
	reader := bufio.NewReader(section)
	var chunk bytes.Buffer

	flush := func() error {
		if chunk.Len() == 0 {
			return nil
		}
		id := r.cfg.NewID()
		if err := r.cfg.Sink.Put(ctx, id, bytes.NewReader(chunk.Bytes()), int64(chunk.Len())); err != nil {
			return util.WrapErrorf(err, "failed to store chunk %d of partition %d", len(part.Chunks), r.slot.Index)
		}
		part.Chunks = append(part.Chunks, id)
		chunk.Reset()
		return nil
	}

	for {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %w", util.ErrCancelled, err)
		}

		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if chunk.Len() > 0 && int64(chunk.Len()+len(line)) > r.cfg.ChunkSize {
				if ferr := flush(); ferr != nil {
					return ferr
				}
			}
			chunk.Write(line)
			part.Lines++
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read input: %w", err)
		}
	}
	return flush()
}

func (r *ReadBytes) storeManifest(ctx context.Context, part *Partition) error {
	part.Stream = r.cfg.NewID()

	manifest, err := json.Marshal(part)
	if err != nil {
		return fmt.Errorf("failed to encode partition manifest: %w", err)
	}
	if err := r.cfg.Sink.Put(ctx, part.Stream, bytes.NewReader(manifest), int64(len(manifest))); err != nil {
		return fmt.Errorf("failed to store partition manifest: %w", err)
	}
	return nil
}

// lineStart returns the offset of the first line beginning at or after off
func lineStart(f io.ReaderAt, off, size int64) (int64, error) {
	if off <= 0 {
		return 0, nil
	}
	if off >= size {
		return size, nil
	}

	buf := make([]byte, 32<<10)
	pos := off - 1
	for pos < size {
		n, err := f.ReadAt(buf, pos)
		if i := bytes.IndexByte(buf[:n], '\n'); i >= 0 {
			return pos + int64(i) + 1, nil
		}
		pos += int64(n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to scan for line boundary: %w", err)
		}
	}
	return size, nil
}
