package audio

import (
	"context"
	"fmt"
	"io"
	"os"

	apperrors "github.com/physiolab/soapnote/internal/errors"
	"github.com/physiolab/soapnote/internal/provider"
)

// Chunker splits audio files into upload-sized segments.
type Chunker struct {
	maxSegmentBytes int64
}

// NewChunker creates a chunker with the given segment size limit. A
// non-positive limit uses DefaultMaxSegmentBytes.
func NewChunker(maxSegmentBytes int64) *Chunker {
	if maxSegmentBytes <= 0 {
		maxSegmentBytes = DefaultMaxSegmentBytes
	}
	return &Chunker{maxSegmentBytes: maxSegmentBytes}
}

// MaxSegmentBytes returns the configured segment size limit.
func (c *Chunker) MaxSegmentBytes() int64 { return c.maxSegmentBytes }

// Chunk opens the audio file and returns a lazy iterator over its segments.
// Format and size checks run eagerly so unsupported inputs fail before any
// segment is read. The iterator owns the file handle; Close releases it.
func (c *Chunker) Chunk(path string) (provider.Iterator[Segment], error) {
	format := FormatOf(path)
	if !IsSupported(format) {
		return nil, apperrors.UnsupportedFormat(format, SupportedFormats())
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, apperrors.NotFound("audio file", path).WithCause(err)
	}
	size := info.Size()

	file, err := os.Open(path)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("open audio file: %w", err))
	}

	if size <= c.maxSegmentBytes {
		return &wholeFileIterator{file: file, format: format, size: size}, nil
	}

	if format == "wav" {
		it, err := c.newWAVIterator(file, size)
		if err == nil {
			return it, nil
		}
		if _, fatal := apperrors.AsAppError(err); fatal {
			file.Close()
			return nil, err
		}
		// Non-canonical WAV layout: fall back to byte-range splitting.
		if _, err := file.Seek(0, io.SeekStart); err != nil {
			file.Close()
			return nil, apperrors.Internal(fmt.Errorf("rewind audio file: %w", err))
		}
	}

	return &byteRangeIterator{
		file:        file,
		format:      format,
		segmentSize: c.maxSegmentBytes,
		remaining:   size,
	}, nil
}

// newWAVIterator parses the header and prepares a block-aligned split. A
// plain error means the layout is not canonical and byte-range splitting
// should be used instead; an AppError is fatal.
func (c *Chunker) newWAVIterator(file *os.File, size int64) (provider.Iterator[Segment], error) {
	raw := make([]byte, wavHeaderSize)
	if _, err := io.ReadFull(file, raw); err != nil {
		return nil, fmt.Errorf("read WAV header: %w", err)
	}
	header, err := parseWAVHeader(raw)
	if err != nil {
		return nil, err
	}
	if header.ByteRate == 0 {
		return nil, apperrors.FileTooLarge(size, c.maxSegmentBytes).
			WithDetail("reason", "corrupt WAV metadata: zero byte rate")
	}

	payload := c.maxSegmentBytes - wavHeaderSize
	payload -= payload % int64(header.BlockAlign)
	if payload < int64(header.BlockAlign) {
		return nil, apperrors.FileTooLarge(size, c.maxSegmentBytes).
			WithDetail("reason", "segment limit below one PCM block plus header")
	}

	return &wavIterator{
		file:       file,
		header:     header,
		payload:    payload,
		remaining:  size - wavHeaderSize,
		byteOffset: wavHeaderSize,
	}, nil
}

// wholeFileIterator emits the entire file as a single segment.
type wholeFileIterator struct {
	file   *os.File
	format string
	size   int64
	done   bool
}

func (it *wholeFileIterator) Next(ctx context.Context) (Segment, bool, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, false, err
	}
	if it.done {
		return Segment{}, false, nil
	}
	it.done = true

	data := make([]byte, it.size)
	if _, err := io.ReadFull(it.file, data); err != nil {
		return Segment{}, false, apperrors.Internal(fmt.Errorf("read audio file: %w", err))
	}
	return Segment{Index: 0, Format: it.format, Data: data}, true, nil
}

func (it *wholeFileIterator) Close() error { return it.file.Close() }

// wavIterator splits the data chunk on PCM block boundaries, prefixing each
// segment with a rebuilt header so it is a complete playable file.
type wavIterator struct {
	file       *os.File
	header     *wavHeader
	payload    int64
	remaining  int64
	byteOffset int64
	consumed   int64
	index      int
}

func (it *wavIterator) Next(ctx context.Context) (Segment, bool, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, false, err
	}
	if it.remaining <= 0 {
		return Segment{}, false, nil
	}

	size := it.payload
	if size > it.remaining {
		size = it.remaining
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(it.file, buf); err != nil {
		return Segment{}, false, apperrors.Internal(fmt.Errorf("read WAV data: %w", err))
	}

	seg := Segment{
		Index:         it.index,
		ByteOffset:    it.byteOffset,
		OffsetSeconds: it.header.duration(it.consumed),
		Format:        "wav",
		Data:          append(it.header.encodeSegmentHeader(uint32(size)), buf...),
	}
	it.index++
	it.byteOffset += size
	it.consumed += size
	it.remaining -= size
	return seg, true, nil
}

func (it *wavIterator) Close() error { return it.file.Close() }

// byteRangeIterator splits the file into fixed-size ranges. Transcripts of
// adjacent segments may clip a word at the boundary; this is the documented
// fallback for formats without cheap frame seeking.
type byteRangeIterator struct {
	file        *os.File
	format      string
	segmentSize int64
	remaining   int64
	byteOffset  int64
	index       int
}

func (it *byteRangeIterator) Next(ctx context.Context) (Segment, bool, error) {
	if err := ctx.Err(); err != nil {
		return Segment{}, false, err
	}
	if it.remaining <= 0 {
		return Segment{}, false, nil
	}

	size := it.segmentSize
	if size > it.remaining {
		size = it.remaining
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(it.file, buf); err != nil {
		return Segment{}, false, apperrors.Internal(fmt.Errorf("read audio data: %w", err))
	}

	seg := Segment{
		Index:      it.index,
		ByteOffset: it.byteOffset,
		Format:     it.format,
		Data:       buf,
	}
	it.index++
	it.byteOffset += size
	it.remaining -= size
	return seg, true, nil
}

func (it *byteRangeIterator) Close() error { return it.file.Close() }
