package audio

import "fmt"

// Segment is one contiguous slice of the source recording, small enough to
// upload to the speech-to-text provider. Segments are immutable once emitted.
type Segment struct {
	// Index is the segment's ordinal position, starting at 0.
	Index int
	// ByteOffset is where the segment's payload starts in the source file.
	ByteOffset int64
	// OffsetSeconds is the segment's start time within the recording.
	// Zero for formats where the byte rate is unknown.
	OffsetSeconds float64
	// Format is the file extension without dot (wav, mp3, ...).
	Format string
	// Data is the segment content, a complete playable file for WAV splits.
	Data []byte
}

// FileName returns a synthetic name for uploading the segment.
func (s Segment) FileName() string {
	return fmt.Sprintf("segment_%03d.%s", s.Index, s.Format)
}
