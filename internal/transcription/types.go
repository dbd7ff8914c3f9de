package transcription

import (
	"fmt"
	"strings"
)

// Request holds parameters for a single transcription call.
type Request struct {
	// Data is the audio content to transcribe.
	Data []byte `json:"-"`
	// FileName is the reported upload name, carrying the format extension.
	FileName string `json:"file_name"`
	// MIMEType declares the audio content type.
	MIMEType string `json:"mime_type,omitempty"`
	// Language is the expected language of the audio (e.g. "en").
	Language string `json:"language,omitempty"`
	// Model overrides the provider's default model.
	Model string `json:"model,omitempty"`
}

// Response holds the result of a transcription call.
type Response struct {
	// Text is the plain transcription text.
	Text string `json:"text"`
	// Duration is the audio duration in seconds, when reported.
	Duration float64 `json:"duration,omitempty"`
	// Language is the detected or specified language.
	Language string `json:"language,omitempty"`
}

// Segment is the transcribed text of one audio segment.
type Segment struct {
	// Index is the segment's ordinal position, starting at 0.
	Index int `json:"index"`
	// AudioOffsetSeconds is the segment's start time within the recording.
	AudioOffsetSeconds float64 `json:"audio_offset_seconds"`
	// Text is the transcribed text.
	Text string `json:"text"`
}

// Transcript is an ordered sequence of transcribed segments.
type Transcript struct {
	segments []Segment
}

// NewTranscript builds a transcript from segments that must already be in
// strictly increasing index order.
func NewTranscript(segments []Segment) (*Transcript, error) {
	for i := 1; i < len(segments); i++ {
		if segments[i].Index <= segments[i-1].Index {
			return nil, fmt.Errorf("transcript segments out of order: index %d after %d",
				segments[i].Index, segments[i-1].Index)
		}
	}
	return &Transcript{segments: segments}, nil
}

// Segments returns the ordered segments.
func (t *Transcript) Segments() []Segment { return t.segments }

// Len returns the number of segments.
func (t *Transcript) Len() int { return len(t.segments) }

// FullText concatenates the segment texts in index order, separated by a
// single space.
func (t *Transcript) FullText() string {
	parts := make([]string, 0, len(t.segments))
	for _, seg := range t.segments {
		text := strings.TrimSpace(seg.Text)
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}
