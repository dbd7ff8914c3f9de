package audio

import (
	"path/filepath"
	"sort"
	"strings"
)

// DefaultMaxSegmentBytes is the speech-to-text provider's upload limit.
const DefaultMaxSegmentBytes = 25 * 1024 * 1024

// supportedFormats maps accepted file extensions to their MIME types.
var supportedFormats = map[string]string{
	"mp3":  "audio/mpeg",
	"mp4":  "audio/mp4",
	"mpeg": "audio/mpeg",
	"mpga": "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"webm": "audio/webm",
}

// SupportedFormats returns the sorted list of accepted file extensions.
func SupportedFormats() []string {
	formats := make([]string, 0, len(supportedFormats))
	for ext := range supportedFormats {
		formats = append(formats, ext)
	}
	sort.Strings(formats)
	return formats
}

// FormatOf extracts the lowercase extension of path without the leading dot.
func FormatOf(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// IsSupported reports whether the extension (without dot) is accepted.
func IsSupported(format string) bool {
	_, ok := supportedFormats[strings.ToLower(format)]
	return ok
}

// MIMEType returns the MIME type for a supported format, or
// application/octet-stream for anything else.
func MIMEType(format string) string {
	if mime, ok := supportedFormats[strings.ToLower(format)]; ok {
		return mime
	}
	return "application/octet-stream"
}
