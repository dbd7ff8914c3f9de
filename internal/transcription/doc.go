// Package transcription defines the speech-to-text provider interface and the
// transcript types assembled from per-segment results.
package transcription
