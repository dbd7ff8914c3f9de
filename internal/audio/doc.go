// Package audio splits session recordings into segments that fit the
// speech-to-text provider's upload limit.
//
// The chunker emits a lazy, finite, non-restartable sequence of contiguous
// segments covering the source exactly once in offset order. Files already
// under the limit pass through as a single whole-file segment. WAV inputs are
// split on PCM block boundaries with a rebuilt RIFF header per segment so
// every segment is independently playable; other supported formats fall back
// to fixed byte-range splitting.
package audio
