// Package workflow orchestrates the audio-to-report pipeline.
//
// A run moves through Chunking, Transcribing, Extracting, and Rendering in
// strict order; any stage failure moves the run to the terminal Failed state
// carrying the originating stage and error, and no partial output file is
// written. Within the Transcribing stage, independent segments may be
// transcribed by a small bounded worker pool, but results are reassembled in
// strictly increasing index order before extraction begins.
package workflow
