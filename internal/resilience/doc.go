// Package resilience provides the retry and concurrency-limiting primitives
// shared by the external provider clients.
//
// Retry is the single reusable backoff policy applied uniformly to the
// transcription and extraction clients; Bulkhead bounds the segment worker
// pool during the transcribing stage.
package resilience
