// Package render produces the final session report from a validated SOAP
// record.
//
// Two output formats are supported: Markdown, generated locally, and PDF,
// produced by filling a fixed HTML layout and sending it to an external
// Chromium-based render engine. Output is deterministic for a given record
// and GeneratedAt timestamp; render failures are fatal and never retried.
package render
