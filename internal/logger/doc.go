// Package logger provides structured logging for soapnote using zerolog.
//
// It supports JSON and console output formats, level configuration, and
// component-scoped loggers with structured fields. When HIPAA mode is
// enabled, a redactor strips patient-identifying patterns (SSN, phone,
// email, names) from log output. Redaction applies to logs only; the
// pipeline data itself is never modified.
//
// # Usage
//
//	log := logger.New(&cfg, "soapnote").WithComponent("chunker")
//	log.Info("segment produced", logger.Fields("index", 2, "bytes", n))
package logger
