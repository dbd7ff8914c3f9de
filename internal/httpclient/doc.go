// Package httpclient provides the shared HTTP transport for the external
// provider clients (speech-to-text, language model, render engine).
//
// It classifies response status codes into typed retryable/fatal errors and
// applies the configured retry policy so the provider clients never duplicate
// backoff logic.
package httpclient
