// Package llm defines the language-model provider interface and helpers for
// structured JSON completions.
package llm
