// Package extraction turns a session transcript into a validated SOAP record
// using a language-model provider.
//
// The extractor embeds the transcript in a fixed clinical-documentation
// prompt, requests a JSON object response, and validates the parsed record.
// When the model returns malformed or invalid output it re-prompts with the
// concrete validation errors a bounded number of times before failing.
package extraction
