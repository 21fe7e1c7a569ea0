// Package explain generates beginner-level explanations of pipeline
// stages through an OpenAI-compatible chat API.
//
// The service is built to degrade, never to block the builder: generated
// texts are cached by prompt fingerprint, calls are rate limited, and any
// failure (no API key, rate cap, transport error, empty completion) falls
// back to curated static texts. Explain always returns something to show.
package explain
