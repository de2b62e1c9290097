// Package gemini provides generation and audio transcription through the
// Gemini API.
//
// The Generator authenticates with the credential supplied on each request
// and keeps one client per credential. The Transcriber uploads the audio
// track through the File API, waits for it to become active and asks the
// model for time-coded segments.
package gemini
