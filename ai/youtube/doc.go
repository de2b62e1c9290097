// Package youtube acquires audio and caption transcripts for YouTube videos.
//
// Fetcher downloads the best audio-only stream with kkdai/youtube.
// CaptionTranscriber reads the published caption track instead of running
// speech-to-text, and can fall back to another ai.Transcriber when a video
// has no captions.
package youtube
