// Package ingestion runs videos through the ingestion pipeline.
//
// The Pipeline moves each VideoJob through its stages:
//   - Downloading: acquire the audio track
//   - Transcribing: convert audio into timed segments and persist the transcript
//   - Chunking: pack segments into overlapping chunks
//   - Embedding: embed every chunk and replace the video's vector index
//
// Status changes go through Advance, a pure transition function. A Registry
// owned by the caller holds one entry per video with an active run, so a
// second Submit for the same video returns the running job instead of
// starting another. Different videos run concurrently on a worker pool.
package ingestion
