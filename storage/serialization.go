// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"

	"github.com/poiesic/vidchat/core"
)

// serializer is the shape of the generated mus serializers in core.
type serializer[T any] interface {
	Marshal(v T, bs []byte) (n int)
	Unmarshal(bs []byte) (v T, n int, err error)
	Size(v T) (size int)
}

func marshal[T any](s serializer[T], v T) []byte {
	buf := make([]byte, s.Size(v))
	s.Marshal(v, buf)
	return buf
}

func unmarshal[T any](s serializer[T], data []byte) (*T, error) {
	v, _, err := s.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return &v, nil
}

// MarshalID serializes an ID to bytes.
func MarshalID(id core.ID) []byte {
	return marshal(core.IDMUS, id)
}

// UnmarshalID deserializes an ID from bytes.
func UnmarshalID(data []byte) (core.ID, error) {
	id, err := unmarshal(core.IDMUS, data)
	if err != nil {
		return 0, err
	}
	return *id, nil
}

// MarshalVideoJob serializes a VideoJob to bytes.
func MarshalVideoJob(job *core.VideoJob) []byte {
	return marshal(core.VideoJobMUS, *job)
}

// UnmarshalVideoJob deserializes a VideoJob from bytes.
func UnmarshalVideoJob(data []byte) (*core.VideoJob, error) {
	return unmarshal(core.VideoJobMUS, data)
}

// MarshalTranscript serializes a Transcript to bytes.
func MarshalTranscript(transcript *core.Transcript) []byte {
	return marshal(core.TranscriptMUS, *transcript)
}

// UnmarshalTranscript deserializes a Transcript from bytes.
func UnmarshalTranscript(data []byte) (*core.Transcript, error) {
	return unmarshal(core.TranscriptMUS, data)
}

// MarshalIndexedChunk serializes an IndexedChunk to bytes.
func MarshalIndexedChunk(chunk *core.IndexedChunk) []byte {
	return marshal(core.IndexedChunkMUS, *chunk)
}

// UnmarshalIndexedChunk deserializes an IndexedChunk from bytes.
func UnmarshalIndexedChunk(data []byte) (*core.IndexedChunk, error) {
	return unmarshal(core.IndexedChunkMUS, data)
}

// MarshalChatSession serializes a ChatSession to bytes.
func MarshalChatSession(session *core.ChatSession) []byte {
	return marshal(core.ChatSessionMUS, *session)
}

// UnmarshalChatSession deserializes a ChatSession from bytes.
func UnmarshalChatSession(data []byte) (*core.ChatSession, error) {
	return unmarshal(core.ChatSessionMUS, data)
}

// MarshalChatMessage serializes a ChatMessage to bytes.
func MarshalChatMessage(message *core.ChatMessage) []byte {
	return marshal(core.ChatMessageMUS, *message)
}

// UnmarshalChatMessage deserializes a ChatMessage from bytes.
func UnmarshalChatMessage(data []byte) (*core.ChatMessage, error) {
	return unmarshal(core.ChatMessageMUS, data)
}

// MarshalSummary serializes a Summary to bytes.
func MarshalSummary(summary *core.Summary) []byte {
	return marshal(core.SummaryMUS, *summary)
}

// UnmarshalSummary deserializes a Summary from bytes.
func UnmarshalSummary(data []byte) (*core.Summary, error) {
	return unmarshal(core.SummaryMUS, data)
}
