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


// Package ai defines the external capabilities vidchat depends on.
//
// Each capability is an interface with exactly one method:
//
//   - MediaFetcher: acquires the audio track of a video
//   - Transcriber: turns audio into ordered, timed transcript segments
//   - Embedder: computes a fixed-length vector for a piece of text
//   - Generator: produces text from a prompt, using a caller-supplied credential
//
// Providers bundles one implementation of each for wiring. The pipeline, the
// chat engine and the summarizer only ever see these interfaces, so tests can
// substitute the deterministic doubles in ai/mock.
//
// # Implementation Packages
//
//   - ai/openai: Embedder and Generator for OpenAI-compatible hosts (langchaingo)
//   - ai/gemini: Generator and audio Transcriber backed by the Gemini API
//   - ai/youtube: MediaFetcher and caption-track Transcriber for YouTube
//   - ai/mock: test doubles with call counting and behavior injection
//
// # Constructor Return Type Pattern
//
// Public constructors in the implementation packages return INTERFACE types:
//
//	embedder, err := openai.NewEmbedder(config)  // returns ai.Embedder
//
// Mock constructors return CONCRETE types so tests can inject behavior and
// assert on call counts:
//
//	gen := mock.NewMockGenerator()  // returns *mock.MockGenerator
//	gen.GenerateFunc = ...
//	count := gen.CallCount()
//
// # Errors
//
// Implementations classify failures with core.ErrorKind. Classify maps
// transport and HTTP status failures onto the taxonomy so the pipeline can
// decide what to retry.
package ai
