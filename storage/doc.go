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


// Package storage provides the storage abstraction layer for vidchat.
//
// This package defines repository interfaces that decouple storage implementation
// from business logic: the per-video VectorIndex plus repositories for jobs,
// transcripts, chat sessions and summaries.
//
// # Constructor Return Type Pattern
//
// Public backend constructors return the interfaces defined here:
//
//	index, err := postgres.NewVectorIndex(ctx, dsn) // returns storage.VectorIndex
//
// Internal package constructors (newBackend, newIndex, etc.) may return
// concrete types since they're only used within the implementation package.
//
// # Usage
//
// Open every repository on one BadgerDB directory:
//
//	repos, err := badger.NewRepositories("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
