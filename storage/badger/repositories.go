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


package badger

import (
	"errors"

	"github.com/poiesic/vidchat/storage"
)

// NewRepositories opens a BadgerDB database at path and returns every
// repository on top of it. Close on the result releases the database.
func NewRepositories(path string) (*storage.Repositories, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend)
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must call Close on the result when done.
func NewMemoryRepositories() (*storage.Repositories, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}
	return newRepositories(backend)
}

func newRepositories(backend *Backend) (*storage.Repositories, error) {
	index, err := newVectorIndex(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	sessions, err := NewSessionRepository(backend)
	if err != nil {
		index.Close()
		backend.Close()
		return nil, err
	}

	return &storage.Repositories{
		Index:       index,
		Jobs:        NewJobRepository(backend),
		Transcripts: NewTranscriptRepository(backend),
		Sessions:    sessions,
		Summaries:   NewSummaryRepository(backend),
		Close: func() error {
			return errors.Join(sessions.Close(), index.Close(), backend.Close())
		},
	}, nil
}
