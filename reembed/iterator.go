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


package reembed

import (
	"context"

	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/storage"
)

// VideoIterator walks every Indexed video together with its chunks.
type VideoIterator struct {
	jobs  storage.JobRepository
	index storage.VectorIndex
}

// NewVideoIterator creates a new video iterator.
func NewVideoIterator(jobs storage.JobRepository, index storage.VectorIndex) *VideoIterator {
	return &VideoIterator{jobs: jobs, index: index}
}

// Videos returns the Indexed jobs, oldest first.
func (it *VideoIterator) Videos(ctx context.Context) ([]*core.VideoJob, error) {
	jobs, err := it.jobs.ListJobs(ctx)
	if err != nil {
		return nil, err
	}
	indexed := jobs[:0]
	for _, job := range jobs {
		if job.Status == core.StatusIndexed {
			indexed = append(indexed, job)
		}
	}
	return indexed, nil
}

// ForEach calls fn with each of jobs in order. load reads the job's chunks
// in sequence order at the time it is called.
// Iteration stops on the first error from fn.
// Context cancellation is checked between videos.
func (it *VideoIterator) ForEach(ctx context.Context, jobs []*core.VideoJob, fn func(job *core.VideoJob, load func() ([]core.IndexedChunk, error)) error) error {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}

		videoID := job.VideoID
		load := func() ([]core.IndexedChunk, error) {
			return it.index.Chunks(ctx, videoID)
		}
		if err := fn(job, load); err != nil {
			return err
		}
	}

	return ctx.Err()
}
