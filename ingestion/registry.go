package ingestion

import (
	"context"
	"sync"

	"github.com/poiesic/vidchat/core"
)

// Registry tracks the active pipeline run of each video. An entry exists
// from Submit until the run reaches a terminal status. Create one per
// process and share it with every component that submits videos or writes
// a video's stored state outside a run.
type Registry struct {
	mu    sync.Mutex
	runs  map[core.VideoID]*run
	holds map[core.VideoID]chan struct{}
}

type run struct {
	job    *core.VideoJob // latest persisted snapshot
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		runs:  make(map[core.VideoID]*run),
		holds: make(map[core.VideoID]chan struct{}),
	}
}

// begin registers a run for job.VideoID. If a run is already active it
// returns that run's job snapshot and false. While the video is held it
// returns a nil job and false.
func (r *Registry) begin(job *core.VideoJob, cancel context.CancelFunc) (*run, *core.VideoJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.runs[job.VideoID]; ok {
		return nil, current.job.Clone(), false
	}
	if _, held := r.holds[job.VideoID]; held {
		return nil, nil, false
	}
	rn := &run{job: job.Clone(), cancel: cancel, done: make(chan struct{})}
	r.runs[job.VideoID] = rn
	return rn, nil, true
}

// Hold reserves videoID for work that writes its stored state outside a
// pipeline run. It fails while a run is active or the video is already
// held. Runs submitted during the hold start once release is called.
// Calling release more than once is a no-op.
func (r *Registry) Hold(videoID core.VideoID) (release func(), ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, active := r.runs[videoID]; active {
		return nil, false
	}
	if _, held := r.holds[videoID]; held {
		return nil, false
	}
	released := make(chan struct{})
	r.holds[videoID] = released
	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			delete(r.holds, videoID)
			r.mu.Unlock()
			close(released)
		})
	}, true
}

// Held reports whether videoID is reserved by Hold.
func (r *Registry) Held(videoID core.VideoID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.holds[videoID]
	return ok
}

// heldCh returns a channel closed when the hold on videoID is released, or
// nil if the video is not held.
func (r *Registry) heldCh(videoID core.VideoID) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, ok := r.holds[videoID]; ok {
		return ch
	}
	return nil
}

// update replaces the snapshot of an active run.
func (r *Registry) update(rn *run, job *core.VideoJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn.job = job.Clone()
}

// finish removes the run and wakes its waiters.
func (r *Registry) finish(videoID core.VideoID, rn *run) {
	r.mu.Lock()
	if r.runs[videoID] == rn {
		delete(r.runs, videoID)
	}
	r.mu.Unlock()
	close(rn.done)
}

// Snapshot returns the job of the active run of videoID.
func (r *Registry) Snapshot(videoID core.VideoID) (*core.VideoJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[videoID]
	if !ok {
		return nil, false
	}
	return rn.job.Clone(), true
}

// Active reports whether videoID has a run in progress.
func (r *Registry) Active(videoID core.VideoID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.runs[videoID]
	return ok
}

// Len returns the number of active runs.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.runs)
}

// cancel stops the active run of videoID and returns its done channel.
func (r *Registry) cancel(videoID core.VideoID) (<-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rn, ok := r.runs[videoID]
	if !ok {
		return nil, false
	}
	rn.cancel()
	return rn.done, true
}

// cancelAll stops every active run and returns their done channels.
func (r *Registry) cancelAll() []<-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	done := make([]<-chan struct{}, 0, len(r.runs))
	for _, rn := range r.runs {
		rn.cancel()
		done = append(done, rn.done)
	}
	return done
}

// doneCh returns the done channel of the active run of videoID, or nil.
func (r *Registry) doneCh(videoID core.VideoID) <-chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rn, ok := r.runs[videoID]; ok {
		return rn.done
	}
	return nil
}
