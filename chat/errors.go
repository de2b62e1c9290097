package chat

import "errors"

var (
	// ErrJobsRequired is returned when no job repository is provided.
	ErrJobsRequired = errors.New("job repository required")

	// ErrSessionsRequired is returned when no session repository is provided.
	ErrSessionsRequired = errors.New("session repository required")

	// ErrRetrieverRequired is returned when no retriever is provided.
	ErrRetrieverRequired = errors.New("retriever required")
)
