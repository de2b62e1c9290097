package ingestion

import "errors"

var (
	// ErrRepositoriesRequired is returned when the repositories are not provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// ErrRegistryRequired is returned when a job registry is not provided.
	ErrRegistryRequired = errors.New("job registry required")

	// ErrPipelineClosed is returned by Submit after Close.
	ErrPipelineClosed = errors.New("pipeline closed")
)
