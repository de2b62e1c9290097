package summary

import "errors"

var (
	// ErrRepositoriesRequired is returned when the repositories are not provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// errNoConvergence means merging partial summaries stopped shrinking them.
	errNoConvergence = errors.New("partial summaries do not fit the input budget")
)
