package reembed

import "errors"

var (
	// ErrRepositoriesRequired is returned when the repositories are not provided.
	ErrRepositoriesRequired = errors.New("repositories required")

	// ErrGatewayRequired is returned when no embedding gateway is provided.
	ErrGatewayRequired = errors.New("embedding gateway required")
)
