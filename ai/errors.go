package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strconv"

	"github.com/poiesic/vidchat/core"
)

var (
	// ErrMediaFetcherRequired is returned when no media fetcher is configured.
	ErrMediaFetcherRequired = errors.New("media fetcher required")

	// ErrTranscriberRequired is returned when no transcriber is configured.
	ErrTranscriberRequired = errors.New("transcriber required")

	// ErrEmbedderRequired is returned when no embedder is configured.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrGeneratorRequired is returned when no generator is configured.
	ErrGeneratorRequired = errors.New("generator required")
)

// KindForStatus maps an HTTP status code onto the error taxonomy.
func KindForStatus(code int) core.ErrorKind {
	switch {
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return core.KindAuth
	case code == http.StatusNotFound || code == http.StatusGone:
		return core.KindNotFound
	case code == http.StatusTooManyRequests:
		return core.KindRateLimited
	case code == http.StatusRequestTimeout || code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout:
		return core.KindNetwork
	case code == http.StatusUnsupportedMediaType:
		return core.KindUnsupportedFormat
	case code == http.StatusBadRequest || code == http.StatusUnprocessableEntity:
		return core.KindInput
	}
	return core.KindProvider
}

var statusPattern = regexp.MustCompile(`status code:? (\d{3})`)

// Classify wraps err with the kind it most likely belongs to. Errors that are
// already classified keep their kind. Status codes embedded in the message
// (as OpenAI-compatible clients report them) are honoured.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, context.Canceled) {
		return core.NewError(core.KindCanceled, op, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return core.NewError(core.KindNetwork, op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return core.NewError(core.KindNetwork, op, err)
	}
	if m := statusPattern.FindStringSubmatch(err.Error()); m != nil {
		if code, convErr := strconv.Atoi(m[1]); convErr == nil {
			return core.NewError(KindForStatus(code), op, err)
		}
	}
	return core.NewError(core.KindOf(err), op, err)
}
