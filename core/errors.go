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


package core

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures so callers can decide whether to retry.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindInput is a malformed video reference or request.
	KindInput
	// KindNotFound means the source or record is unavailable.
	KindNotFound
	// KindRateLimited is a transient provider-side quota failure.
	KindRateLimited
	// KindNetwork is a transient connectivity failure.
	KindNetwork
	// KindProvider is a non-transient provider failure, e.g. a malformed response.
	KindProvider
	// KindNotReady means the video is not indexed yet.
	KindNotReady
	// KindAuth is a missing or invalid credential.
	KindAuth
	// KindUnsupportedFormat means the transcriber cannot read the audio.
	KindUnsupportedFormat
	// KindCanceled means the job was abandoned.
	KindCanceled
)

// Sentinel errors, one per kind. Classified errors match them with errors.Is.
var (
	ErrInput             = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrRateLimited       = errors.New("rate limited")
	ErrNetwork           = errors.New("network error")
	ErrProvider          = errors.New("provider error")
	ErrNotReady          = errors.New("video not ready")
	ErrAuth              = errors.New("authentication failed")
	ErrUnsupportedFormat = errors.New("unsupported format")
	ErrCanceled          = errors.New("canceled")
)

var kindSentinels = map[ErrorKind]error{
	KindInput:             ErrInput,
	KindNotFound:          ErrNotFound,
	KindRateLimited:       ErrRateLimited,
	KindNetwork:           ErrNetwork,
	KindProvider:          ErrProvider,
	KindNotReady:          ErrNotReady,
	KindAuth:              ErrAuth,
	KindUnsupportedFormat: ErrUnsupportedFormat,
	KindCanceled:          ErrCanceled,
}

// classification order for KindOf when walking sentinels
var kindOrder = []ErrorKind{
	KindCanceled, KindInput, KindNotFound, KindRateLimited, KindNetwork,
	KindAuth, KindNotReady, KindUnsupportedFormat, KindProvider,
}

// Sentinel returns the sentinel error for k, or nil for KindUnknown.
func (k ErrorKind) Sentinel() error {
	return kindSentinels[k]
}

func (k ErrorKind) String() string {
	if s, ok := kindSentinels[k]; ok {
		return s.Error()
	}
	return "unknown error"
}

// Transient reports whether errors of this kind may succeed on retry.
func (k ErrorKind) Transient() bool {
	return k == KindRateLimited || k == KindNetwork
}

// Error is a classified error. Op names the operation that failed.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel of the error's kind.
func (e *Error) Is(target error) bool {
	s := e.Kind.Sentinel()
	return s != nil && target == s
}

// NewError classifies err under kind.
func NewError(kind ErrorKind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf classifies a formatted message under kind.
func Errorf(kind ErrorKind, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf classifies any error. Unclassified errors count as provider errors.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}
	var ce *Error
	if errors.As(err, &ce) && ce.Kind != KindUnknown {
		return ce.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork
	}
	for _, k := range kindOrder {
		if errors.Is(err, kindSentinels[k]) {
			return k
		}
	}
	return KindProvider
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return KindOf(err).Transient()
}

var errNegativeLength = errors.New("negative length")

// errorText carries a persisted failure message.
type errorText string

func (e errorText) Error() string { return string(e) }
