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
	"fmt"
	"net/url"
	"strings"
)

const maxVideoIDLength = 64

// ParseVideoRef extracts the canonical video id from a reference.
//
// Accepted forms:
//   - a bare id made of letters, digits, '-' and '_'
//   - https://www.youtube.com/watch?v=<id>
//   - https://youtu.be/<id>
//   - https://www.youtube.com/{embed,shorts,live,v}/<id>
//
// Anything else is an input error.
func ParseVideoRef(ref string) (VideoID, error) {
	const op = "parse video reference"
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", Errorf(KindInput, op, "reference is empty")
	}

	if !strings.Contains(ref, "/") && !strings.Contains(ref, "?") {
		return checkVideoID(op, ref)
	}

	if !strings.Contains(ref, "://") {
		ref = "https://" + ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", NewError(KindInput, op, err)
	}

	host := strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	host = strings.TrimPrefix(host, "m.")
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")

	switch host {
	case "youtu.be":
		if len(parts) >= 1 && parts[0] != "" {
			return checkVideoID(op, parts[0])
		}
	case "youtube.com", "music.youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			return checkVideoID(op, v)
		}
		if len(parts) >= 2 {
			switch parts[0] {
			case "embed", "shorts", "live", "v":
				return checkVideoID(op, parts[1])
			}
		}
	default:
		return "", Errorf(KindInput, op, "unsupported host %q", u.Hostname())
	}
	return "", Errorf(KindInput, op, "no video id in %q", ref)
}

func checkVideoID(op, id string) (VideoID, error) {
	if len(id) > maxVideoIDLength {
		return "", Errorf(KindInput, op, "video id longer than %d characters", maxVideoIDLength)
	}
	for _, r := range id {
		isAlnum := (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !isAlnum && r != '-' && r != '_' {
			return "", Errorf(KindInput, op, "invalid character %q in video id", r)
		}
	}
	return VideoID(id), nil
}

// ValidateSegments checks that segments are time-ordered and well formed.
//
// Validation rules:
//   - Start must not be negative
//   - End must not be before Start
//   - Start must not be before the previous segment's Start
func ValidateSegments(segments []TranscriptSegment) error {
	for i, seg := range segments {
		if seg.Start < 0 {
			return fmt.Errorf("%w: segment %d starts before zero", ErrProvider, i)
		}
		if seg.End < seg.Start {
			return fmt.Errorf("%w: segment %d ends before it starts", ErrProvider, i)
		}
		if i > 0 && seg.Start < segments[i-1].Start {
			return fmt.Errorf("%w: segment %d is out of order", ErrProvider, i)
		}
	}
	return nil
}

// ValidateChatMessage validates a message before it is appended to a session.
func ValidateChatMessage(msg *ChatMessage) error {
	if msg == nil {
		return fmt.Errorf("%w: message is nil", ErrInput)
	}
	if msg.Role != RoleUser && msg.Role != RoleAssistant {
		return fmt.Errorf("%w: invalid role %d", ErrInput, msg.Role)
	}
	if strings.TrimSpace(msg.Text) == "" {
		return fmt.Errorf("%w: message text is empty", ErrInput)
	}
	return nil
}
