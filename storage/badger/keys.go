package badger

import (
	"encoding/binary"

	"github.com/poiesic/vidchat/core"
)

// Key prefixes for different data types
const (
	jobPrefix           = "job"
	transcriptPrefix    = "trn"
	indexGenPrefix      = "vidx"
	indexChunkPrefix    = "vchk"
	sessionPrefix       = "ses"
	sessionVideoPrefix  = "sesv"
	sessionMsgPrefix    = "smsg"
	summaryPrefix       = "sum"
	indexGenerationSeq  = "vidxseq"
	sessionMessageIDSeq = "smsgseq"
)

func makeKey(prefix, id string) []byte {
	return []byte(prefix + ":" + id)
}

func makeJobKey(videoID core.VideoID) []byte {
	return makeKey(jobPrefix, string(videoID))
}

func makeTranscriptKey(videoID core.VideoID) []byte {
	return makeKey(transcriptPrefix, string(videoID))
}

func makeSummaryKey(videoID core.VideoID) []byte {
	return makeKey(summaryPrefix, string(videoID))
}

// makeIndexGenKey points at the live generation of a video's chunks.
func makeIndexGenKey(videoID core.VideoID) []byte {
	return makeKey(indexGenPrefix, string(videoID))
}

// makePartialChunkKey generates the prefix of every chunk of a video.
// Format: prefix:videoID:
func makePartialChunkKey(videoID core.VideoID) []byte {
	return makeKey(indexChunkPrefix, string(videoID)+":")
}

// makeGenerationPrefix generates the prefix of one generation of chunks.
// Format: prefix:videoID:generation
func makeGenerationPrefix(videoID core.VideoID, gen uint64) []byte {
	prefix := makePartialChunkKey(videoID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], gen)
	return buf
}

// makeChunkKey generates a key for one chunk.
// Format: prefix:videoID:generation:sequence
func makeChunkKey(videoID core.VideoID, gen uint64, seq int) []byte {
	prefix := makeGenerationPrefix(videoID, gen)
	buf := make([]byte, len(prefix)+4)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint32(buf[offset:], uint32(seq))
	return buf
}

func makeSessionKey(sessionID string) []byte {
	return makeKey(sessionPrefix, sessionID)
}

// makeSessionVideoKey indexes sessions by video.
// Format: prefix:videoID:sessionID
func makeSessionVideoKey(videoID core.VideoID, sessionID string) []byte {
	return makeKey(sessionVideoPrefix, string(videoID)+":"+sessionID)
}

func makePartialSessionVideoKey(videoID core.VideoID) []byte {
	return makeKey(sessionVideoPrefix, string(videoID)+":")
}

// makePartialMessageKey generates the prefix of every message of a session.
func makePartialMessageKey(sessionID string) []byte {
	return makeKey(sessionMsgPrefix, sessionID+":")
}

// makeMessageKey generates a key for one message.
// Format: prefix:sessionID:messageID
func makeMessageKey(sessionID string, id uint64) []byte {
	prefix := makePartialMessageKey(sessionID)
	buf := make([]byte, len(prefix)+8)
	offset := copy(buf, prefix)
	binary.BigEndian.PutUint64(buf[offset:], id)
	return buf
}

func encodeGeneration(gen uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, gen)
	return buf
}

func decodeGeneration(val []byte) (uint64, bool) {
	if len(val) != 8 {
		return 0, false
	}
	return binary.BigEndian.Uint64(val), true
}
