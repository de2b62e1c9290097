package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/storage"
)

// SessionRepository implements storage.SessionRepository for BadgerDB.
// Message keys carry a global sequence, so iteration order is append order.
type SessionRepository struct {
	backend *Backend
	msgSeq  *badger.Sequence
}

var _ storage.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(backend *Backend) (*SessionRepository, error) {
	msgSeq, err := backend.GetSequence(sessionMessageIDSeq)
	if err != nil {
		return nil, err
	}
	return &SessionRepository{backend: backend, msgSeq: msgSeq}, nil
}

// Close releases the message sequence.
func (r *SessionRepository) Close() error {
	return r.msgSeq.Release()
}

// CreateSession stores a new session.
func (r *SessionRepository) CreateSession(ctx context.Context, session *core.ChatSession) (*core.ChatSession, error) {
	if session.VideoID == "" {
		return nil, core.Errorf(core.KindInput, "create session", "video ID is empty")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now

	err := r.backend.Update(ctx, func(tx *badger.Txn) error {
		if err := tx.Set(makeSessionKey(session.ID), storage.MarshalChatSession(session)); err != nil {
			return err
		}
		return tx.Set(makeSessionVideoKey(session.VideoID, session.ID), []byte(session.ID))
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// GetSession retrieves a session by ID.
func (r *SessionRepository) GetSession(ctx context.Context, sessionID string) (*core.ChatSession, error) {
	if sessionID == "" {
		return nil, storage.ErrSessionRequired
	}
	var session *core.ChatSession
	err := r.backend.View(func(tx *badger.Txn) error {
		var err error
		session, err = get(tx, makeSessionKey(sessionID), storage.UnmarshalChatSession)
		return err
	})
	return session, err
}

// AppendMessages adds messages to the end of a session in one transaction.
// The session record is rewritten too, so concurrent appends to one session
// conflict and are retried in commit order.
func (r *SessionRepository) AppendMessages(ctx context.Context, sessionID string, messages ...*core.ChatMessage) error {
	if sessionID == "" {
		return storage.ErrSessionRequired
	}
	for _, msg := range messages {
		if err := core.ValidateChatMessage(msg); err != nil {
			return core.NewError(core.KindInput, "append messages", err)
		}
	}

	return r.backend.Update(ctx, func(tx *badger.Txn) error {
		session, err := get(tx, makeSessionKey(sessionID), storage.UnmarshalChatSession)
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		for _, msg := range messages {
			id, err := r.msgSeq.Next()
			if err != nil {
				return err
			}
			if msg.Timestamp.IsZero() {
				msg.Timestamp = now
			}
			if err := tx.Set(makeMessageKey(sessionID, id), storage.MarshalChatMessage(msg)); err != nil {
				return err
			}
		}
		session.UpdatedAt = now
		return tx.Set(makeSessionKey(sessionID), storage.MarshalChatSession(session))
	})
}

// GetMessages returns the messages of a session in append order.
func (r *SessionRepository) GetMessages(ctx context.Context, sessionID string, limit int) ([]*core.ChatMessage, error) {
	if sessionID == "" {
		return nil, storage.ErrSessionRequired
	}
	var messages []*core.ChatMessage
	err := r.backend.View(func(tx *badger.Txn) error {
		ok, err := exists(tx, makeSessionKey(sessionID))
		if err != nil {
			return err
		}
		if !ok {
			return storage.ErrNotFound
		}
		messages, err = scan(tx, makePartialMessageKey(sessionID), storage.UnmarshalChatMessage)
		return err
	})
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}
	return messages, nil
}

// ListSessions returns the sessions of videoID, oldest first.
func (r *SessionRepository) ListSessions(ctx context.Context, videoID core.VideoID) ([]*core.ChatSession, error) {
	var sessions []*core.ChatSession
	err := r.backend.View(func(tx *badger.Txn) error {
		ids, err := scan(tx, makePartialSessionVideoKey(videoID), func(val []byte) (*string, error) {
			id := string(val)
			return &id, nil
		})
		if err != nil {
			return err
		}
		for _, id := range ids {
			session, err := get(tx, makeSessionKey(*id), storage.UnmarshalChatSession)
			if err != nil {
				return err
			}
			sessions = append(sessions, session)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(sessions, func(a, b *core.ChatSession) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return sessions, nil
}

// DeleteSession removes a session and its messages.
func (r *SessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	session, err := r.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	err = r.backend.Update(ctx, func(tx *badger.Txn) error {
		if err := tx.Delete(makeSessionKey(sessionID)); err != nil {
			return err
		}
		return tx.Delete(makeSessionVideoKey(session.VideoID, sessionID))
	})
	if err != nil {
		return err
	}
	return r.backend.deletePrefix(makePartialMessageKey(sessionID))
}
