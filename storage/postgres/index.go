// Package postgres provides a Vector Index on PostgreSQL with the pgvector
// extension. Replacing a video's chunks happens in one transaction, so
// concurrent queries see either the old set or the new one.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/vidchat/core"
	"github.com/poiesic/vidchat/storage"
)

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;
CREATE TABLE IF NOT EXISTS video_chunks (
	video_id  TEXT    NOT NULL,
	seq       INTEGER NOT NULL,
	text      TEXT    NOT NULL,
	start_ms  BIGINT  NOT NULL,
	end_ms    BIGINT  NOT NULL,
	embedding vector  NOT NULL,
	PRIMARY KEY (video_id, seq)
);`

// VectorIndex implements storage.VectorIndex on a pgx pool.
type VectorIndex struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// Option configures a VectorIndex.
type Option func(*VectorIndex) error

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *VectorIndex) error {
		x.logger = logger
		return nil
	}
}

// NewVectorIndex connects to dsn and creates the schema if needed.
func NewVectorIndex(ctx context.Context, dsn string, opts ...Option) (*VectorIndex, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	config.MaxConns = 10
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	x := &VectorIndex{
		pool:   pool,
		logger: slog.Default().With("component", "postgres-index"),
	}
	for _, opt := range opts {
		if err := opt(x); err != nil {
			pool.Close()
			return nil, err
		}
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return x, nil
}

// Close closes the pool.
func (x *VectorIndex) Close() error {
	x.pool.Close()
	return nil
}

// Upsert replaces the chunks of videoID in one transaction.
func (x *VectorIndex) Upsert(ctx context.Context, videoID core.VideoID, chunks []core.Chunk, vectors [][]float32) error {
	if err := storage.ValidateUpsert(videoID, chunks, vectors); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, x.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM video_chunks WHERE video_id = $1`, string(videoID)); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for i, c := range chunks {
			batch.Queue(
				`INSERT INTO video_chunks (video_id, seq, text, start_ms, end_ms, embedding)
				 VALUES ($1, $2, $3, $4, $5, $6)`,
				string(videoID), c.Sequence, c.Text, c.Start.Milliseconds(), c.End.Milliseconds(),
				pgvector.NewVector(vectors[i]),
			)
		}
		br := tx.SendBatch(ctx, batch)
		for i := range chunks {
			if _, err := br.Exec(); err != nil {
				br.Close()
				return fmt.Errorf("failed to insert chunk %d: %w", i, err)
			}
		}
		return br.Close()
	})
	if err != nil {
		return classify("index upsert", err)
	}
	x.logger.Debug("index replaced", "video", videoID, "chunks", len(chunks))
	return nil
}

// Query orders by cosine distance, ties by sequence.
func (x *VectorIndex) Query(ctx context.Context, videoID core.VideoID, vector []float32, k int) ([]core.ScoredChunk, error) {
	if len(vector) == 0 {
		return nil, core.Errorf(core.KindInput, "index query", "query vector is empty")
	}
	if k <= 0 {
		return nil, nil
	}
	rows, err := x.pool.Query(ctx,
		`SELECT seq, text, start_ms, end_ms, 1 - (embedding <=> $2) AS score
		 FROM video_chunks
		 WHERE video_id = $1
		 ORDER BY embedding <=> $2, seq
		 LIMIT $3`,
		string(videoID), pgvector.NewVector(vector), k,
	)
	if err != nil {
		return nil, classify("index query", err)
	}
	defer rows.Close()

	var hits []core.ScoredChunk
	for rows.Next() {
		var (
			c              core.Chunk
			startMs, endMs int64
			score          float64
		)
		if err := rows.Scan(&c.Sequence, &c.Text, &startMs, &endMs, &score); err != nil {
			return nil, classify("index query", err)
		}
		c.VideoID = videoID
		c.Start = time.Duration(startMs) * time.Millisecond
		c.End = time.Duration(endMs) * time.Millisecond
		hits = append(hits, core.ScoredChunk{Chunk: c, Score: float32(score)})
	}
	if err := rows.Err(); err != nil {
		return nil, classify("index query", err)
	}
	// Re-sort on float32 scores so ties compare the way the embedded index does.
	storage.SortScored(hits)
	return hits, nil
}

// Delete removes every chunk of videoID.
func (x *VectorIndex) Delete(ctx context.Context, videoID core.VideoID) error {
	_, err := x.pool.Exec(ctx, `DELETE FROM video_chunks WHERE video_id = $1`, string(videoID))
	return classify("index delete", err)
}

// Chunks returns the chunks of videoID in sequence order.
func (x *VectorIndex) Chunks(ctx context.Context, videoID core.VideoID) ([]core.IndexedChunk, error) {
	rows, err := x.pool.Query(ctx,
		`SELECT seq, text, start_ms, end_ms, embedding
		 FROM video_chunks WHERE video_id = $1 ORDER BY seq`,
		string(videoID),
	)
	if err != nil {
		return nil, classify("index chunks", err)
	}
	defer rows.Close()

	var out []core.IndexedChunk
	for rows.Next() {
		var (
			c              core.Chunk
			startMs, endMs int64
			vec            pgvector.Vector
		)
		if err := rows.Scan(&c.Sequence, &c.Text, &startMs, &endMs, &vec); err != nil {
			return nil, classify("index chunks", err)
		}
		c.VideoID = videoID
		c.Start = time.Duration(startMs) * time.Millisecond
		c.End = time.Duration(endMs) * time.Millisecond
		out = append(out, core.IndexedChunk{Chunk: c, Vector: vec.Slice()})
	}
	return out, classify("index chunks", rows.Err())
}

// Count returns the number of chunks of videoID.
func (x *VectorIndex) Count(ctx context.Context, videoID core.VideoID) (int, error) {
	var n int
	err := x.pool.QueryRow(ctx, `SELECT count(*) FROM video_chunks WHERE video_id = $1`, string(videoID)).Scan(&n)
	return n, classify("index count", err)
}

// classify maps driver errors onto the error taxonomy.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	switch {
	case errors.Is(err, context.Canceled):
		return core.NewError(core.KindCanceled, op, err)
	case errors.Is(err, context.DeadlineExceeded):
		return core.NewError(core.KindNetwork, op, err)
	case strings.Contains(err.Error(), "different vector dimensions"):
		return core.NewError(core.KindInput, op, err)
	}
	return core.NewError(core.KindNetwork, op, err)
}
