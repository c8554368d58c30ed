package content

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dkaufhold/factgraph/internal/db"
	"github.com/dkaufhold/factgraph/internal/models"
)

// Embedder produces one vector per input text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists revision text together with its embedded windows.
type Store struct {
	db       *db.Client
	embedder Embedder
	logger   *slog.Logger

	windowSize    int
	windowOverlap int
}

// NewStore creates a content store.
func NewStore(client *db.Client, embedder Embedder, logger *slog.Logger, windowSize, windowOverlap int) *Store {
	return &Store{
		db:            client,
		embedder:      embedder,
		logger:        logger,
		windowSize:    windowSize,
		windowOverlap: windowOverlap,
	}
}

// Save stores one revision: the raw text, plus its windows embedded in a
// single batch call. Returns the revision row and the number of chunks
// written.
func (s *Store) Save(ctx context.Context, contentID, revisionID string, source *string, text string) (*models.ContentRevision, int, error) {
	rev, err := s.db.QueryCreateRevision(ctx, contentID, revisionID, source, text)
	if err != nil {
		return nil, 0, fmt.Errorf("create revision: %w", err)
	}

	windows := Split(text, s.windowSize, s.windowOverlap)
	if len(windows) == 0 {
		return rev, 0, nil
	}

	texts := make([]string, len(windows))
	for i, w := range windows {
		texts[i] = w.Text
	}
	vectors, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, 0, fmt.Errorf("embed windows: %w", err)
	}
	if len(vectors) != len(windows) {
		return nil, 0, fmt.Errorf("embed windows: got %d vectors for %d windows", len(vectors), len(windows))
	}

	chunks := make([]db.ChunkInput, len(windows))
	for i, w := range windows {
		chunks[i] = db.ChunkInput{
			ID:        uuid.NewString(),
			Seq:       w.Seq,
			Text:      w.Text,
			StartChar: w.StartChar,
			EndChar:   w.EndChar,
			Embedding: vectors[i],
		}
	}
	if err := s.db.QueryCreateChunks(ctx, contentID, revisionID, chunks); err != nil {
		return nil, 0, fmt.Errorf("create chunks: %w", err)
	}

	s.logger.Info("revision stored",
		"content_id", contentID,
		"revision_id", revisionID,
		"text_len", len(text),
		"chunks", len(chunks))
	return rev, len(chunks), nil
}

// GetText returns a revision's full text and its ordered chunks.
func (s *Store) GetText(ctx context.Context, contentID, revisionID string) (string, []models.Chunk, error) {
	rev, chunks, err := s.db.QueryGetRevision(ctx, contentID, revisionID)
	if err != nil {
		return "", nil, fmt.Errorf("get revision: %w", err)
	}
	return rev.Text, chunks, nil
}
