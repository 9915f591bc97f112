package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"
)

// Embedder converts text to a vector. The production implementation calls an
// OpenAI-compatible embeddings endpoint.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// LongTermStore keeps one chromem collection per user, so recall can only
// ever surface that user's own history.
type LongTermStore struct {
	db       *chromem.DB
	embedder Embedder
	topK     int

	mu          sync.Mutex
	collections map[uint]*chromem.Collection
}

func NewLongTermStore(embedder Embedder, topK int) *LongTermStore {
	if topK <= 0 {
		topK = 5
	}
	return &LongTermStore{
		db:          chromem.NewDB(),
		embedder:    embedder,
		topK:        topK,
		collections: make(map[uint]*chromem.Collection),
	}
}

func (s *LongTermStore) collection(userID uint) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[userID]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(fmt.Sprintf("user_%d", userID), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("create memory collection failed: %w", err)
	}
	s.collections[userID] = col
	return col, nil
}

// Record embeds text and stores it in the user's collection.
func (s *LongTermStore) Record(ctx context.Context, userID uint, text string) error {
	if text == "" {
		return nil
	}
	col, err := s.collection(userID)
	if err != nil {
		return err
	}
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("embed memory failed: %w", err)
	}
	doc := chromem.Document{
		ID:        uuid.NewString(),
		Content:   text,
		Embedding: embedding,
	}
	if err := col.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("store memory failed: %w", err)
	}
	return nil
}

// Recall returns up to topK texts from the user's history most similar to
// query, best match first.
func (s *LongTermStore) Recall(ctx context.Context, userID uint, query string) ([]string, error) {
	col, err := s.collection(userID)
	if err != nil {
		return nil, err
	}

	// chromem rejects nResults larger than the collection.
	n := s.topK
	if count := col.Count(); count < n {
		n = count
	}
	if n == 0 {
		return nil, nil
	}

	embedding, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed recall query failed: %w", err)
	}
	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query memory failed: %w", err)
	}

	texts := make([]string, 0, len(results))
	for _, res := range results {
		texts = append(texts, res.Content)
	}
	return texts, nil
}
