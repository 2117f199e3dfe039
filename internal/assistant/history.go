package assistant

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/supportdesk/qa-assistant/internal/storage"
)

// ConversationStore records answered queries and their ratings.
// storage.ConversationRepository satisfies it.
type ConversationStore interface {
	Create(ctx context.Context, c *storage.Conversation) error
	Rate(ctx context.Context, id uuid.UUID, rating int) error
	Stats(ctx context.Context) (*storage.LearningStats, error)
}

// MemoryHistory keeps the most recent conversations in a fixed-size ring.
type MemoryHistory struct {
	mu    sync.Mutex
	ring  []*storage.Conversation
	next  int
	full  bool
	total int
}

// NewMemoryHistory creates a ring holding at most size conversations.
func NewMemoryHistory(size int) *MemoryHistory {
	if size <= 0 {
		size = 1000
	}
	return &MemoryHistory{ring: make([]*storage.Conversation, size)}
}

// Create implements ConversationStore.
func (h *MemoryHistory) Create(_ context.Context, c *storage.Conversation) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	stored := *c

	h.mu.Lock()
	defer h.mu.Unlock()

	h.ring[h.next] = &stored
	h.next = (h.next + 1) % len(h.ring)
	if h.next == 0 {
		h.full = true
	}
	h.total++
	return nil
}

// Rate implements ConversationStore. Conversations evicted from the ring are
// reported as storage.ErrNotFound.
func (h *MemoryHistory) Rate(_ context.Context, id uuid.UUID, rating int) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.ring {
		if c != nil && c.ID == id {
			r := rating
			c.Rating = &r
			return nil
		}
	}
	return storage.ErrNotFound
}

// Stats implements ConversationStore over the retained conversations.
func (h *MemoryHistory) Stats(_ context.Context) (*storage.LearningStats, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	stats := &storage.LearningStats{}
	var sum int
	for _, c := range h.ring {
		if c == nil {
			continue
		}
		stats.TotalConversations++
		if c.Method == storage.MethodFallback {
			stats.Fallbacks++
		}
		if c.Rating == nil {
			continue
		}
		stats.RatedConversations++
		sum += *c.Rating
		if *c.Rating >= storage.WellRatedThreshold {
			stats.WellRated++
		}
	}
	if stats.RatedConversations > 0 {
		stats.AverageRating = float64(sum) / float64(stats.RatedConversations)
	}
	return stats, nil
}

// Len is the number of retained conversations.
func (h *MemoryHistory) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.full {
		return len(h.ring)
	}
	return h.next
}
